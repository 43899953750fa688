// Real-time notifications over Server-Sent Events.
//
//	GET /events
//
// The stream joins the room of the caller's role: students hear about
// funding changes of requests, donors about new requests and funding
// changes. Admins watch the donors room. A "ping" event is written every
// heartbeat interval so proxies keep the connection open.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/http/middleware"
	"github.com/tbourn/edupay/internal/notify"
)

// roomFor maps a role to its notification room.
func roomFor(r domain.Role) string {
	switch r {
	case domain.RoleStudent:
		return notify.RoomStudents
	default:
		return notify.RoomDonors
	}
}

// Events godoc
// @ID          events
// @Summary     Notification stream
// @Description Server-Sent Events for the caller's role. Event names:
// @Description "ready", "student-request-notification", "request-updated", "ping".
// @Tags        Events
// @Produce     text/event-stream
// @Success     200
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /events [get]
func (h *Handlers) Events(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	room := roomFor(p.Role)
	sub := h.events.Subscribe(room)
	defer sub.Close()

	// Long-lived: lift the server write timeout for this response.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	log := middleware.LoggerFrom(c)
	log.Debug().Str("room", room).Msg("event stream opened")

	tick := time.NewTicker(h.heartbeat)
	defer tick.Stop()

	c.SSEvent("ready", gin.H{"room": room})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("room", room).Msg("event stream closed")
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			c.SSEvent(ev.Name, ev.Data)
		case t := <-tick.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
		}
		c.Writer.Flush()
	}
}
