// Donor HTTP handlers.
//
//   - GET  /donor/dashboard[?q=]  (open requests; cached unless searching)
//   - POST /donor/donate          (record a donation, Idempotency-Key aware)
//   - GET  /donor/history         (own donations, paginated)
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/http/middleware"
	"github.com/tbourn/edupay/internal/http/views"
	"github.com/tbourn/edupay/internal/services"
	"github.com/tbourn/edupay/internal/utils"
)

//
// DTOs
//

// DonateRequest is the donation payload. Amount is a whole number of rupees;
// JSON clients may send it as a number or a numeric string.
type DonateRequest struct {
	RequestID string      `json:"requestId" form:"requestId" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Amount    json.Number `json:"amount" form:"amount" swaggertype:"integer" example:"500"`
}

// OpenRequestsResponse lists open requests.
type OpenRequestsResponse struct {
	Query    string                  `json:"query,omitempty"`
	Requests []domain.RequestSummary `json:"requests"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// HistoryResponse is one page of a donor's donations.
type HistoryResponse struct {
	Donations  []domain.DonationSummary `json:"donations"`
	Pagination Pagination               `json:"pagination"`
}

//
// Helpers
//

// parseAmount reads a whole, possibly blank, amount. Blank reads as zero so
// the service reports the missing field.
func parseAmount(n json.Number) (int64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, services.ErrInvalidAmount
	}
	return v, nil
}

func principalID(c *gin.Context) string {
	p, _ := middleware.PrincipalFrom(c)
	return p.ID
}

//
// Handlers
//

// DonorDashboard godoc
// @ID          donorDashboard
// @Summary     Open requests
// @Description Lists open requests, newest first. Without q the list is served
// @Description from the cache; with q the store is searched (title or
// @Description description, case-insensitive) and the cache is not touched.
// @Tags        Donor
// @Produce     json
// @Param       q    query     string  false  "Search text"
// @Success     200  {object}  handlers.OpenRequestsResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /donor/dashboard [get]
func (h *Handlers) DonorDashboard(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	reqs, err := h.dashSvc.OpenRequests(c.Request.Context(), q)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, views.PageDonorDashboard,
		gin.H{"Title": "Open requests", "Requests": reqs, "Query": q},
		OpenRequestsResponse{Query: q, Requests: reqs},
	)
}

// Donate godoc
// @ID          donate
// @Summary     Donate to a request
// @Description Atomically adds amount to the request's funding; the request
// @Description becomes funded once the requested amount is reached. With an
// @Description Idempotency-Key, a retry within the key's lifetime is answered
// @Description with Idempotency-Replayed: true and records nothing.
// @Tags        Donor
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header    string                  false  "Client-chosen key"  example(3f2b8c1e-9a4d-4c7e-8f10-2b3c4d5e6f70)
// @Param       body             body      handlers.DonateRequest  true   "Donation"
// @Success     200              {object}  handlers.SuccessResponse
// @Header      200              {string}  Idempotency-Replayed  "true when answered from a previous request"
// @Failure     400              {object}  handlers.ErrorResponse  "Invalid request or amount"
// @Failure     401              {object}  handlers.ErrorResponse
// @Failure     403              {object}  handlers.ErrorResponse
// @Router      /donor/donate [post]
func (h *Handlers) Donate(c *gin.Context) {
	if middleware.IsReplay(c) {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		redirectOr(c, "/donor/dashboard", http.StatusOK, SuccessResponse{Success: true})
		return
	}

	var req DonateRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		failErr(c, err)
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	res, err := h.donSvc.Donate(c.Request.Context(), services.DonateInput{
		DonorID:        principalID(c),
		RequestID:      strings.TrimSpace(req.RequestID),
		Amount:         amount,
		Scope:          middleware.IdempotencyScope(c),
		IdempotencyKey: key,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	if res.Replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	redirectOr(c, "/donor/dashboard", http.StatusOK, SuccessResponse{Success: true})
}

// DonorHistory godoc
// @ID          donorHistory
// @Summary     Donation history
// @Description Returns a page of the donor's donations, newest first.
// @Tags        Donor
// @Produce     json
// @Param       page       query     int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query     int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200        {object}  handlers.HistoryResponse
// @Failure     401        {object}  handlers.ErrorResponse
// @Failure     403        {object}  handlers.ErrorResponse
// @Router      /donor/history [get]
func (h *Handlers) DonorHistory(c *gin.Context) {
	w := utils.ParseWindow(c.Query("page"), c.Query("page_size"))
	items, total, err := h.donSvc.HistoryPage(c.Request.Context(), principalID(c), w.Page, w.Size)
	if err != nil {
		failErr(c, err)
		return
	}
	pg := Pagination{
		Page:       w.Page,
		PageSize:   w.Size,
		Total:      total,
		TotalPages: w.TotalPages(total),
		HasNext:    w.HasNext(total),
	}
	respond(c, http.StatusOK, views.PageDonorHistory,
		gin.H{"Title": "Donation history", "Donations": items, "Pagination": pg},
		HistoryResponse{Donations: items, Pagination: pg},
	)
}
