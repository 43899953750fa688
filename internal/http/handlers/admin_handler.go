// Admin HTTP handlers. Both are read-only.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/edupay/internal/http/views"
)

// AdminDashboard godoc
// @ID          adminDashboard
// @Summary     Platform overview
// @Description Users, requests, donations and totals, read from the store.
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  services.AdminOverview
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /admin/dashboard [get]
func (h *Handlers) AdminDashboard(c *gin.Context) {
	ov, err := h.adminSvc.Overview(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, views.PageAdminDashboard, gin.H{"Title": "Admin", "Overview": ov}, ov)
}

// AdminCache godoc
// @ID          adminCache
// @Summary     Cached dashboards
// @Description Lists cached dashboard entries with their remaining TTL.
// @Description Reports enabled=false without a cache and reachable=false when
// @Description the backend cannot be scanned.
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  services.CacheReport
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /admin/cache [get]
func (h *Handlers) AdminCache(c *gin.Context) {
	rep := h.adminSvc.CacheEntries(c.Request.Context())
	respond(c, http.StatusOK, views.PageAdminCache, gin.H{"Title": "Cache", "Report": rep}, rep)
}
