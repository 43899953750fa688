// Student HTTP handlers.
//
//   - GET  /student/dashboard       (own requests and totals; cached)
//   - GET  /student/create-request  (form)
//   - POST /student/create-request  (create)
//   - GET  /student/my-requests     (own requests, read from the store)
//   - POST /student/update/:id      (edit an unfunded request)
//   - POST /student/delete/:id      (delete an unfunded request)
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/http/middleware"
	"github.com/tbourn/edupay/internal/http/views"
	"github.com/tbourn/edupay/internal/services"
)

//
// DTOs
//

// RequestForm is the create/update payload. On update, blank fields keep
// their stored values.
type RequestForm struct {
	Title           string      `json:"title" form:"title" example:"Semester books"`
	Description     string      `json:"description" form:"description" example:"Textbooks for the autumn semester"`
	AmountRequested json.Number `json:"amountRequested" form:"amountRequested" swaggertype:"integer" example:"1000"`
	// YYYY-MM-DD or RFC 3339
	Deadline string `json:"deadline" form:"deadline" example:"2026-12-31"`
}

// MyRequestsResponse lists a student's requests.
type MyRequestsResponse struct {
	Requests []domain.RequestSummary `json:"requests"`
}

func (f RequestForm) input() (services.RequestInput, error) {
	amount, err := parseAmount(f.AmountRequested)
	if err != nil {
		return services.RequestInput{}, err
	}
	deadline, err := services.ParseDeadline(f.Deadline)
	if err != nil {
		return services.RequestInput{}, err
	}
	return services.RequestInput{
		Title:           f.Title,
		Description:     f.Description,
		AmountRequested: amount,
		Deadline:        deadline,
	}, nil
}

//
// Handlers
//

// StudentDashboard godoc
// @ID          studentDashboard
// @Summary     Student dashboard
// @Description Own requests (newest first) with requested and funded totals.
// @Tags        Student
// @Produce     json
// @Success     200  {object}  domain.StudentDashboard
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /student/dashboard [get]
func (h *Handlers) StudentDashboard(c *gin.Context) {
	d, err := h.dashSvc.StudentDashboard(c.Request.Context(), principalID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, views.PageStudentDashboard, gin.H{"Title": "Dashboard", "Dashboard": d}, d)
}

// CreateRequestPage renders the new-request form.
func (h *Handlers) CreateRequestPage(c *gin.Context) {
	render(c, http.StatusOK, views.PageCreateRequest, gin.H{"Title": "New request", "Form": RequestForm{}})
}

// CreateRequest godoc
// @ID          createRequest
// @Summary     Create a funding request
// @Description Creates an open request and notifies donors.
// @Tags        Student
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RequestForm  true  "Request"
// @Success     201   {object}  domain.RequestSummary
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields or invalid amount"
// @Failure     401   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Router      /student/create-request [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	var form RequestForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	in, err := form.input()
	if err == nil {
		var r *domain.Request
		if r, err = h.reqSvc.Create(c.Request.Context(), principalID(c), in); err == nil {
			redirectOr(c, "/student/my-requests", http.StatusCreated, domain.Summarize(*r))
			return
		}
	}

	if status, _, msg := classify(err); status < http.StatusInternalServerError && middleware.WantsHTML(c) {
		render(c, status, views.PageCreateRequest, gin.H{"Title": "New request", "Error": msg, "Form": form})
		return
	}
	failErr(c, err)
}

// MyRequests godoc
// @ID          myRequests
// @Summary     Own requests
// @Description Lists the student's requests straight from the store.
// @Tags        Student
// @Produce     json
// @Success     200  {object}  handlers.MyRequestsResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /student/my-requests [get]
func (h *Handlers) MyRequests(c *gin.Context) {
	h.renderMyRequests(c, http.StatusOK, "")
}

// UpdateRequest godoc
// @ID          updateRequest
// @Summary     Edit a request
// @Description Edits a request that has no donations yet. Blank fields are kept.
// @Tags        Student
// @Accept      json
// @Produce     json
// @Param       id    path      string                true  "Request ID"  format(uuid)
// @Param       body  body      handlers.RequestForm  true  "Changes"
// @Success     200   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Request has donations, or invalid input"
// @Failure     404   {object}  handlers.ErrorResponse  "Not found or not owned"
// @Router      /student/update/{id} [post]
func (h *Handlers) UpdateRequest(c *gin.Context) {
	var form RequestForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	in, err := form.input()
	if err == nil {
		err = h.reqSvc.Update(c.Request.Context(), principalID(c), c.Param("id"), in)
	}
	h.afterMutation(c, err)
}

// DeleteRequest godoc
// @ID          deleteRequest
// @Summary     Delete a request
// @Description Deletes a request that has no donations yet.
// @Tags        Student
// @Produce     json
// @Param       id   path      string  true  "Request ID"  format(uuid)
// @Success     200  {object}  handlers.SuccessResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Request has donations"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found or not owned"
// @Router      /student/delete/{id} [post]
func (h *Handlers) DeleteRequest(c *gin.Context) {
	h.afterMutation(c, h.reqSvc.Delete(c.Request.Context(), principalID(c), c.Param("id")))
}

// afterMutation answers an edit or delete. Browsers go back to their list,
// with the error shown there when the change was refused.
func (h *Handlers) afterMutation(c *gin.Context, err error) {
	if err == nil {
		redirectOr(c, "/student/my-requests", http.StatusOK, SuccessResponse{Success: true})
		return
	}
	if status, _, msg := classify(err); status < http.StatusInternalServerError && middleware.WantsHTML(c) {
		h.renderMyRequests(c, status, msg)
		return
	}
	failErr(c, err)
}

func (h *Handlers) renderMyRequests(c *gin.Context, status int, errMsg string) {
	reqs, err := h.dashSvc.MyRequests(c.Request.Context(), principalID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	data := gin.H{"Title": "My requests", "Requests": reqs}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	respond(c, status, views.PageMyRequests, data, MyRequestsResponse{Requests: reqs})
}
