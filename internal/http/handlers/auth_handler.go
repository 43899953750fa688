// Authentication HTTP handlers.
//
//   - GET  /                 (landing page, or the principal's dashboard)
//   - GET  /auth/login       (form)
//   - GET  /auth/register    (form)
//   - POST /auth/register    (create a student or donor account)
//   - POST /auth/login       (issue the session token)
//   - POST /auth/logout      (clear the session cookie)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/http/middleware"
	"github.com/tbourn/edupay/internal/http/views"
	"github.com/tbourn/edupay/internal/services"
)

// cookieMaxAge bounds the browser session regardless of the token lifetime.
const cookieMaxAge = 24 * time.Hour

//
// DTOs
//

// RegisterRequest is the registration payload (JSON or form).
type RegisterRequest struct {
	Name     string `json:"name" form:"name" example:"Asha Rao"`
	Email    string `json:"email" form:"email" example:"asha@example.com"`
	Password string `json:"password" form:"password" example:"s3cret!"`
	// student or donor
	Role string `json:"role" form:"role" example:"student"`
}

// LoginRequest is the login payload (JSON or form).
type LoginRequest struct {
	Email    string `json:"email" form:"email" example:"asha@example.com"`
	Password string `json:"password" form:"password" example:"s3cret!"`
}

// UserResponse describes an account without its credential.
type UserResponse struct {
	ID    string `json:"id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Name  string `json:"name" example:"Asha Rao"`
	Email string `json:"email" example:"asha@example.com"`
	Role  string `json:"role" example:"student"`
}

// LoginResponse carries the bearer token for API clients.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
	Redirect  string       `json:"redirect" example:"/student/dashboard"`
}

// DashboardPath is the landing route of a role.
func DashboardPath(r domain.Role) string {
	switch r {
	case domain.RoleStudent:
		return "/student/dashboard"
	case domain.RoleDonor:
		return "/donor/dashboard"
	case domain.RoleAdmin:
		return "/admin/dashboard"
	}
	return "/"
}

//
// Handlers
//

// Home sends a signed-in principal to its dashboard and renders the landing
// page otherwise.
func (h *Handlers) Home(c *gin.Context) {
	if p, ok := middleware.PrincipalFrom(c); ok {
		c.Redirect(http.StatusFound, DashboardPath(p.Role))
		return
	}
	render(c, http.StatusOK, views.PageLanding, gin.H{"Title": "Welcome"})
}

// LoginPage renders the login form.
func (h *Handlers) LoginPage(c *gin.Context) {
	if p, ok := middleware.PrincipalFrom(c); ok {
		c.Redirect(http.StatusFound, DashboardPath(p.Role))
		return
	}
	render(c, http.StatusOK, views.PageLogin, gin.H{"Title": "Log in"})
}

// RegisterPage renders the registration form.
func (h *Handlers) RegisterPage(c *gin.Context) {
	render(c, http.StatusOK, views.PageRegister, gin.H{"Title": "Register"})
}

// Register godoc
// @ID          register
// @Summary     Register a student or donor
// @Description Creates an account. Admin accounts cannot be registered.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Account"
// @Success     201   {object}  handlers.UserResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields, invalid role or email, email taken"
// @Failure     403   {object}  handlers.ErrorResponse  "Admin registration"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	u, err := h.authSvc.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		if middleware.WantsHTML(c) {
			status, _, msg := classify(err)
			if status < http.StatusInternalServerError {
				render(c, status, views.PageRegister, gin.H{
					"Title": "Register",
					"Error": msg,
					"Name":  req.Name,
					"Email": req.Email,
				})
				return
			}
		}
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("user registered")
	redirectOr(c, middleware.LoginPath, http.StatusCreated, userResponse(u.ID, u.Name, u.Email, u.Role))
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and issues a session token, returned in
// @Description the body and set as the httpOnly "token" cookie.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.LoginResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     403   {object}  handlers.ErrorResponse  "Stored admin accounts may not log in"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	p, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if middleware.WantsHTML(c) {
			status, _, msg := classify(err)
			if status < http.StatusInternalServerError {
				render(c, status, views.PageLogin, gin.H{"Title": "Log in", "Error": msg, "Email": req.Email})
				return
			}
		}
		failErr(c, err)
		return
	}

	token, err := h.tokens.Issue(p)
	if err != nil {
		failErr(c, err)
		return
	}
	h.setSessionCookie(c, token, int(cookieMaxAge.Seconds()))
	middleware.LoggerFrom(c).Info().Str("user_id", p.ID).Str("role", string(p.Role)).Msg("login")

	dest := DashboardPath(p.Role)
	redirectOr(c, dest, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokens.TTL()).UTC(),
		User:      userResponse(p.ID, p.Name, p.Email, p.Role),
		Redirect:  dest,
	})
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Clears the session cookie. Bearer tokens stay valid until they expire.
// @Tags        Auth
// @Success     204  {string}  string  "No Content"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	noContent(c)
}

func (h *Handlers) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, value, maxAge, "/", "", h.cookieSecure, true)
}

func userResponse(id, name, email string, role domain.Role) UserResponse {
	return UserResponse{ID: id, Name: name, Email: strings.ToLower(email), Role: string(role)}
}
