// Package services – AuthService
//
// Registration and login for students and donors, plus the configuration
// derived system admin. Passwords are stored as bcrypt hashes; the admin
// principal is never written to the store.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/edupay/internal/auth"
	"github.com/tbourn/edupay/internal/config"
	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/repo"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthService owns credential checks.
type AuthService struct {
	DB    *gorm.DB
	Admin config.AuthConfig

	// Cost is the bcrypt work factor.
	Cost int
}

// NewAuthService constructs an AuthService with bcrypt.DefaultCost.
func NewAuthService(db *gorm.DB, admin config.AuthConfig) *AuthService {
	return &AuthService{DB: db, Admin: admin, Cost: bcrypt.DefaultCost}
}

// Register creates a student or donor account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := domain.Role(strings.ToLower(strings.TrimSpace(in.Role)))
	if name == "" || email == "" || in.Password == "" || role == "" {
		return nil, ErrMissingFields
	}
	if role == domain.RoleAdmin {
		return nil, ErrAdminRegistration
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if email == strings.ToLower(s.Admin.AdminEmail) {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrFieldTooLong
	}
	if err != nil {
		return nil, err
	}

	u, err := repo.CreateUser(ctx, s.DB, name, email, string(hash), role)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	return u, err
}

// Login checks credentials. The configured admin gets the system principal;
// stored admin accounts are refused with ErrAdminLogin.
func (s *AuthService) Login(ctx context.Context, email, password string) (auth.Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return auth.Principal{}, ErrMissingFields
	}

	if s.isSystemAdmin(email, password) {
		return auth.Principal{
			ID:     auth.SystemAdminID,
			Name:   s.Admin.AdminName,
			Email:  s.Admin.AdminEmail,
			Role:   domain.RoleAdmin,
			System: true,
		}, nil
	}

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return auth.Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return auth.Principal{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return auth.Principal{}, ErrInvalidCredentials
	}
	if u.Role == domain.RoleAdmin {
		return auth.Principal{}, ErrAdminLogin
	}
	return principalOf(u), nil
}

// Resolve completes a verified token's principal from the store. The system
// admin is resolved from configuration.
func (s *AuthService) Resolve(ctx context.Context, p auth.Principal) (auth.Principal, error) {
	if p.System {
		p.Name = s.Admin.AdminName
		p.Email = s.Admin.AdminEmail
		return p, nil
	}
	u, err := repo.GetUserByID(ctx, s.DB, p.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return auth.Principal{}, ErrUnknownPrincipal
	}
	if err != nil {
		return auth.Principal{}, err
	}
	if u.Role != p.Role || u.Role == domain.RoleAdmin {
		return auth.Principal{}, ErrUnknownPrincipal
	}
	return principalOf(u), nil
}

func (s *AuthService) isSystemAdmin(email, password string) bool {
	if s.Admin.AdminEmail == "" || s.Admin.AdminPassword == "" {
		return false
	}
	okEmail := subtle.ConstantTimeCompare([]byte(email), []byte(strings.ToLower(s.Admin.AdminEmail))) == 1
	okPass := subtle.ConstantTimeCompare([]byte(password), []byte(s.Admin.AdminPassword)) == 1
	return okEmail && okPass
}

func (s *AuthService) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

func principalOf(u *domain.User) auth.Principal {
	return auth.Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
