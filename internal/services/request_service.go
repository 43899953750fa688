// Package services – RequestService
//
// This file implements the student-side write path for funding requests:
// create, edit, and delete. Each successful mutation runs its cache hook
// before returning; creation also announces the request to donors.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/notify"
	"github.com/tbourn/edupay/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequestInput carries a student's request form. On update, blank fields
// and a zero amount keep the stored value.
type RequestInput struct {
	Title           string
	Description     string
	AmountRequested int64
	Deadline        *time.Time
}

// RequestService manages the lifecycle of funding requests.
type RequestService struct {
	DB     *gorm.DB
	Hooks  *Invalidator
	Events notify.Publisher

	// TitleMaxLen caps titles by rune length.
	TitleMaxLen int
}

// NewRequestService constructs a RequestService with default limits.
func NewRequestService(db *gorm.DB, hooks *Invalidator, events notify.Publisher) *RequestService {
	return &RequestService{DB: db, Hooks: hooks, Events: events, TitleMaxLen: 200}
}

// Create stores a new open request for studentID, settles the caches, and
// notifies donors.
func (s *RequestService) Create(ctx context.Context, studentID string, in RequestInput) (*domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", studentID)),
	)
	defer span.End()

	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	if title == "" || desc == "" || in.AmountRequested == 0 {
		return nil, ErrMissingFields
	}
	if in.AmountRequested < 0 {
		return nil, ErrInvalidAmount
	}
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return nil, ErrFieldTooLong
	}

	r, err := repo.CreateRequest(ctx, s.DB, studentID, title, desc, in.AmountRequested, in.Deadline)
	if err != nil {
		return nil, err
	}

	s.Hooks.OnRequestCreated(ctx, studentID)

	studentName := ""
	if owner, err := repo.GetUserByID(ctx, s.DB, studentID); err == nil {
		studentName = owner.Name
	}
	publish(s.Events, notify.EventStudentRequest, notify.RequestNotification{
		ID:              r.ID,
		Title:           r.Title,
		AmountRequested: r.AmountRequested,
		AmountFunded:    r.AmountFunded,
		StudentName:     studentName,
		CreatedAt:       r.CreatedAt,
	}, notify.RoomDonors)

	return r, nil
}

// Update edits an owned, still unfunded request.
func (s *RequestService) Update(ctx context.Context, studentID, id string, in RequestInput) error {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("user.id", studentID),
			attribute.String("request.id", id),
		),
	)
	defer span.End()

	if in.AmountRequested < 0 {
		return ErrInvalidAmount
	}
	var p repo.RequestPatch
	if t := strings.TrimSpace(in.Title); t != "" {
		if s.TitleMaxLen > 0 && utf8.RuneCountInString(t) > s.TitleMaxLen {
			return ErrFieldTooLong
		}
		p.Title = &t
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		p.Description = &d
	}
	if in.AmountRequested > 0 {
		a := in.AmountRequested
		p.AmountRequested = &a
	}
	p.Deadline = in.Deadline

	if err := s.ownedUnfunded(ctx, studentID, id); err != nil {
		return err
	}
	if err := mapRequestErr(repo.UpdateUnfundedRequest(ctx, s.DB, id, studentID, p)); err != nil {
		return err
	}
	s.Hooks.OnRequestEdited(ctx, studentID)
	return nil
}

// Delete removes an owned, still unfunded request.
func (s *RequestService) Delete(ctx context.Context, studentID, id string) error {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("user.id", studentID),
			attribute.String("request.id", id),
		),
	)
	defer span.End()

	if err := mapRequestErr(repo.DeleteUnfundedRequest(ctx, s.DB, id, studentID)); err != nil {
		return err
	}
	s.Hooks.OnRequestDeleted(ctx, studentID)
	return nil
}

// ownedUnfunded answers not-found and locked before any input is applied,
// so an empty edit of a funded request still reports the lock.
func (s *RequestService) ownedUnfunded(ctx context.Context, studentID, id string) error {
	r, err := repo.GetOwnedRequest(ctx, s.DB, id, studentID)
	if err != nil {
		return mapRequestErr(err)
	}
	if !r.Editable() {
		return ErrRequestLocked
	}
	return nil
}

// publish hands an event to the bus. Delivery problems are logged only.
func publish(p notify.Publisher, name string, data any, rooms ...string) {
	if p == nil {
		return
	}
	if !p.Publish(name, data, rooms...) {
		log.Warn().Str("event", name).Msg("notification not delivered")
	}
}

func mapRequestErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrRequestNotFound
	case errors.Is(err, repo.ErrLocked):
		return ErrRequestLocked
	}
	return err
}

// ParseDeadline accepts a date (2006-01-02) or an RFC 3339 timestamp. Blank
// input means no deadline.
func ParseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, ErrInvalidDeadline
}
