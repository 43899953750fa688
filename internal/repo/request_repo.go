// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Request
// model, including the atomic funding increment.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/search"
)

// ErrLocked is returned when an owner tries to change a request that has
// already received funding.
var ErrLocked = errors.New("request has received donations")

// RequestPatch carries the owner-editable fields. Nil fields are left as is.
type RequestPatch struct {
	Title           *string
	Description     *string
	AmountRequested *int64
	Deadline        *time.Time
}

// CreateRequest inserts an open, unfunded request owned by studentID.
func CreateRequest(ctx context.Context, db *gorm.DB, studentID, title, description string, amount int64, deadline *time.Time) (*domain.Request, error) {
	now := time.Now().UTC()
	r := &domain.Request{
		ID:              uuid.NewString(),
		StudentID:       studentID,
		Title:           title,
		Description:     description,
		AmountRequested: amount,
		AmountFunded:    0,
		Deadline:        deadline,
		Status:          domain.StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
		SearchText:      search.Document(title, description),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListOpenRequests returns open requests, newest first, with the owning
// student preloaded. A non-empty pattern is a folded LIKE pattern from
// search.LikePattern, matched against the stored search text.
func ListOpenRequests(ctx context.Context, db *gorm.DB, pattern string) ([]domain.Request, error) {
	q := db.WithContext(ctx).
		Preload("Student").
		Where("status = ?", domain.StatusOpen)
	if pattern != "" {
		q = q.Where(`search_text LIKE ? ESCAPE '\'`, pattern)
	}
	var out []domain.Request
	err := q.Order("created_at desc").Find(&out).Error
	return out, err
}

// ListRequestsByStudent returns every request owned by studentID, newest first.
func ListRequestsByStudent(ctx context.Context, db *gorm.DB, studentID string) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListAllRequests returns every request with its owner, newest first.
func ListAllRequests(ctx context.Context, db *gorm.DB) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).
		Preload("Student").
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetRequest fetches a request by id with its owner.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error) {
	var r domain.Request
	if err := db.WithContext(ctx).Preload("Student").Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// GetOwnedRequest fetches a request by id only if studentID owns it.
func GetOwnedRequest(ctx context.Context, db *gorm.DB, id, studentID string) (*domain.Request, error) {
	var r domain.Request
	err := db.WithContext(ctx).
		Where("id = ? AND student_id = ?", id, studentID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateUnfundedRequest applies p to the owned request while it is still
// unfunded. The funding guard is part of the WHERE clause, so a donation that
// lands between the caller's read and this write makes it fail with ErrLocked.
// Changing the title or description also rewrites the search text.
func UpdateUnfundedRequest(ctx context.Context, db *gorm.DB, id, studentID string, p RequestPatch) error {
	fields := map[string]any{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.AmountRequested != nil {
		fields["amount_requested"] = *p.AmountRequested
	}
	if p.Deadline != nil {
		fields["deadline"] = *p.Deadline
	}
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.Title != nil || p.Description != nil {
			cur, err := GetOwnedRequest(ctx, tx, id, studentID)
			if err != nil {
				return err
			}
			title, desc := cur.Title, cur.Description
			if p.Title != nil {
				title = *p.Title
			}
			if p.Description != nil {
				desc = *p.Description
			}
			fields["search_text"] = search.Document(title, desc)
		}
		res := tx.Model(&domain.Request{}).
			Where("id = ? AND student_id = ? AND amount_funded = 0", id, studentID).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return lockedOrMissing(ctx, tx, id, studentID)
		}
		return nil
	})
}

// backfillSearchText fills the search text of rows written before the
// column existed.
func backfillSearchText(db *gorm.DB) error {
	var batch []domain.Request
	w := db.Session(&gorm.Session{NewDB: true})
	return db.Select("id", "title", "description").
		Where("search_text = ''").
		FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
			for _, r := range batch {
				err := w.Model(&domain.Request{}).
					Where("id = ?", r.ID).
					UpdateColumn("search_text", search.Document(r.Title, r.Description)).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// DeleteUnfundedRequest removes the owned request while it is still unfunded.
func DeleteUnfundedRequest(ctx context.Context, db *gorm.DB, id, studentID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND student_id = ? AND amount_funded = 0", id, studentID).
		Delete(&domain.Request{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lockedOrMissing(ctx, db, id, studentID)
	}
	return nil
}

// FundRequest adds amount to an open request in a single UPDATE and flips it
// to funded once the target is reached. Both assignments read the pre-update
// row, so concurrent callers never lose an increment. A request that is
// missing or no longer open yields ErrNotFound.
func FundRequest(ctx context.Context, db *gorm.DB, id string, amount int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, domain.StatusOpen).
		Updates(map[string]any{
			"amount_funded": gorm.Expr("amount_funded + ?", amount),
			"status": gorm.Expr("CASE WHEN amount_funded + ? >= amount_requested THEN ? ELSE status END",
				amount, domain.StatusFunded),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func lockedOrMissing(ctx context.Context, db *gorm.DB, id, studentID string) error {
	if _, err := GetOwnedRequest(ctx, db, id, studentID); err != nil {
		return err
	}
	return ErrLocked
}
