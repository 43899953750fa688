// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file records donations together with their payment
// and funding increment.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/edupay/internal/domain"
)

// paymentProvider is the only provider: payments are simulated and settle
// immediately.
const paymentProvider = "manual"

// RecordDonation funds requestID with amount and writes the Donation and its
// completed Payment in one transaction. The funding UPDATE runs first so
// SQLite takes the write lock before any read (busy_timeout then applies
// instead of a lock-upgrade failure).
//
// It returns the donation and the request as it stands after the increment,
// with its owner preloaded. A request that is missing or not open yields
// ErrNotFound and nothing is written.
func RecordDonation(ctx context.Context, db *gorm.DB, donorID, requestID string, amount int64) (*domain.Donation, *domain.Request, error) {
	var (
		don *domain.Donation
		req domain.Request
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := FundRequest(ctx, tx, requestID, amount); err != nil {
			return err
		}

		now := time.Now().UTC()
		don = &domain.Donation{
			ID:        uuid.NewString(),
			DonorID:   donorID,
			RequestID: requestID,
			Amount:    amount,
			CreatedAt: now,
		}
		if err := tx.Create(don).Error; err != nil {
			return err
		}

		pay := &domain.Payment{
			ID:            uuid.NewString(),
			DonationID:    don.ID,
			Provider:      paymentProvider,
			Status:        domain.PaymentCompleted,
			TransactionID: "txn_" + uuid.NewString(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Create(pay).Error; err != nil {
			return err
		}

		return tx.Preload("Student").Where("id = ?", requestID).First(&req).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return don, &req, nil
}

// GetDonation fetches a donation by id.
func GetDonation(ctx context.Context, db *gorm.DB, id string) (*domain.Donation, error) {
	var d domain.Donation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// CountDonationsByDonor counts donorID's donations.
func CountDonationsByDonor(ctx context.Context, db *gorm.DB, donorID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Donation{}).Where("donor_id = ?", donorID).Count(&n).Error
	return n, err
}

// ListDonationsByDonorPage returns one page of donorID's donations, newest
// first. The id breaks ties between donations of the same instant so pages
// never overlap.
func ListDonationsByDonorPage(ctx context.Context, db *gorm.DB, donorID string, offset, limit int) ([]domain.Donation, error) {
	var out []domain.Donation
	err := db.WithContext(ctx).
		Preload("Request").
		Where("donor_id = ?", donorID).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListDonations returns all donations with donor and request, newest first.
func ListDonations(ctx context.Context, db *gorm.DB) ([]domain.Donation, error) {
	var out []domain.Donation
	err := db.WithContext(ctx).
		Preload("Donor").
		Preload("Request").
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetPaymentForDonation returns the settlement record of a donation.
func GetPaymentForDonation(ctx context.Context, db *gorm.DB, donationID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := db.WithContext(ctx).Where("donation_id = ?", donationID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
