// Package domain defines the persistence models for users, funding requests,
// donations, and payments. These types are mapped with GORM and form the core
// data layer of the crowdfunding application.
package domain

import (
	"math"
	"time"
)

// Role is the immutable role of a user; it decides route access.
type Role string

// Known roles.
const (
	RoleStudent Role = "student"
	RoleDonor   Role = "donor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleDonor, RoleAdmin:
		return true
	}
	return false
}

// Room returns the notification topic for the role ("students", "donors", ...).
func (r Role) Room() string { return string(r) + "s" }

// RequestStatus is the lifecycle state of a funding request.
type RequestStatus string

const (
	StatusOpen   RequestStatus = "open"
	StatusFunded RequestStatus = "funded"
	StatusClosed RequestStatus = "closed"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// User is a registered student, donor, or admin. The role is fixed at
// creation; no code path updates it.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Email: unique login identifier, stored lower-cased.
//   - PasswordHash: bcrypt hash, never serialized.
//   - Role: student|donor|admin (enforced by DB constraint).
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name"       gorm:"type:varchar(255);not null"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	Role         Role      `json:"role"       gorm:"type:varchar(16);not null;index;check:role IN ('student','donor','admin')"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Request is a funding request owned by exactly one student.
//
// AmountFunded only grows, and only through a recorded donation. Once it is
// above zero the owner can no longer edit or delete the request.
type Request struct {
	ID              string        `json:"id"               gorm:"type:char(36);primaryKey"`
	StudentID       string        `json:"student_id"       gorm:"type:char(36);not null;index:idx_student_requests,priority:1"`
	Title           string        `json:"title"            gorm:"type:varchar(255);not null"`
	Description     string        `json:"description"      gorm:"type:text;not null"`
	AmountRequested int64         `json:"amount_requested" gorm:"not null;check:amount_requested > 0"`
	AmountFunded    int64         `json:"amount_funded"    gorm:"not null;default:0;check:amount_funded >= 0"`
	Deadline        *time.Time    `json:"deadline,omitempty"`
	Status          RequestStatus `json:"status"           gorm:"type:varchar(16);not null;default:'open';index:idx_status_created,priority:1;check:status IN ('open','funded','closed')"`
	CreatedAt       time.Time     `json:"created_at"       gorm:"index:idx_student_requests,priority:2;index:idx_status_created,priority:2"`
	UpdatedAt       time.Time     `json:"updated_at"`

	// SearchText is the case-folded title and description matched by donor
	// search. It is maintained by the repository on every write.
	SearchText string `json:"-" gorm:"type:text;not null;default:''"`

	// Student is the owner. Requests are removed with their owner.
	Student User `json:"-" gorm:"foreignKey:StudentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Request.
func (Request) TableName() string { return "requests" }

// Progress is round(funded/requested*100) clamped to [0,100].
func (r Request) Progress() int {
	if r.AmountRequested <= 0 {
		return 0
	}
	p := int(math.Round(float64(r.AmountFunded) / float64(r.AmountRequested) * 100))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Editable reports whether the owner may still edit or delete the request.
func (r Request) Editable() bool { return r.AmountFunded == 0 }

// Donation is an immutable ledger entry of a donor funding a request.
type Donation struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	DonorID   string    `json:"donor_id"   gorm:"type:char(36);not null;index:idx_donor_donations,priority:1"`
	RequestID string    `json:"request_id" gorm:"type:char(36);not null;index"`
	Amount    int64     `json:"amount"     gorm:"not null;check:amount > 0"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_donor_donations,priority:2"`

	Donor   User    `json:"-" gorm:"foreignKey:DonorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Request Request `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Donation.
func (Donation) TableName() string { return "donations" }

// Payment settles a donation (1:1). Processing is simulated, so payments are
// recorded as completed.
type Payment struct {
	ID            string        `json:"id"             gorm:"type:char(36);primaryKey"`
	DonationID    string        `json:"donation_id"    gorm:"type:char(36);not null;uniqueIndex:ux_payment_donation"`
	Provider      string        `json:"provider"       gorm:"type:varchar(32);not null;default:'manual'"`
	Status        PaymentStatus `json:"status"         gorm:"type:varchar(16);not null;check:status IN ('pending','completed','failed')"`
	TransactionID string        `json:"transaction_id" gorm:"type:varchar(64)"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Donation Donation `json:"-" gorm:"foreignKey:DonationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Payment.
func (Payment) TableName() string { return "payments" }
