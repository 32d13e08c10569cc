package billing

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription is the read-through copy of a tenant's billing state.
// The billing provider owns the records; the console only displays and
// retags plans.
type Subscription struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	TenantID  uuid.UUID          `json:"tenant_id" db:"tenant_id"`
	Plan      string             `json:"plan" db:"plan"`
	Status    SubscriptionStatus `json:"status" db:"status"`
	Seats     int                `json:"seats" db:"seats"`
	MRRCents  int64              `json:"mrr_cents" db:"mrr_cents"`
	RenewsAt  *time.Time         `json:"renews_at,omitempty" db:"renews_at"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`
}

type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceOpen  InvoiceStatus = "open"
	InvoicePaid  InvoiceStatus = "paid"
	InvoiceVoid  InvoiceStatus = "void"
)

type Invoice struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	TenantID    uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	Number      string        `json:"number" db:"number"`
	AmountCents int64         `json:"amount_cents" db:"amount_cents"`
	Currency    string        `json:"currency" db:"currency"`
	Status      InvoiceStatus `json:"status" db:"status"`
	IssuedAt    time.Time     `json:"issued_at" db:"issued_at"`
	PaidAt      *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
}

// PlanShare is one slice of the plan distribution chart
type PlanShare struct {
	Plan     string  `json:"plan"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
	MRRCents int64   `json:"mrr_cents"`
}
