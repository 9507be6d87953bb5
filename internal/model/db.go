package model

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type OrderStatus string

const (
	OrderPending       OrderStatus = "pending"
	OrderConfirmed     OrderStatus = "confirmed"
	OrderPaymentFailed OrderStatus = "payment_failed"
	OrderCancelled     OrderStatus = "cancelled"
)

// MetadataOrderID is the metadata key every intent carries so webhooks can
// locate the order.
const MetadataOrderID = "order_id"

type Order struct {
	ID              string            `gorm:"primaryKey;size:64;not null"`
	CustomerID      string            `gorm:"size:255;index"` // customer email
	AmountMinor     int64             `gorm:"not null"`
	Currency        string            `gorm:"size:8;not null"`
	PaymentStatus   PaymentStatus     `gorm:"size:16;index;not null"`
	OrderStatus     OrderStatus       `gorm:"size:16;index;not null"`
	IntentID        string            `gorm:"size:128;index"`
	PaymentMethodID string            `gorm:"size:128"`
	FailureReason   string            `gorm:"size:255"`
	Metadata        datatypes.JSONMap `gorm:"type:json"`
	PaidAt          *time.Time
	Version         int64  `gorm:"not null;default:0"` // compare-and-set guard
	LastEventID     string `gorm:"size:128"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Customer struct {
	ID                     string `gorm:"primaryKey;size:255;not null"` // email
	Name                   string `gorm:"size:255"`
	BillingID              string `gorm:"size:128;uniqueIndex"` // processor customer id
	DefaultPaymentMethodID string `gorm:"size:128"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// CustomerPaymentMethod and CustomerSubscription are set-membership rows;
// the composite key makes add/remove single-row idempotent writes.
type CustomerPaymentMethod struct {
	CustomerID      string `gorm:"primaryKey;size:255;not null"`
	PaymentMethodID string `gorm:"primaryKey;size:128;not null"`
	CreatedAt       time.Time
}

type CustomerSubscription struct {
	CustomerID     string `gorm:"primaryKey;size:255;not null"`
	SubscriptionID string `gorm:"primaryKey;size:128;index;not null"`
	CreatedAt      time.Time
}

type SubscriptionStatus string

const (
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
)

type Subscription struct {
	ID                 string             `gorm:"primaryKey;size:128;not null"`
	CustomerID         string             `gorm:"size:128;index"` // processor billing id
	PriceID            string             `gorm:"size:128"`
	Status             SubscriptionStatus `gorm:"size:32;index;not null"`
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool `gorm:"not null;default:false"`
	CanceledAt         *time.Time
	SourceEventAt      time.Time `gorm:"not null"` // creation time of the last applied event
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SnapshotFloor is the SourceEventAt of a row no processor event has
// touched yet. Any webhook snapshot supersedes it.
var SnapshotFloor = time.Unix(0, 0).UTC()

// PaymentEvent is the webhook dedup ledger. A row per processor event id.
type PaymentEvent struct {
	EventID      string         `gorm:"primaryKey;size:128;not null"`
	EventType    string         `gorm:"size:64;index"`
	Payload      datatypes.JSON `gorm:"type:json"`
	ReceivedAt   time.Time      `gorm:"index;not null"`
	ProcessedAt  *time.Time
	ProcessError *string `gorm:"size:255"`
}

type PaymentSource string

const (
	SourceConfirm PaymentSource = "confirm"
	SourceWebhook PaymentSource = "webhook"
	SourceOrphan  PaymentSource = "orphan"
)

// Payment records one succeeded intent; unique on intent id.
type Payment struct {
	ID          string        `gorm:"primaryKey;size:36;not null"`
	OrderID     string        `gorm:"size:64;index;not null"`
	IntentID    string        `gorm:"size:128;uniqueIndex;not null"`
	AmountMinor int64         `gorm:"not null"`
	Currency    string        `gorm:"size:8;not null"`
	Source      PaymentSource `gorm:"size:16;not null"`
	CreatedAt   time.Time
}

// OrphanPayment holds a succeeded payment whose order was not persisted yet.
type OrphanPayment struct {
	IntentID        string `gorm:"primaryKey;size:128;not null"`
	OrderID         string `gorm:"size:64;index"` // from intent metadata, may be empty
	AmountMinor     int64  `gorm:"not null"`
	Currency        string `gorm:"size:8;not null"`
	PaymentMethodID string `gorm:"size:128"`
	EventID         string `gorm:"size:128"`
	ReceivedAt      time.Time
	LinkedOrderID   *string `gorm:"size:64"`
	LinkedAt        *time.Time
}

func AllModels() []any {
	return []any{
		&Order{},
		&Customer{},
		&CustomerPaymentMethod{},
		&CustomerSubscription{},
		&Subscription{},
		&PaymentEvent{},
		&Payment{},
		&OrphanPayment{},
	}
}
