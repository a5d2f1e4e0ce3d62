package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CommissionStatusPending    = "pending"
	CommissionStatusAvailable  = "available"
	CommissionStatusProcessing = "processing"
	CommissionStatusPaid       = "paid"
)

// Commission is a ledger entry: money owed to a referrer for one
// referral event. Amounts are minor currency units (cents).
//
// A settlement may split a record: the original keeps the residual
// amount and stays available, the consumed part is inserted as a new
// processing record. Records in processing or paid are never re-split.
type Commission struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ReferralID uuid.UUID
	Amount     int64
	Status     string

	// WithdrawalID is set once consumption begins.
	WithdrawalID *uuid.UUID

	// Seq is a server-assigned insertion sequence. Settlement consumes
	// records ordered by (CreatedAt, Seq) so FIFO order stays defined
	// even when creation timestamps collide.
	Seq       int64
	CreatedAt time.Time
	PaidAt    *time.Time
}
