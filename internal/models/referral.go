package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReferralStatusPending  = "pending"
	ReferralStatusActive   = "active"
	ReferralStatusInactive = "inactive"
)

// Referral is the edge between a referrer and the user they brought in.
// At most one edge may exist per (referrer, referred) pair.
type Referral struct {
	ID             uuid.UUID
	ReferrerID     uuid.UUID
	ReferredUserID uuid.UUID
	Status         string
	CreatedAt      time.Time
}
