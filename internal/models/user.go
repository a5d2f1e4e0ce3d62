package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Email       string
	DisplayName string

	// Code the user shares to attribute sign-ups to themselves.
	// Empty until the first issuance.
	ReferralCode string

	// Denormalized counters. Written only through atomic repository
	// updates, never read-modify-write.
	TotalReferrals int64
	Balance        int64
}
