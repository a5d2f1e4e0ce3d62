package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	WithdrawalStatusPending = "pending"
	WithdrawalStatusPaid    = "paid"
)

// PayoutDetails is an opaque destination for the payout processor.
// The ledger only checks that every field is present.
type PayoutDetails struct {
	BankName       string
	AccountType    string
	AccountNumber  string
	BranchNumber   string
	HolderName     string
	HolderDocument string
}

// Complete reports whether all payout fields are filled in.
func (d PayoutDetails) Complete() bool {
	return d.BankName != "" &&
		d.AccountType != "" &&
		d.AccountNumber != "" &&
		d.BranchNumber != "" &&
		d.HolderName != "" &&
		d.HolderDocument != ""
}

type Withdrawal struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Amount        int64
	PayoutDetails PayoutDetails
	Status        string
	CreatedAt     time.Time
}
