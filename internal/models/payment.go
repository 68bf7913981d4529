package models

import "time"

// InvoicePayment is a running balance, not a ledger: at most one row
// per invoice, and recording a new payment replaces the previous one.
// AmountPaid is capped at the invoice grand total on save.
type InvoicePayment struct {
	ID            uint      `gorm:"primaryKey"`
	InvoiceID     uint      `gorm:"uniqueIndex;not null"`
	AmountPaid    float64   `gorm:"not null;default:0"`
	PaymentDate   time.Time `gorm:"not null"`
	PaymentMethod string    `gorm:"size:64;default:Cash"`
	Notes         string    `gorm:"size:1024"`
	CreatedAt     time.Time
}

// PaymentStatusFor derives the tri-state payment status from the
// cumulative amount paid against the grand total.
func PaymentStatusFor(amountPaid, grandTotal float64) string {
	if amountPaid == 0 {
		return "unpaid"
	}
	if amountPaid >= grandTotal {
		return "paid"
	}
	return "pending"
}
