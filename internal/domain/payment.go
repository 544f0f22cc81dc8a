/**
 * @description
 * This file defines the payment domain models. A payment records one
 * financial transaction tied to a member; rows are created once and never
 * updated afterwards.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment methods accepted at the front desk.
const (
	PaymentMethodCash = "cash"
	PaymentMethodUPI  = "upi"
)

// Payment represents one financial transaction tied to a member.
// This struct maps directly to the `payments` table in the database.
type Payment struct {
	ID            uuid.UUID `json:"id"`
	MemberID      uuid.UUID `json:"member_id"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	PaymentDate   string    `json:"payment_date"`
	Notes         *string   `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     *string   `json:"created_by,omitempty"`
}

// PaymentStats aggregates the current calendar month's payments for the
// dashboard: total revenue plus a per-method breakdown.
type PaymentStats struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalPayments int     `json:"total_payments"`
	CashPayments  int     `json:"cash_payments"`
	UPIPayments   int     `json:"upi_payments"`
}
