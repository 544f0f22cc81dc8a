/**
 * @description
 * This file defines the core domain models for the membership service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Membership dates travel as `YYYY-MM-DD` strings end to end, matching the
 *   mobile client's forms and the DATE columns in the database. Parsing and
 *   validation of those strings is owned by the lifecycle calculator.
 * - Amounts are rupee values stored as float64, mirroring the numeric columns
 *   the gym's existing data already uses.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// MembershipStatus is the derived state of a membership, combining the stored
// active flag with a date comparison against the current day.
type MembershipStatus string

const (
	StatusActive  MembershipStatus = "active"
	StatusExpired MembershipStatus = "expired"
)

// Member represents one gym membership contract.
// This struct maps directly to the `members` table in the database.
type Member struct {
	ID               uuid.UUID `json:"id"`
	AssignmentNumber string    `json:"assignment_number"`
	FullName         string    `json:"full_name"`
	PhoneNumber      string    `json:"phone_number"`
	JoiningDate      string    `json:"joining_date"`
	MembershipStart  string    `json:"membership_start"`
	MembershipEnd    string    `json:"membership_end"`
	TotalAmount      float64   `json:"total_amount"`
	DiscountAmount   float64   `json:"discount_amount"`
	PhotoURL         *string   `json:"photo_url,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	CreatedBy        *string   `json:"created_by,omitempty"`
}

// MemberDraft is the DTO for registering a new member.
// AssignmentNumber is optional; when empty the allocator generates one.
type MemberDraft struct {
	AssignmentNumber string  `json:"assignment_number"`
	FullName         string  `json:"full_name"`
	PhoneNumber      string  `json:"phone_number"`
	JoiningDate      string  `json:"joining_date"`
	MembershipStart  string  `json:"membership_start"`
	MembershipEnd    string  `json:"membership_end"`
	TotalAmount      float64 `json:"total_amount"`
	DiscountAmount   float64 `json:"discount_amount"`
	PhotoURL         *string `json:"photo_url,omitempty"`
	PaymentMethod    string  `json:"payment_method"` // 'cash' or 'upi'
	PlanID           string  `json:"plan_id,omitempty"`
	PlanMode         bool    `json:"plan_mode"`
}

// MemberPatch is the DTO for partial member updates. Nil fields are left
// untouched by the store. PhotoURL set to the empty string clears the stored
// photo (the column goes to NULL).
type MemberPatch struct {
	AssignmentNumber *string  `json:"assignment_number,omitempty"`
	FullName         *string  `json:"full_name,omitempty"`
	PhoneNumber      *string  `json:"phone_number,omitempty"`
	JoiningDate      *string  `json:"joining_date,omitempty"`
	MembershipStart  *string  `json:"membership_start,omitempty"`
	MembershipEnd    *string  `json:"membership_end,omitempty"`
	TotalAmount      *float64 `json:"total_amount,omitempty"`
	DiscountAmount   *float64 `json:"discount_amount,omitempty"`
	PhotoURL         *string  `json:"photo_url,omitempty"`
	IsActive         *bool    `json:"is_active,omitempty"`
}

// MemberFilters describes the active filter set for a member listing: a
// free-text search matched against name, assignment number and phone, and an
// optional active-only switch.
type MemberFilters struct {
	Search   string `json:"search,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// MemberProfile decorates a member with display-only data for the detail
// screen: the derived status and the most recent payment method.
type MemberProfile struct {
	Member
	Status              MembershipStatus `json:"status"`
	RecentPaymentMethod string           `json:"recent_payment_method"`
}
