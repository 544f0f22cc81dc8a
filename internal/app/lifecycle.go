/**
 * @description
 * This file contains the membership lifecycle calculator: date parsing and
 * validation, plan-based end date derivation, renewal math, derived
 * active/expired status, and the pre-persistence validation rules for member
 * drafts and updates.
 *
 * @notes
 * - Dates are `YYYY-MM-DD` strings throughout (see internal/domain).
 * - Month addition uses an explicit clamp-to-month-end policy:
 *   2024-01-31 + 1 month = 2024-02-29. Go's time.AddDate would silently
 *   normalize that to March 2nd, which is not what a membership term means.
 */

package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PawanLambole/haji-fitness-point/internal/domain"
)

// DateLayout is the wire format for all membership dates.
const DateLayout = "2006-01-02"

var dateStringPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// IsValidDate reports whether s is a strict YYYY-MM-DD string naming a real
// calendar date with a year between 1900 and 2100.
func IsValidDate(s string) bool {
	m := dateStringPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if year < 1900 || year > 2100 {
		return false
	}
	if month < 1 || month > 12 {
		return false
	}
	if day < 1 || day > 31 {
		return false
	}
	// time.Parse rejects impossible dates like 2023-02-29.
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// AddMonths adds calendar months to a YYYY-MM-DD date, clamping the day to
// the end of the target month when the source day does not exist there.
func AddMonths(date string, months int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}

	year := t.Year()
	month := int(t.Month()) - 1 + months
	year += month / 12
	month = month % 12
	if month < 0 {
		month += 12
		year--
	}
	targetMonth := time.Month(month + 1)

	day := t.Day()
	if last := daysInMonth(year, targetMonth); day > last {
		day = last
	}

	return time.Date(year, targetMonth, day, 0, 0, 0, 0, time.UTC).Format(DateLayout), nil
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ComputeStatus derives the membership status from the stored active flag and
// the end date, compared against now at day precision. A membership ending
// today is still active.
func ComputeStatus(now time.Time, end string, activeFlag bool) domain.MembershipStatus {
	if !activeFlag {
		return domain.StatusExpired
	}
	endDate, err := time.Parse(DateLayout, end)
	if err != nil {
		return domain.StatusExpired
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if endDate.Before(today) {
		return domain.StatusExpired
	}
	return domain.StatusActive
}

// ApplyPlan resolves a plan from the static catalog and returns the derived
// end date and the plan's fixed price. It is re-invoked whenever the start
// date changes while a plan remains selected.
func ApplyPlan(planID, start string) (endDate string, totalAmount float64, err error) {
	plan, err := domain.FindPlan(planID)
	if err != nil {
		return "", 0, err
	}
	endDate, err = AddMonths(start, plan.DurationMonths)
	if err != nil {
		return "", 0, err
	}
	return endDate, plan.Price, nil
}

// RenewEndDate extends a membership end date by the given number of calendar
// months. Renewal touches nothing else.
func RenewEndDate(end string, extraMonths int) (string, error) {
	return AddMonths(end, extraMonths)
}

// FinalAmount is the payable amount: total minus discount, floored at zero.
// A payment record is created iff this is positive.
func FinalAmount(total, discount float64) float64 {
	final := total - discount
	if final < 0 {
		return 0
	}
	return final
}

var nonDigits = regexp.MustCompile(`\D`)

// DigitsOnly strips every non-digit character from a phone number.
func DigitsOnly(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// ValidateDraft applies the registration validation policy. It runs before
// any persistence call; a failure here never reaches the backend.
func ValidateDraft(d domain.MemberDraft) error {
	if strings.TrimSpace(d.FullName) == "" {
		return NewValidationError("Full name is required")
	}
	if strings.TrimSpace(d.PhoneNumber) == "" {
		return NewValidationError("Phone number is required")
	}
	if len(DigitsOnly(d.PhoneNumber)) < 10 {
		return NewValidationError("Please enter a valid phone number (at least 10 digits)")
	}
	if d.PlanMode && d.PlanID == "" {
		return NewValidationError("Please select a membership plan")
	}
	if !d.PlanMode && strings.TrimSpace(d.MembershipEnd) == "" {
		return NewValidationError("Membership end date is required in manual mode")
	}
	if err := validateAmounts(d.TotalAmount, d.DiscountAmount); err != nil {
		return err
	}
	if !IsValidDate(d.JoiningDate) {
		return NewValidationError("Please enter a valid joining date (YYYY-MM-DD)")
	}
	if !IsValidDate(d.MembershipStart) {
		return NewValidationError("Please enter a valid membership start date (YYYY-MM-DD)")
	}
	if !d.PlanMode && !IsValidDate(d.MembershipEnd) {
		return NewValidationError("Please enter a valid membership end date (YYYY-MM-DD)")
	}
	if d.PlanMode && d.MembershipEnd != "" && !IsValidDate(d.MembershipEnd) {
		return NewValidationError("Calculated membership end date is invalid. Please check the plan or start date.")
	}
	if d.MembershipEnd != "" && d.MembershipEnd < d.MembershipStart {
		return NewValidationError("Membership end date cannot be before the start date")
	}
	if d.PaymentMethod != domain.PaymentMethodCash && d.PaymentMethod != domain.PaymentMethodUPI {
		return NewValidationError("Payment method must be cash or upi")
	}
	return nil
}

// ValidatePatch validates a partial update against the member's current
// state, so cross-field rules (discount vs. total, end vs. start) hold for
// the merged result.
func ValidatePatch(current domain.Member, patch domain.MemberPatch) error {
	merged := current
	if patch.FullName != nil {
		merged.FullName = *patch.FullName
	}
	if patch.PhoneNumber != nil {
		merged.PhoneNumber = *patch.PhoneNumber
	}
	if patch.JoiningDate != nil {
		merged.JoiningDate = *patch.JoiningDate
	}
	if patch.MembershipStart != nil {
		merged.MembershipStart = *patch.MembershipStart
	}
	if patch.MembershipEnd != nil {
		merged.MembershipEnd = *patch.MembershipEnd
	}
	if patch.TotalAmount != nil {
		merged.TotalAmount = *patch.TotalAmount
	}
	if patch.DiscountAmount != nil {
		merged.DiscountAmount = *patch.DiscountAmount
	}

	if patch.AssignmentNumber != nil && strings.TrimSpace(*patch.AssignmentNumber) == "" {
		return NewValidationError("Assignment number cannot be empty")
	}
	if strings.TrimSpace(merged.FullName) == "" {
		return NewValidationError("Full name is required")
	}
	if strings.TrimSpace(merged.PhoneNumber) == "" {
		return NewValidationError("Phone number is required")
	}
	if len(DigitsOnly(merged.PhoneNumber)) < 10 {
		return NewValidationError("Please enter a valid phone number (at least 10 digits)")
	}
	if err := validateAmounts(merged.TotalAmount, merged.DiscountAmount); err != nil {
		return err
	}
	if !IsValidDate(merged.JoiningDate) {
		return NewValidationError("Please enter a valid joining date (YYYY-MM-DD)")
	}
	if !IsValidDate(merged.MembershipStart) {
		return NewValidationError("Please enter a valid membership start date (YYYY-MM-DD)")
	}
	if !IsValidDate(merged.MembershipEnd) {
		return NewValidationError("Please enter a valid membership end date (YYYY-MM-DD)")
	}
	if merged.MembershipEnd < merged.MembershipStart {
		return NewValidationError("Membership end date cannot be before the start date")
	}
	return nil
}

func validateAmounts(total, discount float64) error {
	if discount > total {
		return NewValidationError("Discount amount cannot be greater than total amount")
	}
	if total < 0 || discount < 0 {
		return NewValidationError("Amounts cannot be negative")
	}
	return nil
}
