/**
 * @description
 * This package composes the WhatsApp messages the gym sends to members and
 * the wa.me deep links used to dispatch them. Opening the link is the
 * client's job; composing it here keeps the templates and phone number
 * normalization in one place.
 */

package whatsapp

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const countryCode = "91"

var nonDigits = regexp.MustCompile(`\D`)

// NormalizeNumber strips non-digit characters and prefixes the Indian
// country code when it is missing.
func NormalizeNumber(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	if strings.HasPrefix(digits, countryCode) && len(digits) > 10 {
		return digits
	}
	return countryCode + digits
}

// Link builds a wa.me deep link that opens a chat with the given number and
// the message pre-filled.
func Link(phone, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", NormalizeNumber(phone), url.QueryEscape(message))
}

// MembershipMessage is the welcome message sent after registration.
func MembershipMessage(memberName, startDate, endDate, assignmentNumber string) string {
	return fmt.Sprintf(`🏋️‍♂️ Welcome to HAJI FITNESS POINT! 🏋️‍♂️

Hi %s,

Your gym membership has been activated!

📋 Assignment Number: %s
📅 Membership Period: %s to %s

We're excited to have you on your fitness journey with us. Our team is here to support you every step of the way.

For any queries, feel free to contact us.

Stay Strong! 💪
HAJI FITNESS POINT Team`, memberName, assignmentNumber, startDate, endDate)
}

// RenewalReminderMessage is sent ahead of membership expiry.
func RenewalReminderMessage(memberName, endDate string, daysRemaining int) string {
	return fmt.Sprintf(`🏋️‍♂️ HAJI FITNESS POINT - Membership Reminder 🏋️‍♂️

Hi %s,

Your gym membership expires on %s (%d days remaining).

To continue your fitness journey without interruption, please renew your membership soon.

Contact us for renewal options.

Stay Strong! 💪
HAJI FITNESS POINT Team`, memberName, endDate, daysRemaining)
}
