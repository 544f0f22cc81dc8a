/**
 * @description
 * This file defines the domain models for events published to the message
 * broker (RabbitMQ). Downstream consumers (notification workers, audit) use
 * these payloads to deliver WhatsApp messages and record activity.
 *
 * @notes
 * - Message delivery is fire-and-forget: a publish failure never reverses a
 *   committed member or payment row.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemberRegisteredEvent is published after a member registration commits. It
// carries the composed welcome message and the WhatsApp deep link so a
// consumer can deliver it without recomputing anything.
type MemberRegisteredEvent struct {
	MemberID         uuid.UUID `json:"member_id"`
	AssignmentNumber string    `json:"assignment_number"`
	FullName         string    `json:"full_name"`
	PhoneNumber      string    `json:"phone_number"`
	Message          string    `json:"message"`
	WhatsAppLink     string    `json:"whatsapp_link"`
	Timestamp        time.Time `json:"timestamp"`
}

// MembershipRenewedEvent is published after a manual renewal commits.
type MembershipRenewedEvent struct {
	MemberID      uuid.UUID `json:"member_id"`
	MembershipEnd string    `json:"membership_end"`
	Timestamp     time.Time `json:"timestamp"`
}

// MembershipRenewalDueEvent is published by the reminder job for members
// whose membership expires within the configured window.
type MembershipRenewalDueEvent struct {
	MemberID      uuid.UUID `json:"member_id"`
	FullName      string    `json:"full_name"`
	PhoneNumber   string    `json:"phone_number"`
	MembershipEnd string    `json:"membership_end"`
	DaysRemaining int       `json:"days_remaining"`
	Message       string    `json:"message"`
	WhatsAppLink  string    `json:"whatsapp_link"`
	Timestamp     time.Time `json:"timestamp"`
}
