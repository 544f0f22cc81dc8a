/**
 * @description
 * Scheduled jobs for the membership service. The renewal reminder job finds
 * active members whose membership expires within the configured window and
 * publishes a reminder event carrying the composed WhatsApp message and deep
 * link for each.
 */

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/PawanLambole/haji-fitness-point/internal/domain"
	"github.com/PawanLambole/haji-fitness-point/internal/store"
	"github.com/PawanLambole/haji-fitness-point/pkg/whatsapp"
)

// Jobs holds the dependencies for scheduled work.
type Jobs struct {
	repo         store.Repository
	events       EventPublisher
	logger       *slog.Logger
	reminderDays int
	now          func() time.Time
}

// NewJobs creates the job runner. reminderDays is how far ahead of expiry
// reminders are sent.
func NewJobs(repo store.Repository, events EventPublisher, logger *slog.Logger, reminderDays int) *Jobs {
	if reminderDays <= 0 {
		reminderDays = 7
	}
	return &Jobs{
		repo:         repo,
		events:       events,
		logger:       logger,
		reminderDays: reminderDays,
		now:          time.Now,
	}
}

// ProcessRenewalReminders publishes a renewal-due event for every active
// member expiring within the reminder window. Event delivery is best-effort;
// one failed publish does not stop the rest of the batch.
func (j *Jobs) ProcessRenewalReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := j.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.Format(DateLayout)
	to := today.AddDate(0, 0, j.reminderDays).Format(DateLayout)

	members, err := j.repo.ListMembersExpiringBetween(ctx, from, to)
	if err != nil {
		j.logger.Error("renewal reminder scan failed", "error", err)
		return
	}
	if len(members) == 0 {
		return
	}

	published := 0
	for _, m := range members {
		end, err := time.Parse(DateLayout, m.MembershipEnd)
		if err != nil {
			j.logger.Warn("skipping reminder for member with invalid end date", "member_id", m.ID, "membership_end", m.MembershipEnd)
			continue
		}
		daysRemaining := int(end.Sub(today).Hours() / 24)

		message := whatsapp.RenewalReminderMessage(m.FullName, m.MembershipEnd, daysRemaining)
		event := domain.MembershipRenewalDueEvent{
			MemberID:      m.ID,
			FullName:      m.FullName,
			PhoneNumber:   m.PhoneNumber,
			MembershipEnd: m.MembershipEnd,
			DaysRemaining: daysRemaining,
			Message:       message,
			WhatsAppLink:  whatsapp.Link(m.PhoneNumber, message),
			Timestamp:     now,
		}
		if err := j.events.PublishRenewalDue(ctx, event); err != nil {
			j.logger.Warn("renewal reminder publish failed", "member_id", m.ID, "error", err)
			continue
		}
		published++
	}

	j.logger.Info("renewal reminders processed", "candidates", len(members), "published", published)
}
