/**
 * @description
 * This file contains the core business logic for the membership service. The
 * service layer orchestrates the registration flow, member updates, renewal,
 * photo handling and payment queries, sitting between the HTTP handlers and
 * the repository.
 *
 * @notes
 * - Registration runs its sub-steps strictly in sequence: validate ->
 *   allocate -> persist member -> persist payment -> compose and publish the
 *   welcome notification. A failure before the member row commits aborts the
 *   whole action; a failure after it is reported as a warning so the UI does
 *   not imply total failure when the primary record succeeded.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PawanLambole/haji-fitness-point/internal/domain"
	"github.com/PawanLambole/haji-fitness-point/internal/store"
	"github.com/PawanLambole/haji-fitness-point/pkg/whatsapp"
)

// ObjectStore is the interface the service needs from binary object storage.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) (publicURL string, err error)
	DeleteObject(ctx context.Context, key string) error
}

// EventPublisher is the interface the service needs from the message broker.
// Publishing is fire-and-forget with respect to committed rows.
type EventPublisher interface {
	PublishMemberRegistered(ctx context.Context, event domain.MemberRegisteredEvent) error
	PublishMembershipRenewed(ctx context.Context, event domain.MembershipRenewedEvent) error
	PublishRenewalDue(ctx context.Context, event domain.MembershipRenewalDueEvent) error
}

// RegisterResult is the outcome of a member registration. Warnings report
// sub-steps that failed after the member row committed.
type RegisterResult struct {
	Member       *domain.Member  `json:"member"`
	Payment      *domain.Payment `json:"payment,omitempty"`
	Message      string          `json:"message"`
	WhatsAppLink string          `json:"whatsapp_link"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// MemberService provides the business logic for membership management.
type MemberService struct {
	repo      store.Repository
	allocator *AssignmentAllocator
	objects   ObjectStore
	events    EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewMemberService creates a new membership service.
func NewMemberService(repo store.Repository, allocator *AssignmentAllocator, objects ObjectStore, events EventPublisher, logger *slog.Logger) *MemberService {
	return &MemberService{
		repo:      repo,
		allocator: allocator,
		objects:   objects,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterMember runs the full registration flow for a new member.
func (s *MemberService) RegisterMember(ctx context.Context, creatorID string, draft domain.MemberDraft) (*RegisterResult, error) {
	if creatorID == "" {
		return nil, ErrUnauthorized
	}

	if draft.JoiningDate == "" {
		draft.JoiningDate = s.now().Format(DateLayout)
	}
	if draft.MembershipStart == "" {
		draft.MembershipStart = s.now().Format(DateLayout)
	}
	if draft.PaymentMethod == "" {
		draft.PaymentMethod = domain.PaymentMethodCash
	}

	// In plan mode the amount and end date always derive from the catalog,
	// whatever the client sent.
	if draft.PlanMode && draft.PlanID != "" && IsValidDate(draft.MembershipStart) {
		end, total, err := ApplyPlan(draft.PlanID, draft.MembershipStart)
		if err != nil {
			return nil, NewValidationError("Please select a membership plan")
		}
		draft.MembershipEnd = end
		draft.TotalAmount = total
	}

	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	assignmentNumber := strings.TrimSpace(draft.AssignmentNumber)
	allocated := false
	if assignmentNumber == "" {
		assignmentNumber = s.allocator.Allocate(ctx)
		allocated = true
	}

	member := domain.Member{
		AssignmentNumber: assignmentNumber,
		FullName:         strings.TrimSpace(draft.FullName),
		PhoneNumber:      strings.TrimSpace(draft.PhoneNumber),
		JoiningDate:      draft.JoiningDate,
		MembershipStart:  draft.MembershipStart,
		MembershipEnd:    draft.MembershipEnd,
		TotalAmount:      draft.TotalAmount,
		DiscountAmount:   draft.DiscountAmount,
		PhotoURL:         draft.PhotoURL,
		IsActive:         true,
		CreatedBy:        &creatorID,
	}

	created, err := s.repo.InsertMember(ctx, member)
	if errors.Is(err, store.ErrDuplicateAssignmentNumber) {
		if !allocated {
			return nil, NewValidationError("Assignment number already exists")
		}
		// Re-allocate once and retry; a second collision is surfaced to the
		// caller for a manual retry.
		member.AssignmentNumber = s.allocator.Allocate(ctx)
		created, err = s.repo.InsertMember(ctx, member)
		if errors.Is(err, store.ErrDuplicateAssignmentNumber) {
			return nil, ErrAllocationConflict
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	result := &RegisterResult{Member: created}

	finalAmount := FinalAmount(created.TotalAmount, created.DiscountAmount)
	if finalAmount > 0 {
		var notes *string
		if created.DiscountAmount > 0 {
			n := fmt.Sprintf("Discount applied: ₹%.0f", created.DiscountAmount)
			notes = &n
		}
		payment, err := s.repo.InsertPayment(ctx, domain.Payment{
			MemberID:      created.ID,
			Amount:        finalAmount,
			PaymentMethod: draft.PaymentMethod,
			PaymentDate:   created.MembershipStart,
			Notes:         notes,
			CreatedBy:     &creatorID,
		})
		if err != nil {
			s.logger.Error("member created but payment record failed", "member_id", created.ID, "error", err)
			result.Warnings = append(result.Warnings, "Member was saved but the payment record could not be created.")
		} else {
			result.Payment = payment
		}
	}

	result.Message = whatsapp.MembershipMessage(created.FullName, created.MembershipStart, created.MembershipEnd, created.AssignmentNumber)
	result.WhatsAppLink = whatsapp.Link(created.PhoneNumber, result.Message)

	if err := s.events.PublishMemberRegistered(ctx, domain.MemberRegisteredEvent{
		MemberID:         created.ID,
		AssignmentNumber: created.AssignmentNumber,
		FullName:         created.FullName,
		PhoneNumber:      created.PhoneNumber,
		Message:          result.Message,
		WhatsAppLink:     result.WhatsAppLink,
		Timestamp:        s.now(),
	}); err != nil {
		s.logger.Warn("member registered event publish failed", "member_id", created.ID, "error", err)
		result.Warnings = append(result.Warnings, "Member was saved but the welcome notification could not be dispatched.")
	}

	return result, nil
}

// ListMembers returns one page of members for the given filter set.
func (s *MemberService) ListMembers(ctx context.Context, filters domain.MemberFilters) ([]domain.Member, error) {
	return s.repo.ListMembers(ctx, filters)
}

// GetMemberProfile returns a member decorated with the derived status and
// the most recent payment method for the detail screen.
func (s *MemberService) GetMemberProfile(ctx context.Context, id uuid.UUID) (*domain.MemberProfile, error) {
	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}

	method, err := s.repo.LatestPaymentMethod(ctx, id)
	if err != nil {
		s.logger.Warn("could not load recent payment method", "member_id", id, "error", err)
		method = ""
	}
	if method == "" {
		method = "Not specified"
	}

	return &domain.MemberProfile{
		Member:              *member,
		Status:              ComputeStatus(s.now(), member.MembershipEnd, member.IsActive),
		RecentPaymentMethod: method,
	}, nil
}

// UpdateMember validates and persists a partial update.
func (s *MemberService) UpdateMember(ctx context.Context, callerID string, id uuid.UUID, patch domain.MemberPatch) (*domain.Member, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}

	current, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidatePatch(*current, patch); err != nil {
		return nil, err
	}

	return s.repo.UpdateMember(ctx, id, patch)
}

// DeleteMember removes a member and cleans up their photo object. Photo
// cleanup is best-effort: an orphaned object is harmless, a dangling member
// row is not.
func (s *MemberService) DeleteMember(ctx context.Context, callerID string, id uuid.UUID) error {
	if callerID == "" {
		return ErrUnauthorized
	}

	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteMember(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if !deleted {
		return store.ErrMemberNotFound
	}

	if member.PhotoURL != nil {
		if key, ok := objectKeyFromURL(*member.PhotoURL); ok {
			if err := s.objects.DeleteObject(ctx, key); err != nil {
				s.logger.Warn("member deleted but photo object cleanup failed", "member_id", id, "key", key, "error", err)
			}
		}
	}

	return nil
}

// RenewMembership extends a member's end date by the given number of
// calendar months. Nothing else changes.
func (s *MemberService) RenewMembership(ctx context.Context, callerID string, id uuid.UUID, extraMonths int) (*domain.Member, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	if extraMonths <= 0 {
		return nil, NewValidationError("Renewal must add at least one month")
	}

	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newEnd, err := RenewEndDate(member.MembershipEnd, extraMonths)
	if err != nil {
		return nil, NewValidationError("Membership end date on record is invalid")
	}

	updated, err := s.repo.UpdateMember(ctx, id, domain.MemberPatch{MembershipEnd: &newEnd})
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishMembershipRenewed(ctx, domain.MembershipRenewedEvent{
		MemberID:      updated.ID,
		MembershipEnd: updated.MembershipEnd,
		Timestamp:     s.now(),
	}); err != nil {
		s.logger.Warn("membership renewed event publish failed", "member_id", updated.ID, "error", err)
	}

	return updated, nil
}

// AttachPhoto uploads a member photo and stores its public URL. A previous
// photo object is deleted best-effort after the new URL commits.
func (s *MemberService) AttachPhoto(ctx context.Context, callerID string, id uuid.UUID, filename, contentType string, body io.Reader) (*domain.Member, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}

	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := photoObjectKey(member.FullName, filename, s.now())
	publicURL, err := s.objects.PutObject(ctx, key, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	updated, err := s.repo.UpdateMember(ctx, id, domain.MemberPatch{PhotoURL: &publicURL})
	if err != nil {
		return nil, err
	}

	if member.PhotoURL != nil {
		if oldKey, ok := objectKeyFromURL(*member.PhotoURL); ok && oldKey != key {
			if err := s.objects.DeleteObject(ctx, oldKey); err != nil {
				s.logger.Warn("stale photo object cleanup failed", "member_id", id, "key", oldKey, "error", err)
			}
		}
	}

	return updated, nil
}

// RemovePhoto clears a member's photo and deletes the stored object.
func (s *MemberService) RemovePhoto(ctx context.Context, callerID string, id uuid.UUID) (*domain.Member, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}

	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.PhotoURL == nil {
		return member, nil
	}

	empty := ""
	updated, err := s.repo.UpdateMember(ctx, id, domain.MemberPatch{PhotoURL: &empty})
	if err != nil {
		return nil, err
	}

	if key, ok := objectKeyFromURL(*member.PhotoURL); ok {
		if err := s.objects.DeleteObject(ctx, key); err != nil {
			s.logger.Warn("photo object cleanup failed", "member_id", id, "key", key, "error", err)
		}
	}

	return updated, nil
}

// ListPayments returns a member's payment history, most recent first.
func (s *MemberService) ListPayments(ctx context.Context, memberID uuid.UUID) ([]domain.Payment, error) {
	return s.repo.ListPaymentsByMember(ctx, memberID)
}

// PaymentStats aggregates the current month's payments for the dashboard.
func (s *MemberService) PaymentStats(ctx context.Context) (*domain.PaymentStats, error) {
	return s.repo.PaymentStats(ctx, s.now())
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// photoObjectKey builds a storage key of the form
// photos/member_<Name_Slug>_<unix>.<ext>. Name plus timestamp keeps keys
// unique without coordination.
func photoObjectKey(memberName, filename string, now time.Time) string {
	slug := whitespaceRun.ReplaceAllString(strings.TrimSpace(memberName), "_")
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("photos/member_%s_%d.%s", slug, now.UnixMilli(), ext)
}

// objectKeyFromURL recovers the storage key from a stored public URL.
func objectKeyFromURL(publicURL string) (string, bool) {
	u, err := url.Parse(publicURL)
	if err != nil || u.Path == "" {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", false
	}
	return key, true
}
