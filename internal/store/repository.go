/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the membership service. The
 * interface decouples the business logic from the PostgreSQL implementation
 * and lets the app layer be tested against in-memory stubs.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/PawanLambole/haji-fitness-point/internal/domain"
)

// MaxListLimit caps the page size of member listings. The API layer clamps
// incoming limits to this value so has_more stays truthful.
const MaxListLimit = 100

// ErrMemberNotFound is returned when a member lookup matches no row.
var ErrMemberNotFound = errors.New("member not found")

// ErrDuplicateAssignmentNumber is returned when an insert or update violates
// the unique constraint on members.assignment_number. The caller is expected
// to re-allocate and retry once.
var ErrDuplicateAssignmentNumber = errors.New("assignment number already exists")

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Member methods
	ListMembers(ctx context.Context, filters domain.MemberFilters) ([]domain.Member, error)
	GetMemberByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	InsertMember(ctx context.Context, member domain.Member) (*domain.Member, error)
	UpdateMember(ctx context.Context, id uuid.UUID, patch domain.MemberPatch) (*domain.Member, error)
	DeleteMember(ctx context.Context, id uuid.UUID) (bool, error)
	// ListMembersExpiringBetween returns active members whose membership_end
	// falls inside [from, to], both YYYY-MM-DD inclusive. Used by the
	// renewal reminder job.
	ListMembersExpiringBetween(ctx context.Context, from, to string) ([]domain.Member, error)

	// Assignment number methods
	// NextAssignmentNumber invokes the atomic server-side sequence function;
	// two concurrent callers never receive the same value.
	NextAssignmentNumber(ctx context.Context) (string, error)
	// LatestAssignmentNumber returns the most recently created member's
	// assignment number, or "" when no members exist.
	LatestAssignmentNumber(ctx context.Context) (string, error)

	// Payment methods
	InsertPayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	ListPaymentsByMember(ctx context.Context, memberID uuid.UUID) ([]domain.Payment, error)
	// LatestPaymentMethod returns the method of the member's most recent
	// payment, or "" when the member has none.
	LatestPaymentMethod(ctx context.Context, memberID uuid.UUID) (string, error)
	PaymentStats(ctx context.Context, month time.Time) (*domain.PaymentStats, error)
}
