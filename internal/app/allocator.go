/**
 * @description
 * This file implements the assignment number allocator. Every member gets a
 * human-facing identifier distinct from the database primary key. Allocation
 * prefers the atomic server-side sequence function and degrades through two
 * client-side fallbacks so registration never fails outright for lack of a
 * number.
 *
 * @notes
 * - Canonical format is `{year}{seq:03d}` (e.g. 2026001). Legacy numbers in
 *   the `HFP###` scheme are still parsed, and a legacy chain keeps
 *   incrementing within its own prefix so it cannot collide with itself.
 * - The timestamp-derived last resort trades strict uniqueness for
 *   liveness; the unique constraint on members.assignment_number is the
 *   backstop, and callers retry allocation once on a constraint violation.
 */

package app

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/PawanLambole/haji-fitness-point/internal/store"
)

var (
	legacyNumberPattern = regexp.MustCompile(`^HFP(\d+)$`)
	yearNumberPattern   = regexp.MustCompile(`^(\d{4})(\d{3,})$`)
)

// AssignmentAllocator produces assignment numbers for new members.
type AssignmentAllocator struct {
	repo   store.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewAssignmentAllocator creates an allocator backed by the given repository.
func NewAssignmentAllocator(repo store.Repository, logger *slog.Logger) *AssignmentAllocator {
	return &AssignmentAllocator{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Allocate returns the next assignment number. It never returns an error:
// when both the atomic sequence and the latest-number fallback are
// unreachable it derives a number from the current timestamp.
func (a *AssignmentAllocator) Allocate(ctx context.Context) string {
	number, err := a.repo.NextAssignmentNumber(ctx)
	if err == nil && number != "" {
		return number
	}
	if err != nil {
		a.logger.Warn("atomic assignment number allocation failed, falling back", "error", err)
	}

	number, err = a.allocateFromLatest(ctx)
	if err == nil {
		return number
	}
	a.logger.Warn("fallback assignment number allocation failed, deriving from timestamp", "error", err)

	return a.timestampNumber()
}

// allocateFromLatest reads the most recently created member's number, parses
// its numeric suffix and increments it. An empty table or an unparseable
// number starts a fresh canonical sequence at 001.
func (a *AssignmentAllocator) allocateFromLatest(ctx context.Context) (string, error) {
	latest, err := a.repo.LatestAssignmentNumber(ctx)
	if err != nil {
		return "", err
	}

	year := a.now().Year()

	if m := legacyNumberPattern.FindStringSubmatch(latest); m != nil {
		seq, err := strconv.Atoi(m[1])
		if err == nil {
			return fmt.Sprintf("HFP%03d", seq+1), nil
		}
	}

	if m := yearNumberPattern.FindStringSubmatch(latest); m != nil {
		numberYear, _ := strconv.Atoi(m[1])
		seq, err := strconv.Atoi(m[2])
		if err == nil {
			if numberYear == year {
				return fmt.Sprintf("%d%03d", year, seq+1), nil
			}
			// A number from a previous year restarts the sequence.
			return fmt.Sprintf("%d%03d", year, 1), nil
		}
	}

	// No members yet, or a number we do not recognize.
	return fmt.Sprintf("%d%03d", year, 1), nil
}

// timestampNumber derives an identifier from the low-order digits of the
// current unix millisecond clock. Residual collision risk is accepted; the
// database unique constraint rejects the rare duplicate and the caller
// retries.
func (a *AssignmentAllocator) timestampNumber() string {
	millis := strconv.FormatInt(a.now().UnixMilli(), 10)
	suffix := millis
	if len(millis) > 6 {
		suffix = millis[len(millis)-6:]
	}
	return fmt.Sprintf("%d%s", a.now().Year(), suffix)
}
