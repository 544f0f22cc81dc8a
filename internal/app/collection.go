/**
 * @description
 * This file implements the member collection manager: a locally cached,
 * filterable, paginated view of the member set with optimistic cache
 * maintenance on add, update, delete and renewal. It mirrors the member list
 * the mobile client keeps on screen.
 *
 * @notes
 * - One collection instance is bound to one filter set and one owner; it is
 *   constructed with its dependencies rather than reaching for shared state.
 * - Optimistic updates can diverge from server truth (a prepended member may
 *   not match the active filter; offset pagination races with concurrent
 *   inserts at page boundaries). Refresh is the authoritative
 *   reconciliation point after any mutation that affects ordering or
 *   filtering.
 */

package app

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/PawanLambole/haji-fitness-point/internal/domain"
)

// DefaultPageSize is the page size used when a collection is constructed
// without one. Exposed as configuration rather than a hidden literal.
const DefaultPageSize = 20

// CollectionBackend is the slice of the member service a collection needs.
// *MemberService satisfies it.
type CollectionBackend interface {
	ListMembers(ctx context.Context, filters domain.MemberFilters) ([]domain.Member, error)
	RegisterMember(ctx context.Context, creatorID string, draft domain.MemberDraft) (*RegisterResult, error)
	UpdateMember(ctx context.Context, callerID string, id uuid.UUID, patch domain.MemberPatch) (*domain.Member, error)
	DeleteMember(ctx context.Context, callerID string, id uuid.UUID) error
	RenewMembership(ctx context.Context, callerID string, id uuid.UUID, extraMonths int) (*domain.Member, error)
}

// MemberCollection owns an ordered, cached page sequence of members for one
// filter set. All cache mutations flow through its methods.
type MemberCollection struct {
	backend  CollectionBackend
	callerID string
	filters  domain.MemberFilters
	pageSize int

	mu      sync.Mutex
	members []domain.Member
	hasMore bool
	loading bool
}

// NewMemberCollection creates a collection scoped to the given caller and
// filter set. pageSize <= 0 falls back to DefaultPageSize.
func NewMemberCollection(backend CollectionBackend, callerID string, filters domain.MemberFilters, pageSize int) *MemberCollection {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MemberCollection{
		backend:  backend,
		callerID: callerID,
		filters:  filters,
		pageSize: pageSize,
		hasMore:  true,
	}
}

// Members returns a copy of the cached member sequence.
func (c *MemberCollection) Members() []domain.Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Member, len(c.members))
	copy(out, c.members)
	return out
}

// HasMore reports whether another page is expected to exist.
func (c *MemberCollection) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Loading reports whether a fetch is in flight.
func (c *MemberCollection) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Refresh replaces the cache with the first page. It is the authoritative
// reconciliation point with the backend.
func (c *MemberCollection) Refresh(ctx context.Context) error {
	return c.fetch(ctx, true)
}

// LoadMore appends the next page. It is a no-op while a fetch is in flight
// or when the last page was short.
func (c *MemberCollection) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.fetch(ctx, false)
}

func (c *MemberCollection) fetch(ctx context.Context, reset bool) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	offset := len(c.members)
	if reset {
		offset = 0
	}
	filters := c.filters
	filters.Limit = c.pageSize
	filters.Offset = offset
	c.mu.Unlock()

	rows, err := c.backend.ListMembers(ctx, filters)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		return err
	}

	if reset {
		c.members = rows
	} else {
		c.members = append(c.members, rows...)
	}
	c.hasMore = len(rows) == c.pageSize
	return nil
}

// Add registers a new member and prepends it to the cache, ahead of any
// background refresh.
func (c *MemberCollection) Add(ctx context.Context, draft domain.MemberDraft) (*RegisterResult, error) {
	result, err := c.backend.RegisterMember(ctx, c.callerID, draft)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.members = append([]domain.Member{*result.Member}, c.members...)
	c.mu.Unlock()
	return result, nil
}

// Update persists a partial change and replaces the cached entry in place,
// preserving list order.
func (c *MemberCollection) Update(ctx context.Context, id uuid.UUID, patch domain.MemberPatch) (*domain.Member, error) {
	updated, err := c.backend.UpdateMember(ctx, c.callerID, id, patch)
	if err != nil {
		return nil, err
	}
	c.replace(*updated)
	return updated, nil
}

// Renew extends a member's end date and reflects the change in the cache
// without a full refresh.
func (c *MemberCollection) Renew(ctx context.Context, id uuid.UUID, extraMonths int) (*domain.Member, error) {
	updated, err := c.backend.RenewMembership(ctx, c.callerID, id, extraMonths)
	if err != nil {
		return nil, err
	}
	c.replace(*updated)
	return updated, nil
}

// Remove deletes a member and drops it from the cache.
func (c *MemberCollection) Remove(ctx context.Context, id uuid.UUID) error {
	if err := c.backend.DeleteMember(ctx, c.callerID, id); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.members[:0]
	for _, m := range c.members {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	c.members = kept
	return nil
}

func (c *MemberCollection) replace(updated domain.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.members {
		if c.members[i].ID == updated.ID {
			c.members[i] = updated
			return
		}
	}
}
