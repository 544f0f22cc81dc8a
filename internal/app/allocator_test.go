package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestAllocator(repo *stubRepo) *AssignmentAllocator {
	a := NewAssignmentAllocator(repo, testLogger())
	a.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestAllocatePrefersAtomicSequence(t *testing.T) {
	repo := &stubRepo{
		nextNumberFn: func(ctx context.Context) (string, error) { return "2026042", nil },
		latestNumberFn: func(ctx context.Context) (string, error) {
			t.Fatal("fallback must not run when the sequence works")
			return "", nil
		},
	}

	assert.Equal(t, "2026042", newTestAllocator(repo).Allocate(context.Background()))
}

func TestAllocateFallsBackToLatest(t *testing.T) {
	tests := []struct {
		name   string
		latest string
		want   string
	}{
		{"same year continues", "2026007", "2026008"},
		{"previous year restarts", "2025342", "2026001"},
		{"legacy prefix continues", "HFP009", "HFP010"},
		{"empty table starts fresh", "", "2026001"},
		{"unparseable starts fresh", "GOLD-77", "2026001"},
		{"long suffix carries over", "20261003", "20261004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{
				latestNumberFn: func(ctx context.Context) (string, error) { return tt.latest, nil },
			}
			assert.Equal(t, tt.want, newTestAllocator(repo).Allocate(context.Background()))
		})
	}
}

func TestAllocateDegradesToTimestamp(t *testing.T) {
	repo := &stubRepo{
		latestNumberFn: func(ctx context.Context) (string, error) { return "", errors.New("db down") },
	}
	a := newTestAllocator(repo)

	got := a.Allocate(context.Background())
	millis := strconv.FormatInt(a.now().UnixMilli(), 10)
	assert.Equal(t, "2026"+millis[len(millis)-6:], got)
}

func TestAllocateNeverReturnsEmpty(t *testing.T) {
	repo := &stubRepo{
		nextNumberFn:   func(ctx context.Context) (string, error) { return "", errors.New("rpc failed") },
		latestNumberFn: func(ctx context.Context) (string, error) { return "", errors.New("db down") },
	}

	assert.NotEmpty(t, newTestAllocator(repo).Allocate(context.Background()))
}

func TestAllocateConcurrentCallersGetDistinctNumbers(t *testing.T) {
	var mu sync.Mutex
	seq := 0
	repo := &stubRepo{
		nextNumberFn: func(ctx context.Context) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("2026%03d", seq), nil
		},
	}
	a := newTestAllocator(repo)

	const callers = 50
	results := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- a.Allocate(context.Background())
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, callers)
	for number := range results {
		require.False(t, seen[number], "duplicate number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, callers)
}

func TestAllocateFromLatestProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		year := rapid.IntRange(2000, 2099).Draw(t, "year")
		seq := rapid.IntRange(1, 99998).Draw(t, "seq")
		latest := fmt.Sprintf("%d%03d", year, seq)

		repo := &stubRepo{
			latestNumberFn: func(ctx context.Context) (string, error) { return latest, nil },
		}
		a := newTestAllocator(repo)

		got := a.Allocate(context.Background())
		if year == a.now().Year() {
			want := fmt.Sprintf("%d%03d", year, seq+1)
			if got != want {
				t.Fatalf("latest %s: got %s, want %s", latest, got, want)
			}
		} else if got != fmt.Sprintf("%d001", a.now().Year()) {
			t.Fatalf("latest %s from another year: got %s", latest, got)
		}
	})
}
