package schedule_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supershift/rotation-engine/schedule"
	"github.com/supershift/rotation-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newResolverFixture(t *testing.T) (*memory.Store, *schedule.CalendarResolver) {
	t.Helper()

	store := memory.New()
	require.NoError(t, store.SaveUser(context.Background(), schedule.UserProfile{
		ID:       "user-1",
		Name:     "Ada",
		Timezone: "Europe/Berlin",
	}))
	return store, schedule.NewCalendarResolver(store, store)
}

// losingCalendarStore simulates losing the creation race: every insert
// plants a competing winner calendar first and reports the conflict.
type losingCalendarStore struct {
	inner  *memory.Store
	winner schedule.CalendarID
}

func (s *losingCalendarStore) FindCalendarByOwner(ctx context.Context, userID string) (*schedule.Calendar, error) {
	return s.inner.FindCalendarByOwner(ctx, userID)
}

func (s *losingCalendarStore) InsertCalendar(ctx context.Context, cal schedule.Calendar) error {
	winner := cal
	winner.ID = s.winner
	if err := s.inner.InsertCalendar(ctx, winner); err != nil {
		return err
	}
	return schedule.ErrCalendarExists
}

// =============================================================================
// RESOLUTION TESTS
// =============================================================================

func TestResolveOrCreate_CreatesOnFirstCall(t *testing.T) {
	// GIVEN: A user with no calendar
	store, resolver := newResolverFixture(t)
	ctx := context.Background()

	// WHEN: Resolving
	id, err := resolver.ResolveOrCreate(ctx, "user-1")

	// THEN: A calendar was created, named after the user, in their timezone
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	cal, err := store.FindCalendarByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, cal)
	assert.Equal(t, id, cal.ID)
	assert.Equal(t, "Ada's shifts", cal.Name)
	assert.Equal(t, "Europe/Berlin", cal.Timezone)
}

func TestResolveOrCreate_Idempotent(t *testing.T) {
	// GIVEN: A calendar created by the first resolution
	_, resolver := newResolverFixture(t)
	ctx := context.Background()

	first, err := resolver.ResolveOrCreate(ctx, "user-1")
	require.NoError(t, err)

	// WHEN: Resolving again
	second, err := resolver.ResolveOrCreate(ctx, "user-1")

	// THEN: The same calendar comes back; no second one exists
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveOrCreate_UnknownUser(t *testing.T) {
	// GIVEN: A user id the directory has never seen
	_, resolver := newResolverFixture(t)

	// WHEN: Resolving
	_, err := resolver.ResolveOrCreate(context.Background(), "ghost")

	// THEN: ErrNoCalendar; nothing was created
	assert.True(t, errors.Is(err, schedule.ErrNoCalendar))
}

func TestResolveOrCreate_NamelessUser_FallbackName(t *testing.T) {
	// GIVEN: A profile without a display name
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.SaveUser(ctx, schedule.UserProfile{ID: "user-2"}))
	resolver := schedule.NewCalendarResolver(store, store)

	// WHEN: Resolving
	_, err := resolver.ResolveOrCreate(ctx, "user-2")
	require.NoError(t, err)

	// THEN: The default name is used
	cal, err := store.FindCalendarByOwner(ctx, "user-2")
	require.NoError(t, err)
	require.NotNil(t, cal)
	assert.Equal(t, "My shifts", cal.Name)
}

// =============================================================================
// CREATION RACE TESTS
// =============================================================================

func TestResolveOrCreate_LostRace_AdoptsWinner(t *testing.T) {
	// GIVEN: A store where every insert loses the creation race
	inner := memory.New()
	ctx := context.Background()
	require.NoError(t, inner.SaveUser(ctx, schedule.UserProfile{ID: "user-1", Name: "Ada"}))

	losing := &losingCalendarStore{inner: inner, winner: "winner-calendar"}
	resolver := schedule.NewCalendarResolver(losing, inner)

	// WHEN: Resolving
	id, err := resolver.ResolveOrCreate(ctx, "user-1")

	// THEN: The conflict is swallowed and the winner's calendar returned
	require.NoError(t, err)
	assert.Equal(t, schedule.CalendarID("winner-calendar"), id)
}

func TestResolveOrCreate_ConcurrentFirstCalls_Converge(t *testing.T) {
	// GIVEN: Ten goroutines resolving the same user for the first time
	_, resolver := newResolverFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]schedule.CalendarID, 10)
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			ids[slot], errs[slot] = resolver.ResolveOrCreate(ctx, "user-1")
		}(i)
	}
	wg.Wait()

	// THEN: Every call succeeds and every call sees the same calendar
	for i := 0; i < 10; i++ {
		require.NoError(t, errs[i], "call %d", i)
	}
	for i := 1; i < 10; i++ {
		assert.Equal(t, ids[0], ids[i], "call %d resolved a different calendar", i)
	}
}

// =============================================================================
// TIMEOUT CLASSIFICATION TESTS
// =============================================================================

// expiredCalendarStore reports the context deadline as already passed.
type expiredCalendarStore struct{}

func (expiredCalendarStore) FindCalendarByOwner(context.Context, string) (*schedule.Calendar, error) {
	return nil, context.DeadlineExceeded
}

func (expiredCalendarStore) InsertCalendar(context.Context, schedule.Calendar) error {
	return context.DeadlineExceeded
}

func TestResolveOrCreate_DeadlineExceeded_MapsToStorageTimeout(t *testing.T) {
	// GIVEN: A store that times out
	inner := memory.New()
	require.NoError(t, inner.SaveUser(context.Background(), schedule.UserProfile{ID: "user-1"}))
	resolver := schedule.NewCalendarResolver(expiredCalendarStore{}, inner)

	// WHEN: Resolving
	_, err := resolver.ResolveOrCreate(context.Background(), "user-1")

	// THEN: The deadline expiry is classified as a storage timeout
	assert.True(t, errors.Is(err, schedule.ErrStorageTimeout))
}
