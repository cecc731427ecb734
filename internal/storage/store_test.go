package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathwatch/pathwatch/internal/models"
)

// storeFactories lets every Store implementation run the same contract tests.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"badger": func(t *testing.T) Store {
			s, err := OpenBadger(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func sampleRecord() *SessionRecord {
	speed := 4.2
	return &SessionRecord{
		Profile: &models.BehaviorProfile{
			AverageSpeedKmh: 4.5,
			TypicalHours:    map[int]bool{9: true, 10: true},
			Patterns:        []models.MovementPattern{models.PatternTouristExplorer},
			FixCount:        42,
			BuiltAt:         time.Now().UTC().Truncate(time.Second),
		},
		Fixes: []models.LocationFix{
			{Timestamp: time.Now().UTC().Truncate(time.Second), Lat: 43.7, Lng: 7.27, SpeedKmh: &speed},
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			_, err := store.Get(ctx, "t1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Put(ctx, "t1", sampleRecord()))

			got, err := store.Get(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, "t1", got.TouristID)
			require.NotNil(t, got.Profile)
			assert.InDelta(t, 4.5, got.Profile.AverageSpeedKmh, 1e-9)
			assert.True(t, got.Profile.TypicalHours[9])
			require.Len(t, got.Fixes, 1)
			require.NotNil(t, got.Fixes[0].SpeedKmh)
			assert.InDelta(t, 4.2, *got.Fixes[0].SpeedKmh, 1e-9)
			assert.False(t, got.SavedAt.IsZero())
		})
	}
}

func TestStorePutReplaces(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			first := sampleRecord()
			require.NoError(t, store.Put(ctx, "t1", first))

			second := sampleRecord()
			second.Profile.AverageSpeedKmh = 9.9
			require.NoError(t, store.Put(ctx, "t1", second))

			got, err := store.Get(ctx, "t1")
			require.NoError(t, err)
			assert.InDelta(t, 9.9, got.Profile.AverageSpeedKmh, 1e-9)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Put(ctx, "t1", sampleRecord()))
			require.NoError(t, store.Delete(ctx, "t1"))

			_, err := store.Get(ctx, "t1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "t1", sampleRecord()))

	first, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	first.TouristID = "mutated"

	second, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", second.TouristID)
}
