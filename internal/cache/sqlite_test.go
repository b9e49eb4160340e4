package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/refmatch/internal/config"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/orcid"
	"github.com/matsen/refmatch/internal/reference"
)

const testID = "0000-0002-1825-0097"

func testProfile() *orcid.Profile {
	return &orcid.Profile{
		ORCID: testID,
		Name:  "Maria Nikolajeva",
		Count: 1,
		Publications: []orcid.Publication{
			{Title: "Emotions in storybooks", Year: "2019", DOI: "10.1037/ppm0000185"},
		},
	}
}

func openTestDB(t *testing.T, ttl time.Duration) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteProfiles(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err := s.GetProfile(ctx, testID)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.PutProfile(ctx, testProfile()))
	got, err := s.GetProfile(ctx, testID)
	require.NoError(t, err)
	assert.Equal(t, testProfile(), got)

	now = now.Add(2 * time.Hour)
	_, err = s.GetProfile(ctx, testID)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSQLiteNoTTL(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t, 0)
	start := time.Now()
	s.now = func() time.Time { return start }
	require.NoError(t, s.PutProfile(ctx, testProfile()))

	s.now = func() time.Time { return start.Add(24 * 365 * time.Hour) }
	_, err := s.GetProfile(ctx, testID)
	assert.NoError(t, err)
}

func TestSQLiteEntities(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t, time.Hour)

	_, ok, err := s.GetEntities(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	var bag reference.EntityBag
	bag.Add(reference.Title, "Emotions in storybooks")
	bag.Add(reference.Volume, "8", "2")
	require.NoError(t, s.PutEntities(ctx, "k", bag))

	got, ok, err := s.GetEntities(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, bag, got)

	require.NoError(t, s.PutProfile(ctx, testProfile()))
	require.NoError(t, s.Clear(ctx))
	_, ok, _ = s.GetEntities(ctx, "k")
	assert.False(t, ok)
	_, err = s.GetProfile(ctx, testID)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.CacheConfig{Driver: config.CacheNone})
	require.NoError(t, err)
	assert.Nil(t, Entities(store))
	_, err = store.GetProfile(ctx, testID)
	assert.ErrorIs(t, err, ErrMiss)

	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	store, err = Open(ctx, config.CacheConfig{Driver: config.CacheSQLite, Path: path})
	require.NoError(t, err)
	defer store.Close()
	var _ extract.EntityStore = Entities(store)
	assert.NotNil(t, Entities(store))

	_, err = Open(ctx, config.CacheConfig{Driver: "memcached"})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

type countingFetcher struct {
	calls int
	err   error
}

func (f *countingFetcher) FetchProfile(_ context.Context, id string) (*orcid.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := testProfile()
	p.ORCID = id
	return p, nil
}

func TestProfilesReadThrough(t *testing.T) {
	ctx := context.Background()
	source := &countingFetcher{}
	profiles := NewProfiles(openTestDB(t, time.Hour), source)

	for range 3 {
		p, err := profiles.FetchProfile(ctx, " "+testID)
		require.NoError(t, err)
		assert.Equal(t, "Maria Nikolajeva", p.Name)
	}
	assert.Equal(t, 1, source.calls)

	_, err := profiles.FetchProfile(ctx, "bad")
	assert.ErrorIs(t, err, orcid.ErrInvalidID)

	failing := NewProfiles(Nop{}, &countingFetcher{err: errors.New("down")})
	_, err = failing.FetchProfile(ctx, testID)
	assert.EqualError(t, err, "down")
}
