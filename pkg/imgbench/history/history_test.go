package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/imgbench/pkg/imgbench/profile"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

func newStore(t *testing.T, now *time.Time) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	s.now = func() time.Time { return *now }
	return s
}

func sampleProfile() profile.Profile {
	samples := []types.BenchmarkSample{
		{Candidate: types.ImageCandidate{Path: "a.png", Width: 100, Height: 100, Format: types.FormatPNG}, DecodeDurationMicros: 1000, Succeeded: true},
		{Candidate: types.ImageCandidate{Path: "b.jpg", Width: 100, Height: 100, Format: types.FormatJPEG}, FailureReason: types.FailureDecode},
	}
	p := profile.Build(tuner.TierGood, samples)
	p.Incomplete = true
	return p
}

func TestNew_EmptyDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestStore_SaveAndGet(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, &now)

	signals := tuner.HostSignals{CPUCores: 8, TotalRAM: 16 * types.GiB}
	entry, err := s.Save(signals, sampleProfile())
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)

	assert.Equal(t, Summary{
		Tier:       tuner.TierGood,
		Selected:   2,
		Successes:  1,
		Failures:   1,
		MeanMicros: 1000,
		Incomplete: true,
	}, entry.Summary)

	got, err := s.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.True(t, got.Timestamp.Equal(now))
	assert.Equal(t, signals, got.Signals)
	assert.Equal(t, tuner.TierGood, got.Profile.Tier)
	assert.Equal(t, int64(1000), got.Profile.Stats.PerFormatMeans[types.FormatPNG])

	byPrefix, err := s.Get(entry.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, entry.ID, byPrefix.ID)

	_, err = s.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)

	// No temp files are left behind.
	files, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestStore_ListNewestFirst(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, &now)

	var ids []string
	for range 3 {
		e, err := s.Save(tuner.HostSignals{}, sampleProfile())
		require.NoError(t, err)
		ids = append(ids, e.ID)
		now = now.Add(time.Hour)
	}

	entries, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{entries[0].ID, entries[1].ID, entries[2].ID})

	limited, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_ListMissingDir(t *testing.T) {
	now := time.Now()
	s := newStore(t, &now)

	entries, err := s.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_SkipsCorruptFiles(t *testing.T) {
	now := time.Now()
	s := newStore(t, &now)

	_, err := s.Save(tuner.HostSignals{}, sampleProfile())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "junk.json"), []byte("{"), 0o644))

	entries, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Prune(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, &now)

	old, err := s.Save(tuner.HostSignals{}, sampleProfile())
	require.NoError(t, err)

	now = now.AddDate(0, 0, 10)
	recent, err := s.Save(tuner.HostSignals{}, sampleProfile())
	require.NoError(t, err)

	now = now.AddDate(0, 0, 1)

	removed, err := s.Prune(0)
	require.NoError(t, err)
	assert.Zero(t, removed, "zero retention keeps everything")

	removed, err = s.Prune(7)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(recent.ID)
	assert.NoError(t, err)
}
