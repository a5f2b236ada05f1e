package filter

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/jamesainslie/imgbench/pkg/imgbench/imagetest"
	"github.com/jamesainslie/imgbench/pkg/imgbench/limits"
	"github.com/jamesainslie/imgbench/pkg/imgbench/locality"
	"github.com/jamesainslie/imgbench/pkg/imgbench/probe"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is a file of a given size with the header dimensions reported by
// fakeProber.
type fixture struct {
	name          string
	size          int64
	width, height int
	placeholder   bool
}

type env struct {
	dir    string
	paths  []string
	probed map[string]int
	local  map[string]int
	opts   []Option
}

func newEnv(t *testing.T, fixtures []fixture) *env {
	t.Helper()
	// Resolved so paths match what the filter sees after following links.
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	e := &env{dir: dir, probed: map[string]int{}, local: map[string]int{}}

	dims := map[string]fixture{}
	for _, fx := range fixtures {
		path := filepath.Join(e.dir, fx.name)
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, f.Close())
		require.NoError(t, os.Truncate(path, fx.size)) // sparse
		dims[path] = fx
		e.paths = append(e.paths, path)
	}

	prober := probe.ProberFunc(func(path string) (probe.Info, error) {
		e.probed[path]++
		fx := dims[path]
		return probe.Info{Width: fx.width, Height: fx.height, Format: types.FormatFromPath(path)}, nil
	})
	checker := locality.CheckerFunc(func(path string) locality.Status {
		e.local[path]++
		if dims[path].placeholder {
			return locality.OnDemand
		}
		return locality.Local
	})

	e.opts = []Option{WithProber(prober), WithLocality(checker)}
	return e
}

func (e *env) path(name string) string { return filepath.Join(e.dir, name) }

// selectAll filters and selects e's paths the way the engine does.
func (e *env) selectAll(f *Filter) []types.ImageCandidate {
	accepted := slices.Collect(f.Accept(context.Background(), slices.Values(e.paths)))
	return Select(accepted, f.Limits())
}

func names(cands []types.ImageCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = filepath.Base(c.Path)
	}
	return out
}

func TestScenarioA_LowTier(t *testing.T) {
	mb := types.MiB
	e := newEnv(t, []fixture{
		{name: "one.png", size: mb, width: 1000, height: 1000},
		{name: "big.png", size: 3 * mb, width: 1000, height: 1000},
		{name: "dense.png", size: mb + mb/2, width: 2500, height: 2000},
		{name: "half.png", size: mb / 2, width: 1000, height: 500},
	})

	l := limits.DefaultTable().For(tuner.TierLow)
	var rejected []types.Rejection
	f := New(l, append(e.opts, WithRejectHandler(func(r types.Rejection) { rejected = append(rejected, r) }))...)

	selected := e.selectAll(f)
	assert.Equal(t, []string{"half.png", "one.png"}, names(selected))

	reasons := map[string]types.RejectReason{}
	for _, r := range rejected {
		reasons[filepath.Base(r.Path)] = r.Reason
	}
	assert.Equal(t, map[string]types.RejectReason{
		"big.png":   types.RejectTooLarge,
		"dense.png": types.RejectTooManyMegapixels,
	}, reasons)

	// Too large is decided from the stat alone.
	assert.Zero(t, e.local[e.path("big.png")])
	assert.Zero(t, e.probed[e.path("big.png")])
}

func TestScenarioB_PlaceholderNeverProbed(t *testing.T) {
	e := newEnv(t, []fixture{
		{name: "cloud.jpg", size: 1024, width: 10, height: 10, placeholder: true},
		{name: "disk.jpg", size: 2048, width: 10, height: 10},
	})

	// Even the most generous limits exclude the placeholder.
	f := New(limits.DefaultTable().For(tuner.TierExcellent), e.opts...)
	selected := e.selectAll(f)

	assert.Equal(t, []string{"disk.jpg"}, names(selected))
	assert.Zero(t, e.probed[e.path("cloud.jpg")], "placeholder header must not be read")
	for _, c := range selected {
		assert.False(t, c.IsRemotePlaceholder)
	}
}

func TestCheck_SymlinkToPlaceholderIsRejected(t *testing.T) {
	e := newEnv(t, []fixture{
		{name: "cloud.png", size: 1024, width: 10, height: 10, placeholder: true},
		{name: "disk.png", size: 2048, width: 10, height: 10},
	})
	cloudLink := e.path("link.png")
	diskLink := e.path("disk-link.png")
	if err := os.Symlink(e.path("cloud.png"), cloudLink); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(e.path("disk.png"), diskLink))

	f := New(limits.DefaultTable().For(tuner.TierExcellent), e.opts...)

	_, rej := f.Check(cloudLink)
	require.NotNil(t, rej)
	assert.Equal(t, types.RejectRemotePlaceholder, rej.Reason)
	assert.Zero(t, e.probed[cloudLink], "header must not be read through the link")
	assert.Equal(t, 1, e.local[e.path("cloud.png")], "locality is checked on the target")

	c, rej := f.Check(diskLink)
	require.Nil(t, rej)
	assert.Equal(t, diskLink, c.Path)
	assert.Equal(t, int64(2048), c.FileSizeBytes)
}

func TestRevalidate_SymlinkRetargetedToPlaceholder(t *testing.T) {
	e := newEnv(t, []fixture{
		{name: "cloud.png", size: 100, width: 1, height: 1, placeholder: true},
		{name: "disk.png", size: 100, width: 1, height: 1},
	})
	link := e.path("link.png")
	if err := os.Symlink(e.path("disk.png"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	f := New(limits.DefaultTable().For(tuner.TierLow), e.opts...)
	c, rej := f.Check(link)
	require.Nil(t, rej)

	require.NoError(t, os.Remove(link))
	require.NoError(t, os.Symlink(e.path("cloud.png"), link))
	assert.ErrorIs(t, f.Revalidate(c), ErrChanged)
}

func TestCheck_UnknownLocalityIsRejected(t *testing.T) {
	e := newEnv(t, []fixture{{name: "a.png", size: 10, width: 1, height: 1}})
	unknown := locality.CheckerFunc(func(string) locality.Status { return locality.Unknown })

	f := New(limits.DefaultTable().For(tuner.TierGood), append(e.opts, WithLocality(unknown))...)
	_, rej := f.Check(e.paths[0])
	require.NotNil(t, rej)
	assert.Equal(t, types.RejectRemotePlaceholder, rej.Reason)
}

func TestCheck_RealHeaders(t *testing.T) {
	dir := t.TempDir()
	good := imagetest.WritePNG(t, filepath.Join(dir, "good.png"), 32, 16)
	corrupt := imagetest.WriteBytes(t, filepath.Join(dir, "corrupt.png"), []byte("definitely not png"))
	sub := filepath.Join(dir, "sub.png")
	require.NoError(t, os.Mkdir(sub, 0o755))

	f := New(limits.DefaultTable().For(tuner.TierLow))

	c, rej := f.Check(good)
	require.Nil(t, rej)
	assert.Equal(t, 32, c.Width)
	assert.Equal(t, 16, c.Height)
	assert.Equal(t, types.FormatPNG, c.Format)

	_, rej = f.Check(corrupt)
	require.NotNil(t, rej)
	assert.Equal(t, types.RejectMetadataUnreadable, rej.Reason)

	_, rej = f.Check(sub)
	require.NotNil(t, rej)
	assert.Equal(t, types.RejectNotRegular, rej.Reason)

	_, rej = f.Check(filepath.Join(dir, "gone.png"))
	require.NotNil(t, rej)
	assert.Equal(t, types.RejectStatFailed, rej.Reason)
}

func TestCheck_DegenerateDimensions(t *testing.T) {
	e := newEnv(t, []fixture{{name: "zero.png", size: 10, width: 0, height: 100}})
	f := New(limits.DefaultTable().For(tuner.TierLow), e.opts...)

	_, rej := f.Check(e.paths[0])
	require.NotNil(t, rej)
	assert.Equal(t, types.RejectMetadataUnreadable, rej.Reason)
}

func TestAccept_LazyAndLimited(t *testing.T) {
	e := newEnv(t, []fixture{
		{name: "1.png", size: 10, width: 1, height: 1},
		{name: "2.png", size: 10, width: 1, height: 1},
		{name: "3.png", size: 10, width: 1, height: 1},
	})

	f := New(limits.DefaultTable().For(tuner.TierLow), append(e.opts, WithMaxPaths(2))...)
	got := slices.Collect(f.Accept(context.Background(), slices.Values(e.paths)))
	assert.Equal(t, []string{"1.png", "2.png"}, names(got))
	assert.Zero(t, e.probed[e.path("3.png")])
}

func TestRevalidate(t *testing.T) {
	e := newEnv(t, []fixture{{name: "a.png", size: 100, width: 1, height: 1}})
	var rejected []types.Rejection
	f := New(limits.DefaultTable().For(tuner.TierLow),
		append(e.opts, WithRejectHandler(func(r types.Rejection) { rejected = append(rejected, r) }))...)

	c, rej := f.Check(e.paths[0])
	require.Nil(t, rej)
	require.NoError(t, f.Revalidate(c))

	require.NoError(t, os.Truncate(c.Path, 200))
	assert.ErrorIs(t, f.Revalidate(c), ErrChanged)

	require.NoError(t, os.Remove(c.Path))
	assert.ErrorIs(t, f.Revalidate(c), ErrChanged)

	require.Len(t, rejected, 2)
	assert.Equal(t, types.RejectChangedSinceSelect, rejected[0].Reason)
}

func TestSelect_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := range 200 {
		n := rng.IntN(25)
		cands := make([]types.ImageCandidate, n)
		for i := range cands {
			cands[i] = types.ImageCandidate{
				Path:          filepath.Join("img", string(rune('a'+rng.IntN(26)))+".png"),
				FileSizeBytes: rng.Int64N(10),
			}
		}
		l := limits.BenchmarkLimits{MaxCandidateCount: rng.IntN(20)}

		selected := Select(cands, l)

		require.Len(t, selected, min(n, l.MaxCandidateCount), "trial %d", trial)
		require.True(t, slices.IsSortedFunc(selected, Compare), "trial %d", trial)

		// Selection is independent of input order.
		shuffled := slices.Clone(cands)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		require.Equal(t, selected, Select(shuffled, l), "trial %d", trial)
	}
}

func TestSelect_EmptyAndTieBreak(t *testing.T) {
	assert.NotNil(t, Select(nil, limits.BenchmarkLimits{MaxCandidateCount: 3}))
	assert.Empty(t, Select(nil, limits.BenchmarkLimits{MaxCandidateCount: 3}))

	in := []types.ImageCandidate{
		{Path: "b.png", FileSizeBytes: 5},
		{Path: "a.png", FileSizeBytes: 5},
		{Path: "c.png", FileSizeBytes: 1},
	}
	got := Select(in, limits.BenchmarkLimits{MaxCandidateCount: 2})
	assert.Equal(t, []string{"c.png", "a.png"}, names(got))
	assert.Equal(t, "b.png", in[0].Path, "input untouched")
}
