package hmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkowski-lab/sva-typer/internal/dna"
)

func motif(s string) []dna.Symbol {
	m, err := dna.ParseSequence([]byte(s))
	if err != nil {
		panic(err)
	}
	return m
}

// A single-motif profile of length L has exactly 3L+1 states: M0..M(L-1),
// I0..I(L-1), D1..D(L-1), plus start and end.
func TestProfileStateCount(t *testing.T) {
	settings := DefaultSettings()
	for _, L := range []int{1, 3, 9} {
		h, err := Profile(motif(stringOfA(L)), "m", settings)
		require.NoError(t, err)
		assert.Equal(t, 3*L+1, h.Len(), "L=%d", L)
		require.NoError(t, h.CheckValid())
	}
}

func stringOfA(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'A'
	}
	return string(b)
}

// Parallelizing k sub-HMMs with inner sizes n_1..n_k yields 2 + sum(n_i)
// states: a shared start, a shared end, and every sub-HMM's own states
// untouched.
func TestParallelizeStateCount(t *testing.T) {
	settings := DefaultSettings()
	a, err := Profile(motif("ACG"), "a", settings)
	require.NoError(t, err)
	b, err := Profile(motif("GTAAC"), "b", settings)
	require.NoError(t, err)

	combined, err := Parallelize([]*HMM{a, b}, "region")
	require.NoError(t, err)
	assert.Equal(t, 2+a.Len()+b.Len(), combined.Len())
	require.NoError(t, combined.CheckValid())
}

// Looping a region adds exactly five states: P_start, P_end, P_skip_start,
// P_skip_state, P_skip_end.
func TestLoopAddsFiveStates(t *testing.T) {
	settings := DefaultSettings()
	a, err := Profile(motif("ACG"), "a", settings)
	require.NoError(t, err)
	region, err := Parallelize([]*HMM{a}, "region_loop")
	require.NoError(t, err)
	before := region.Len()

	looped, err := Loop(region, "region", settings)
	require.NoError(t, err)
	assert.Equal(t, before+5, looped.Len())
	require.NoError(t, looped.CheckValid())
}

// Append preserves the total state count across its inputs.
func TestAppendPreservesStateCount(t *testing.T) {
	settings := DefaultSettings()
	a, err := Profile(motif("ACG"), "a", settings)
	require.NoError(t, err)
	b, err := Profile(motif("GTA"), "b", settings)
	require.NoError(t, err)

	combined, err := Append([]*HMM{a, b})
	require.NoError(t, err)
	assert.Equal(t, a.Len()+b.Len(), combined.Len())
	require.NoError(t, combined.CheckValid())
}

// BuildRegion produces a model whose outer frame is named after the region,
// not the internal parallelize frame — the loop/parallelize naming split
// that the interval post-processor's "_loop_start"/"_loop_end" exclusion
// rule depends on.
func TestBuildRegionNaming(t *testing.T) {
	settings := DefaultSettings()
	region := Region{
		Name: "hexamer_region",
		Motifs: []NamedMotif{
			{Name: "hex", Motif: motif("CCCTCT")},
		},
	}
	h, err := BuildRegion(region, settings)
	require.NoError(t, err)
	require.NoError(t, h.CheckValid())

	idx := h.IndexMap()
	_, hasOuterStart := idx["hexamer_region_start"]
	_, hasInnerStart := idx["hexamer_region_loop_start"]
	assert.True(t, hasOuterStart)
	assert.True(t, hasInnerStart)
}

func TestProfileRejectsEmptyMotif(t *testing.T) {
	_, err := Profile(nil, "m", DefaultSettings())
	require.Error(t, err)
	var structErr *StructureError
	assert.ErrorAs(t, err, &structErr)
}

func TestNewSettingsRejectsOutOfRangeParameter(t *testing.T) {
	_, err := NewSettings(1.5, 0.04, 0.05, 0.1, 0.9, 0.05, 0.9, 0.9)
	require.Error(t, err)
	var paramErr *BuildParameterError
	assert.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "match_to_match", paramErr.Parameter)
}

func TestNewSettingsRejectsMatchPlusInsOverOne(t *testing.T) {
	_, err := NewSettings(0.9, 0.5, 0.05, 0.1, 0.9, 0.05, 0.9, 0.9)
	require.Error(t, err)
}
