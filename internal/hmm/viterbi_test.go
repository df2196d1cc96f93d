package hmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkowski-lab/sva-typer/internal/dna"
)

func buildSingleMotifRegion(t *testing.T, name, motifSeq string, settings Settings) *HMM {
	t.Helper()
	region := Region{
		Name:   name,
		Motifs: []NamedMotif{{Name: name + "_m", Motif: motif(motifSeq)}},
	}
	h, err := BuildRegion(region, settings)
	require.NoError(t, err)
	require.NoError(t, h.CheckValid())
	return h
}

// S1 — exact single motif. A query exactly matching one motif occurrence
// decodes to a region-named interval spanning the whole query (alongside
// the motif's own interval).
func TestDecodeExactSingleMotif(t *testing.T) {
	settings := DefaultSettings()
	h := buildSingleMotifRegion(t, "region", "ACGACG", settings)

	query := motif("ACGACG")
	intervals, err := Decode(h, query)
	require.NoError(t, err)

	var region *dna.Interval
	for i := range intervals {
		if intervals[i].Region == "region" {
			region = &intervals[i]
		}
	}
	require.NotNil(t, region)
	assert.Equal(t, 0, region.Start)
	assert.Equal(t, len(query), region.Stop)
}

// S2 — exact concatenation of two motifs in a parallelized+looped region.
// Every returned interval must satisfy start <= stop <= len(query) and
// intervals must not overlap.
func TestDecodeConcatenatedMotifsNonOverlapping(t *testing.T) {
	settings := DefaultSettings()
	region := Region{
		Name: "region",
		Motifs: []NamedMotif{
			{Name: "m1", Motif: motif("ACG")},
			{Name: "m2", Motif: motif("GTA")},
			{Name: "m3", Motif: motif("TCC")},
		},
	}
	h, err := BuildRegion(region, settings)
	require.NoError(t, err)
	require.NoError(t, h.CheckValid())

	query := motif("ACGACGGTAACGTCCTCCTTCC")
	intervals, err := Decode(h, query)
	require.NoError(t, err)
	require.NotEmpty(t, intervals)

	for _, iv := range intervals {
		assert.LessOrEqual(t, iv.Start, iv.Stop)
		assert.LessOrEqual(t, iv.Stop, len(query))
	}
	for i := range intervals {
		for j := range intervals {
			if i == j {
				continue
			}
			overlap := intervals[i].Start < intervals[j].Stop && intervals[j].Start < intervals[i].Stop
			assert.False(t, overlap, "intervals %v and %v overlap", intervals[i], intervals[j])
		}
	}
}

// S4 — N tolerance. A wildcard substituted into an otherwise exact motif
// occurrence must not break region detection, since N contributes zero to
// every state's emission log-probability.
func TestDecodeToleratesWildcard(t *testing.T) {
	settings := DefaultSettings()
	h := buildSingleMotifRegion(t, "region", "ACGTACGT", settings)

	query := motif("ACGTNCGT")
	intervals, err := Decode(h, query)
	require.NoError(t, err)

	var found bool
	for _, iv := range intervals {
		if iv.Region == "region" && iv.Start == 0 && iv.Stop == len(query) {
			found = true
		}
	}
	assert.True(t, found, "expected a full-span region interval, got %v", intervals)
}

// S3 — skip arm engagement. A 31-character non-motif span interjected
// between occurrences of a 3-motif region's alternatives must be absorbed
// by the region's skip arm: the decoded path includes a "skip"-named
// interval covering the interjected span, and neither neighboring region
// interval reaches into it.
func TestDecodeSkipArmEngagement(t *testing.T) {
	settings := DefaultSettings()
	region := Region{
		Name: "region",
		Motifs: []NamedMotif{
			{Name: "m0", Motif: motif("ACGTGCGAT")},
			{Name: "m1", Motif: motif("GTAACGAG")},
			{Name: "m2", Motif: motif("GAAGCTACT")},
		},
	}
	h, err := BuildRegion(region, settings)
	require.NoError(t, err)
	require.NoError(t, h.CheckValid())

	const (
		m0          = "ACGTGCGAT"
		m1          = "GTAACGAG"
		m2          = "GAAGCTACT"
		interjected = "ATGATCGATTTGTAAACTACTGGGACCCTGT"
	)
	queryStr := m0 + m0 + interjected + m0 + m1 + m2 + m1 + m2 + m1
	query := motif(queryStr)
	require.Len(t, query, 100)

	interjectedStart := len(m0 + m0)
	interjectedStop := interjectedStart + len(interjected)

	intervals, err := Decode(h, query)
	require.NoError(t, err)

	var skip *dna.Interval
	for i := range intervals {
		if intervals[i].Region == "skip" {
			skip = &intervals[i]
		}
	}
	require.NotNil(t, skip, "expected a skip interval, got %v", intervals)
	assert.LessOrEqual(t, skip.Start, interjectedStart)
	assert.GreaterOrEqual(t, skip.Stop, interjectedStop)

	for _, iv := range intervals {
		if iv.Region != "region" {
			continue
		}
		overlap := iv.Start < skip.Stop && skip.Start < iv.Stop
		assert.False(t, overlap, "region interval %v overlaps skip interval %v", iv, skip)
	}
}

// An empty query can never reach the end state: every path from start to
// end passes through at least one emitting match state, which has no
// column to be scored at with zero query symbols available. Decode must
// report this as an error rather than panic or return an empty result.
func TestDecodeEmptyQuery(t *testing.T) {
	settings := DefaultSettings()
	h := buildSingleMotifRegion(t, "region", "ACG", settings)

	_, err := Decode(h, nil)
	require.Error(t, err)
}
