package hmmio

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkowski-lab/sva-typer/internal/dna"
	"github.com/talkowski-lab/sva-typer/internal/hmm"
)

// A minimal single-column Dfam/HMMER-style record: uniform match and
// insertion emissions (p=0.25 each, stored as -ln(0.25)=1.386294), an
// insertion self-loop split evenly (p=0.5 each, stored as -ln(0.5)=0.693147),
// and a match-to-insert probability of 0.1 (stored as -ln(0.1)=2.302585).
// The unused match-to-match/match-to-delete/delete-* fields are "*".
const sampleHMM = `HMM          A        C        G        T
            m->m     m->i     m->d     i->m     i->i     d->m     d->d
  1   1.386294 1.386294 1.386294 1.386294
      1.386294 1.386294 1.386294 1.386294
      *        2.302585 *        0.693147 0.693147 *        *
//
`

func TestReadSingleColumnModel(t *testing.T) {
	h, err := Read(strings.NewReader(sampleHMM), "test", nil, nil)
	require.NoError(t, err)
	require.NoError(t, h.CheckValid())

	idx := h.IndexMap()
	for _, id := range []string{"test_start", "test_M0", "test_I0", "test_end"} {
		_, ok := idx[id]
		assert.True(t, ok, "expected state %q", id)
	}
	assert.Equal(t, 4, h.Len())
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	truncated := "HMM          A        C        G        T\n            m->m     m->i     m->d     i->m     i->i     d->m     d->d\n  1   1.386294 1.386294 1.386294 1.386294\n"
	_, err := Read(strings.NewReader(truncated), "", nil, nil)
	require.Error(t, err)
}

func TestReadSubsetOutOfRangeIsError(t *testing.T) {
	start, end := 0, 5
	_, err := Read(strings.NewReader(sampleHMM), "", &start, &end)
	require.Error(t, err)
}

// singleColumnHMMERText renders the HMMER-text record a single-position
// internal/hmm.Profile implies: the same match/mismatch emission split, a
// uniform insertion emission, and the same match/insert/delete transition
// probabilities, each stored negated-natural-log as the format requires.
func singleColumnHMMERText(ref dna.Symbol, settings hmm.Settings) string {
	negLn := func(p float64) string { return fmt.Sprintf("%.10f", -math.Log(p)) }

	bases := []dna.Symbol{dna.A, dna.C, dna.G, dna.T}
	incorrect := (1.0 - settings.MatchEmitCorrect) / 3.0
	matchRow := make([]string, len(bases))
	for i, b := range bases {
		if b == ref {
			matchRow[i] = negLn(settings.MatchEmitCorrect)
		} else {
			matchRow[i] = negLn(incorrect)
		}
	}

	var b strings.Builder
	b.WriteString("HMM          A        C        G        T\n")
	b.WriteString("            m->m     m->i     m->d     i->m     i->i     d->m     d->d\n")
	fmt.Fprintf(&b, "  1   %s\n", strings.Join(matchRow, " "))
	fmt.Fprintf(&b, "      %s %s %s %s\n", negLn(0.25), negLn(0.25), negLn(0.25), negLn(0.25))
	fmt.Fprintf(&b, "      * %s * %s %s * *\n", negLn(settings.MatchToIns), negLn(1.0-settings.InsExtend), negLn(settings.InsExtend))
	b.WriteString("//\n")
	return b.String()
}

// S6 — round-trip after external HMM import. A single-position model is the
// only topology an HMMER-text import and internal/hmm.Profile agree on bit
// for bit: Profile's mismatch-seed entries from "start" into later match
// columns (used to seed alignment forgiveness for multi-position motifs)
// have no HMMER-format equivalent, so only L=1 lets the two independently
// written constructors be compared directly. Both must decode a
// deterministic query to the same intervals.
func TestReadMatchesProfileConstruction(t *testing.T) {
	settings := hmm.DefaultSettings()

	text := singleColumnHMMERText(dna.A, settings)
	imported, err := Read(strings.NewReader(text), "m", nil, nil)
	require.NoError(t, err)
	require.NoError(t, imported.CheckValid())

	builtin, err := hmm.Profile([]dna.Symbol{dna.A}, "m", settings)
	require.NoError(t, err)
	require.NoError(t, builtin.CheckValid())

	query := []dna.Symbol{dna.A}
	importedIntervals, err := hmm.Decode(imported, query)
	require.NoError(t, err)
	builtinIntervals, err := hmm.Decode(builtin, query)
	require.NoError(t, err)

	assert.Equal(t, builtinIntervals, importedIntervals)
}
