package hmm

import (
	"fmt"

	"github.com/talkowski-lab/sva-typer/internal/dna"
)

// BuildParameterError reports a build-settings probability outside [0,1],
// or a combination of probabilities (match_to_match + match_to_ins) that
// exceeds 1. Surfaced at Settings construction, before any state is built.
type BuildParameterError struct {
	Parameter string
	Value     float64
}

func (e *BuildParameterError) Error() string {
	return fmt.Sprintf("hmm: build parameter %q = %v must be between 0 and 1", e.Parameter, e.Value)
}

// Settings holds the eight probabilities that parameterize every profile
// and region the builder algebra produces.
type Settings struct {
	MatchToMatch     float64
	MatchToIns       float64
	InsExtend        float64
	DelExtend        float64
	LoopProb         float64
	EnterSkipLoop    float64
	SkipToSkip       float64
	MatchEmitCorrect float64
}

// DefaultSettings returns the reference parameterization used by the
// built-in SVA model.
func DefaultSettings() Settings {
	s, err := NewSettings(0.9, 0.04, 0.05, 0.1, 0.9, 0.05, 0.9, 0.9)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSettings validates and constructs a Settings value. Each probability
// must lie in [0,1]; additionally MatchToMatch+MatchToIns must not exceed 1.
func NewSettings(matchToMatch, matchToIns, insExtend, delExtend, loopProb, enterSkipLoop, skipToSkip, matchEmitCorrect float64) (Settings, error) {
	checks := []struct {
		name string
		val  float64
	}{
		{"match_to_match", matchToMatch},
		{"match_to_ins", matchToIns},
		{"ins_extend", insExtend},
		{"del_extend", delExtend},
		{"loop_prob", loopProb},
		{"enter_skip_loop", enterSkipLoop},
		{"skip_to_skip", skipToSkip},
		{"match_emit_correct", matchEmitCorrect},
	}
	for _, c := range checks {
		if c.val < 0 || c.val > 1 {
			return Settings{}, &BuildParameterError{Parameter: c.name, Value: c.val}
		}
	}
	if sum := matchToMatch + matchToIns; sum < 0 || sum > 1 {
		return Settings{}, &BuildParameterError{Parameter: "match_to_match + match_to_ins", Value: sum}
	}
	return Settings{
		MatchToMatch:     matchToMatch,
		MatchToIns:       matchToIns,
		InsExtend:        insExtend,
		DelExtend:        delExtend,
		LoopProb:         loopProb,
		EnterSkipLoop:    enterSkipLoop,
		SkipToSkip:       skipToSkip,
		MatchEmitCorrect: matchEmitCorrect,
	}, nil
}

// uniformEmission is the insertion and skip-arm emission: each symbol
// equally likely.
var uniformEmission = [4]float64{
	ln(0.25), ln(0.25), ln(0.25), ln(0.25),
}

// matchEmission places MatchEmitCorrect's log at the reference symbol and
// (1-MatchEmitCorrect)/3 at the other three.
func (s Settings) matchEmission(ref dna.Symbol) [4]float64 {
	incorrect := (1.0 - s.MatchEmitCorrect) / 3.0
	var out [4]float64
	for i := range out {
		out[i] = ln(incorrect)
	}
	out[ref] = ln(s.MatchEmitCorrect)
	return out
}
