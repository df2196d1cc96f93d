package hmm

import (
	"fmt"
	"strings"

	"github.com/talkowski-lab/sva-typer/internal/dna"
)

// withTrailingUnderscore normalizes a builder prefix so every generated
// identifier reads "<prefix>_<suffix>" regardless of whether the caller
// already supplied the trailing underscore.
func withTrailingUnderscore(prefix string) string {
	if prefix == "" {
		return ""
	}
	if strings.HasSuffix(prefix, "_") {
		return prefix
	}
	return prefix + "_"
}

// Profile builds a single-motif profile HMM: a silent start, match/insert
// states per reference position, delete states for i>=1, and a silent end.
// The motif must be non-empty.
func Profile(motif []dna.Symbol, prefix string, settings Settings) (*HMM, error) {
	if len(motif) == 0 {
		return nil, &StructureError{Kind: "empty motif", Detail: "motif must have at least one position"}
	}
	p := withTrailingUnderscore(prefix)
	L := len(motif)
	h := New()

	id := func(format string, a ...interface{}) string {
		return p + fmt.Sprintf(format, a...)
	}

	// A length-1 motif has no mismatch-seed states for start to jump into, so
	// start's entire outgoing mass must land on M0; for L>1 the mismatch-seed
	// edges added below absorb the 1-MatchToMatch remainder instead.
	startToM0 := settings.MatchToMatch
	if L == 1 {
		startToM0 = 1.0
	}

	h.Add(SilentState(id("start")))
	h.Add(State{
		ID:       id("M0"),
		Emission: Emission{Probs: settings.matchEmission(motif[0])},
		Incoming: []Transition{{From: id("start"), LogProb: ln(startToM0)}},
	})
	h.Add(State{
		ID:       id("I0"),
		Emission: Emission{Probs: uniformEmission},
		Incoming: []Transition{
			{From: id("M0"), LogProb: ln(settings.MatchToIns)},
			{From: id("I0"), LogProb: ln(settings.InsExtend)},
		},
	})

	if L > 1 {
		matchSeedUnit := 2.0 * (1.0 - settings.MatchToMatch) / float64(L*(L-1))
		for i := 1; i < L; i++ {
			mismatchProb := matchSeedUnit * float64(L-i)

			matchIncoming := []Transition{
				{From: id("start"), LogProb: ln(mismatchProb)},
				{From: id("M%d", i-1), LogProb: ln(settings.MatchToMatch)},
				{From: id("I%d", i-1), LogProb: ln(1.0 - settings.InsExtend)},
			}
			if i > 1 {
				matchIncoming = append(matchIncoming, Transition{From: id("D%d", i-1), LogProb: ln(1.0 - settings.DelExtend)})
			}
			h.Add(State{
				ID:       id("M%d", i),
				Emission: Emission{Probs: settings.matchEmission(motif[i])},
				Incoming: matchIncoming,
			})

			h.Add(State{
				ID:       id("I%d", i),
				Emission: Emission{Probs: uniformEmission},
				Incoming: []Transition{
					{From: id("M%d", i), LogProb: ln(settings.MatchToIns)},
					{From: id("I%d", i), LogProb: ln(settings.InsExtend)},
				},
			})

			delIncoming := []Transition{
				{From: id("M%d", i-1), LogProb: ln(1.0 - settings.MatchToIns - settings.MatchToMatch)},
			}
			if i > 1 {
				delIncoming = append(delIncoming, Transition{From: id("D%d", i-1), LogProb: ln(settings.DelExtend)})
			}
			h.Add(State{
				ID:       id("D%d", i),
				Emission: Emission{Silent: true},
				Incoming: delIncoming,
			})
		}
	}

	last := L - 1
	endIncoming := []Transition{
		{From: id("M%d", last), LogProb: ln(1.0 - settings.MatchToIns)},
		{From: id("I%d", last), LogProb: ln(1.0 - settings.InsExtend)},
	}
	if last >= 1 {
		endIncoming = append(endIncoming, Transition{From: id("D%d", last), LogProb: ln(1.0)})
	}
	h.Add(State{ID: id("end"), Emission: Emission{Silent: true}, Incoming: endIncoming})

	if err := h.OrderStates(); err != nil {
		return nil, err
	}
	return h, nil
}

// skip builds the single-state self-looping skip arm attached by Loop:
// <prefix>skip_start (silent) -> <prefix>skip_state (uniform, self-looping)
// -> <prefix>skip_end (silent).
func skip(prefix string, settings Settings) *HMM {
	p := withTrailingUnderscore(prefix)
	h := New()
	h.Add(SilentState(p + "skip_start"))
	h.Add(State{
		ID:       p + "skip_state",
		Emission: Emission{Probs: uniformEmission},
		Incoming: []Transition{
			{From: p + "skip_start", LogProb: ln(1.0)},
			{From: p + "skip_state", LogProb: ln(settings.SkipToSkip)},
		},
	})
	h.Add(State{
		ID:       p + "skip_end",
		Emission: Emission{Silent: true},
		Incoming: []Transition{{From: p + "skip_state", LogProb: ln(1.0 - settings.SkipToSkip)}},
	})
	return h
}

// Parallelize combines k sub-HMMs (the alternative motifs within one
// region) under a shared silent start that fans out 1/k to each
// sub-HMM's internal start, and a shared silent end that absorbs each
// sub-HMM's internal end with probability 1. Identifier collisions across
// the sub-HMMs are a build-time error.
func Parallelize(hmms []*HMM, regionPrefix string) (*HMM, error) {
	if len(hmms) == 0 {
		return nil, &StructureError{Kind: "empty region", Detail: "Parallelize requires at least one sub-HMM"}
	}
	p := withTrailingUnderscore(regionPrefix)
	out := New()
	seen := make(map[string]bool)

	startID := p + "start"
	out.Add(SilentState(startID))

	transitionProb := ln(1.0 / float64(len(hmms)))
	var innerEnds []string
	for _, sub := range hmms {
		innerStart := sub.Start()
		innerEnds = append(innerEnds, sub.End())
		for _, s := range sub.States() {
			if seen[s.ID] {
				return nil, &StructureError{Kind: "duplicate identifier", Identifier: s.ID, Detail: "repeated across parallelized sub-HMMs"}
			}
			seen[s.ID] = true
			cp := s
			cp.Incoming = append([]Transition(nil), s.Incoming...)
			if s.ID == innerStart {
				cp.Incoming = []Transition{{From: startID, LogProb: transitionProb}}
			}
			out.Add(cp)
		}
	}

	endIncoming := make([]Transition, len(innerEnds))
	for i, e := range innerEnds {
		endIncoming[i] = Transition{From: e, LogProb: ln(1.0)}
	}
	out.Add(State{ID: p + "end", Emission: Emission{Silent: true}, Incoming: endIncoming})

	if err := out.OrderStates(); err != nil {
		return nil, err
	}
	return out, nil
}

// Loop wraps an already-parallelized region HMM so it may repeat: the
// region's inner start becomes reachable from a new outer P_start (prob 1),
// from the region's own inner end (the repeat arm, probability
// loop_prob*(1-enter_skip_loop)), and from the skip arm's end (probability
// 1, since retrying the region is the only way out of the skip arm). A
// silent P_end is reachable from the inner end with probability
// 1-loop_prob, and the skip arm is entered from the inner end with
// probability loop_prob*enter_skip_loop.
func Loop(region *HMM, loopPrefix string, settings Settings) (*HMM, error) {
	p := withTrailingUnderscore(loopPrefix)
	innerStart := region.Start()
	innerEnd := region.End()

	out := region.Clone()

	skipHMM := skip(p, settings)
	skipStartID := skipHMM.Start()
	skipEndID := skipHMM.End()

	out.Add(SilentState(p + "start"))
	out.Add(State{
		ID:       p + "end",
		Emission: Emission{Silent: true},
		Incoming: []Transition{{From: innerEnd, LogProb: ln(1.0 - settings.LoopProb)}},
	})

	out.SetIncoming(innerStart, []Transition{
		{From: p + "start", LogProb: ln(1.0)},
		{From: innerEnd, LogProb: ln(settings.LoopProb * (1.0 - settings.EnterSkipLoop))},
		{From: skipEndID, LogProb: ln(1.0)},
	})

	for _, s := range skipHMM.States() {
		cp := s
		cp.Incoming = append([]Transition(nil), s.Incoming...)
		if s.ID == skipStartID {
			cp.Incoming = []Transition{{From: innerEnd, LogProb: ln(settings.LoopProb * settings.EnterSkipLoop)}}
		}
		out.Add(cp)
	}

	if err := out.OrderStates(); err != nil {
		return nil, err
	}
	return out, nil
}

// Append stitches an ordered list of complete HMMs into one composite:
// every adjacent pair is rewired so the next region's inner start has the
// previous region's inner end as its sole predecessor (probability 1).
// The first region's start and the last region's end become the
// composite's start and end.
func Append(hmms []*HMM) (*HMM, error) {
	if len(hmms) == 0 {
		return nil, &StructureError{Kind: "empty sequence", Detail: "Append requires at least one HMM"}
	}
	out := New()
	seen := make(map[string]bool)

	for i, h := range hmms {
		var rewireFrom, rewireTo string
		if i > 0 {
			rewireFrom = hmms[i-1].End()
			rewireTo = h.Start()
		}
		for _, s := range h.States() {
			if seen[s.ID] {
				return nil, &StructureError{Kind: "duplicate identifier", Identifier: s.ID, Detail: "repeated across appended HMMs"}
			}
			seen[s.ID] = true
			cp := s
			cp.Incoming = append([]Transition(nil), s.Incoming...)
			if s.ID == rewireTo {
				cp.Incoming = []Transition{{From: rewireFrom, LogProb: ln(1.0)}}
			}
			out.Add(cp)
		}
	}

	if err := out.OrderStates(); err != nil {
		return nil, err
	}
	return out, nil
}

// Region is one named set of alternative motifs that may repeat in the
// reference, e.g. a hexamer region with a single spelling or a VNTR region
// with several. Names must be unique within the model; each is used both as
// a sub-HMM's identifier prefix and as the region name reported in decoded
// intervals.
type Region struct {
	Name   string
	Motifs []NamedMotif
}

// NamedMotif pairs a motif sequence with the identifier prefix its profile
// states use, e.g. "VNTR_1".
type NamedMotif struct {
	Name  string
	Motif []dna.Symbol
}

// BuildRegion builds one repeating, possibly-multi-motif region: a profile
// per motif, parallelized under regionName+"_loop" so the alternatives share
// a frame the interval post-processor treats as internal bookkeeping
// ("_loop_start"/"_loop_end" are excluded from reported intervals), then
// wrapped in Loop under the bare regionName so the outer frame is the one
// interval readers see.
func BuildRegion(region Region, settings Settings) (*HMM, error) {
	if len(region.Motifs) == 0 {
		return nil, &StructureError{Kind: "empty region", Identifier: region.Name, Detail: "region requires at least one motif"}
	}
	profiles := make([]*HMM, len(region.Motifs))
	for i, m := range region.Motifs {
		p, err := Profile(m.Motif, m.Name, settings)
		if err != nil {
			return nil, err
		}
		profiles[i] = p
	}
	parallel, err := Parallelize(profiles, region.Name+"_loop")
	if err != nil {
		return nil, err
	}
	return Loop(parallel, region.Name, settings)
}
