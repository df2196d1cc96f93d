package hmm

import (
	"fmt"
	"math"
)

// sumTolerance is how far a probability sum may drift from 1 and still be
// considered valid.
const sumTolerance = 1e-3

// CheckValid checks every invariant an HMM must satisfy before it can be
// queried: exactly one start state, exactly one end state, every
// predecessor identifier resolves, no duplicate identifiers, every
// emitting state's emission vector sums to 1 within tolerance, and every
// non-end state's outgoing transition probabilities (summed across the
// incoming lists that name it) sum to 1 within tolerance.
func (h *HMM) CheckValid() error {
	if err := h.checkUniqueAndStartEnd(); err != nil {
		return err
	}
	if err := h.checkPredecessorsExist(); err != nil {
		return err
	}
	if err := h.checkEmissionSums(); err != nil {
		return err
	}
	return h.checkOutgoingSums()
}

func (h *HMM) checkUniqueAndStartEnd() error {
	seen := make(map[string]bool, len(h.states))
	for _, s := range h.states {
		if seen[s.ID] {
			return &StructureError{Kind: "duplicate identifier", Identifier: s.ID}
		}
		seen[s.ID] = true
	}
	if n := len(h.StartStates()); n != 1 {
		return &StructureError{Kind: "start state count", Detail: fmt.Sprintf("found %d, want 1", n)}
	}
	if n := len(h.EndStates()); n != 1 {
		return &StructureError{Kind: "end state count", Detail: fmt.Sprintf("found %d, want 1", n)}
	}
	return nil
}

func (h *HMM) checkPredecessorsExist() error {
	idx := h.IndexMap()
	for _, s := range h.states {
		for _, t := range s.Incoming {
			if _, ok := idx[t.From]; !ok {
				return &StructureError{Kind: "missing predecessor", Identifier: s.ID, Detail: "references " + t.From}
			}
		}
	}
	return nil
}

func (h *HMM) checkEmissionSums() error {
	for _, s := range h.states {
		if s.Emission.Silent {
			continue
		}
		sum := 0.0
		for _, lp := range s.Emission.Probs {
			sum += math.Exp(lp)
		}
		if math.Abs(sum-1.0) > sumTolerance {
			return &StructureError{Kind: "emission sum", Identifier: s.ID, Detail: fmt.Sprintf("sums to %v, not 1", sum)}
		}
	}
	return nil
}

func (h *HMM) checkOutgoingSums() error {
	end := h.End()
	outgoing := make(map[string]float64, len(h.states))
	for _, s := range h.states {
		for _, t := range s.Incoming {
			outgoing[t.From] += math.Exp(t.LogProb)
		}
	}
	for _, s := range h.states {
		if s.ID == end {
			continue
		}
		sum := outgoing[s.ID]
		if math.Abs(sum-1.0) > sumTolerance {
			return &StructureError{Kind: "outgoing transition sum", Identifier: s.ID, Detail: fmt.Sprintf("sums to %v, not 1", sum)}
		}
	}
	return nil
}
