package hmm

import "strings"

// OrderStates reorders the HMM's states in place so that a single forward
// Viterbi sweep can compute every column correctly: emitting states first
// (their relative order is unconstrained, since they only ever depend on
// the previous query column), then silent states in a topological order
// where every silent predecessor of a silent state precedes it.
//
// Must be called after every builder operation, before CheckValid or
// Decode — an unordered model's decode results are undefined.
func (h *HMM) OrderStates() error {
	byID := make(map[string]State, len(h.states))
	var emitting, silent []string
	for _, s := range h.states {
		byID[s.ID] = s
		if s.Emission.Silent {
			silent = append(silent, s.ID)
		} else {
			emitting = append(emitting, s.ID)
		}
	}

	isSilent := make(map[string]bool, len(silent))
	for _, id := range silent {
		isSilent[id] = true
	}

	var sorted []string
	remaining := silent
	for len(remaining) > 0 {
		var placed, unplaced []string
		placedSet := make(map[string]bool)
		for _, id := range remaining {
			blocked := false
			for _, t := range byID[id].Incoming {
				if isSilent[t.From] && !placedInSorted(sorted, t.From) && !placedSet[t.From] {
					blocked = true
					break
				}
			}
			if blocked {
				unplaced = append(unplaced, id)
			} else {
				placed = append(placed, id)
				placedSet[id] = true
			}
		}
		if len(placed) == 0 {
			return &StructureError{Kind: "silent cycle", Detail: "no progress ordering silent states; remaining: " + strings.Join(remaining, ", ")}
		}
		sorted = append(sorted, placed...)
		remaining = unplaced
	}

	ordered := make([]State, 0, len(h.states))
	for _, id := range emitting {
		ordered = append(ordered, byID[id])
	}
	for _, id := range sorted {
		ordered = append(ordered, byID[id])
	}
	h.states = ordered
	h.index = nil
	return nil
}

func placedInSorted(sorted []string, id string) bool {
	for _, s := range sorted {
		if s == id {
			return true
		}
	}
	return false
}
