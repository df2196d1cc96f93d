package hmm

import (
	"github.com/talkowski-lab/sva-typer/internal/dna"
)

// table is the (|S|, |Q|+1) dynamic-programming grid the Viterbi sweep
// fills: scores and the predecessor identifier achieving them, flattened
// into one slice indexed by state position then column.
type table struct {
	cols  int
	score []float64
	back  []string
	set   []bool
}

func newTable(numStates, numCols int) *table {
	t := &table{
		cols:  numCols,
		score: make([]float64, numStates*numCols),
		back:  make([]string, numStates*numCols),
		set:   make([]bool, numStates*numCols),
	}
	for i := range t.score {
		t.score[i] = NegInf
	}
	return t
}

func (t *table) index(state, col int) int {
	return state*t.cols + col
}

func (t *table) get(state, col int) (float64, bool) {
	i := t.index(state, col)
	return t.score[i], t.set[i]
}

func (t *table) put(state, col int, score float64, pred string) {
	i := t.index(state, col)
	t.score[i] = score
	t.back[i] = pred
	t.set[i] = true
}

// Decode runs the log-space Viterbi sweep over query against h and
// tracebacks the best path, returning the named intervals it implies.
// h must have passed CheckValid.
func Decode(h *HMM, query []dna.Symbol) ([]dna.Interval, error) {
	idx := h.IndexMap()
	states := h.States()
	numCols := len(query) + 1

	t := newTable(len(states), numCols)

	startIdx := idx[h.Start()]
	t.put(startIdx, 0, 0.0, "")

	for col := 0; col < numCols; col++ {
		for si, s := range states {
			if si == startIdx && col == 0 {
				continue
			}
			var predCol int
			var emitLog float64
			if s.Emission.Silent {
				predCol = col
				emitLog = 0.0
			} else {
				if col == 0 {
					continue
				}
				predCol = col - 1
				sym := query[col-1]
				if sym == dna.N {
					emitLog = 0.0
				} else {
					emitLog = s.Emission.Probs[sym]
				}
			}

			best := NegInf
			var bestPred string
			haveBest := false
			for _, tr := range s.Incoming {
				predScore, ok := t.get(idx[tr.From], predCol)
				if !ok {
					continue
				}
				cand := predScore + tr.LogProb + emitLog
				if !haveBest || cand > best {
					best = cand
					bestPred = tr.From
					haveBest = true
				}
			}
			if haveBest {
				t.put(si, col, best, bestPred)
			}
		}
	}

	path, err := traceback(h, t, idx, numCols-1)
	if err != nil {
		return nil, err
	}
	return pathToIntervals(path), nil
}

// pathStep is one (state identifier, table column) pair on the traceback
// path. pathToIntervals converts table columns to sequence positions.
type pathStep struct {
	state string
	col   int
}

// traceback walks back from the end state at the final column, following
// recorded predecessors and decrementing the column only when the state
// just left was emitting (an emitting state consumed the symbol that
// brought it to its column; a silent state did not).
func traceback(h *HMM, t *table, idx map[string]int, lastCol int) ([]pathStep, error) {
	end := h.End()
	start := h.Start()

	var steps []pathStep
	state := end
	col := lastCol
	for {
		steps = append(steps, pathStep{state: state, col: col})
		if state == start {
			break
		}
		si := idx[state]
		i := t.index(si, col)
		if !t.set[i] {
			return nil, &DecodeError{State: state, Column: col, Detail: "no recorded predecessor"}
		}
		pred := t.back[i]
		if pred == "" {
			return nil, &DecodeError{State: state, Column: col, Detail: "reached a dead end before the start state"}
		}
		emitting := !isSilentState(h, state)
		if emitting {
			col--
		}
		state = pred
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps, nil
}

func isSilentState(h *HMM, id string) bool {
	idx := h.IndexMap()
	return h.States()[idx[id]].Emission.Silent
}
