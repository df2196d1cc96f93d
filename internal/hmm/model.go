// Package hmm implements the profile-HMM construction algebra, the
// topological ordering of silent states it depends on, and the log-space
// Viterbi decoder used to annotate query sequences with the model regions
// that cover them.
//
// States are identified by string, as in the reference construction: a
// builder wires states together by predecessor name, not by index. Once a
// model is built, IndexMap materializes a map from each name to its position
// in the state slice; the Viterbi sweep and traceback resolve predecessor
// names through that map, so they still do one map lookup per transition.
package hmm

import "math"

// NegInf is the log-probability representing a transition or emission
// probability of exactly zero. Arithmetic must treat NegInf+x as NegInf.
var NegInf = math.Inf(-1)

// Transition is one (predecessor identifier, log-probability) pair stored
// against the state it leads into — reverse adjacency, because Viterbi
// scores a state from its predecessors.
type Transition struct {
	From    string
	LogProb float64
}

// Emission is either silent (consumes no query symbol, contributes no
// log-probability) or a fixed 4-entry vector of per-symbol log-probabilities
// covering {A,C,G,T}. N is handled at decode time and never stored here.
type Emission struct {
	Silent bool
	Probs  [4]float64
}

// State is one node of an HMM: a unique identifier, its emission, and its
// incoming transitions.
type State struct {
	ID       string
	Emission Emission
	Incoming []Transition
}

// SilentState returns a new state with no emission.
func SilentState(id string) State {
	return State{ID: id, Emission: Emission{Silent: true}}
}

// EmittingState returns a new state with the given log-space emission
// vector, indexed by dna.Symbol A..T.
func EmittingState(id string, logProbs [4]float64) State {
	return State{ID: id, Emission: Emission{Probs: logProbs}}
}

// HMM is an ordered sequence of states. After OrderStates and CheckValid
// it has exactly one start state (no incoming edges) and exactly one end
// state (not referenced as a predecessor by any other state), and is safe
// to share read-only across concurrent decoders.
type HMM struct {
	states []State
	index  map[string]int
}

// New returns an empty HMM.
func New() *HMM {
	return &HMM{}
}

// Add appends a state to the HMM. The index map is invalidated; call
// IndexMap (or OrderStates, which rebuilds it) before relying on index
// lookups again.
func (h *HMM) Add(s State) {
	h.states = append(h.states, s)
	h.index = nil
}

// States returns the HMM's states in stored order. Callers must not mutate
// the returned slice's contents.
func (h *HMM) States() []State {
	return h.states
}

// Len returns the number of states.
func (h *HMM) Len() int {
	return len(h.states)
}

// IndexMap returns (building and caching, if necessary) a map from state
// identifier to its position in States().
func (h *HMM) IndexMap() map[string]int {
	if h.index != nil {
		return h.index
	}
	idx := make(map[string]int, len(h.states))
	for i, s := range h.states {
		idx[s.ID] = i
	}
	h.index = idx
	return idx
}

// StartStates returns the identifiers of every state with no incoming
// transitions.
func (h *HMM) StartStates() []string {
	var out []string
	for _, s := range h.states {
		if len(s.Incoming) == 0 {
			out = append(out, s.ID)
		}
	}
	return out
}

// EndStates returns the identifiers of every state that is never named as a
// predecessor by any other state — derived, not stored.
func (h *HMM) EndStates() []string {
	referenced := make(map[string]bool, len(h.states))
	for _, s := range h.states {
		for _, t := range s.Incoming {
			referenced[t.From] = true
		}
	}
	var out []string
	for _, s := range h.states {
		if !referenced[s.ID] {
			out = append(out, s.ID)
		}
	}
	return out
}

// Start returns the HMM's sole start state identifier. It panics if the
// model hasn't been validated to have exactly one; callers should call
// CheckValid first.
func (h *HMM) Start() string {
	ss := h.StartStates()
	if len(ss) != 1 {
		panic("hmm: Start called on a model without exactly one start state")
	}
	return ss[0]
}

// End returns the HMM's sole end state identifier, with the same
// precondition as Start.
func (h *HMM) End() string {
	es := h.EndStates()
	if len(es) != 1 {
		panic("hmm: End called on a model without exactly one end state")
	}
	return es[0]
}

// Clone returns a deep copy of the HMM's states, suitable for copying into
// a larger composite without aliasing the source's Incoming slices.
func (h *HMM) Clone() *HMM {
	out := New()
	out.states = make([]State, len(h.states))
	for i, s := range h.states {
		cp := s
		cp.Incoming = append([]Transition(nil), s.Incoming...)
		out.states[i] = cp
	}
	return out
}

// SetIncoming replaces the incoming transitions of the named state. It is
// used by the builder algebra to rewire a sub-HMM's start/end states after
// copying them into a composite.
func (h *HMM) SetIncoming(id string, incoming []Transition) {
	idx := h.IndexMap()
	i, ok := idx[id]
	if !ok {
		panic("hmm: SetIncoming: unknown state " + id)
	}
	h.states[i].Incoming = incoming
}
