// Package dna provides the small alphabet and interval primitives shared by
// the HMM core: mapping query characters to the symbol indices the model's
// emission vectors are keyed on, and the half-open intervals the decoder
// reports regions in.
package dna

import "fmt"

// Symbol is a small non-negative integer encoding one of A, C, G, T, N.
// N is the wildcard: it contributes zero to emission log-probability
// regardless of the state being scored.
type Symbol byte

const (
	A Symbol = iota
	C
	G
	T
	N
)

// NumEmitting is the number of symbols with a real (non-wildcard) emission
// probability; emission vectors are indexed 0..NumEmitting-1.
const NumEmitting = 4

// ErrInvalidSymbol is returned when a byte outside {A,C,G,T,N} (upper case
// only) is encountered while parsing a query sequence.
type ErrInvalidSymbol struct {
	Char byte
	Pos  int
}

func (e *ErrInvalidSymbol) Error() string {
	return fmt.Sprintf("invalid sequence character %q at position %d", e.Char, e.Pos)
}

// ParseSequence maps an upper-cased raw sequence into Symbols. Any character
// outside {A,C,G,T,N} is an input error.
func ParseSequence(raw []byte) ([]Symbol, error) {
	out := make([]Symbol, len(raw))
	for i, c := range raw {
		s, ok := fromByte(c)
		if !ok {
			return nil, &ErrInvalidSymbol{Char: c, Pos: i}
		}
		out[i] = s
	}
	return out, nil
}

func fromByte(c byte) (Symbol, bool) {
	switch c {
	case 'A':
		return A, true
	case 'C':
		return C, true
	case 'G':
		return G, true
	case 'T':
		return T, true
	case 'N':
		return N, true
	default:
		return 0, false
	}
}

// Byte returns the upper-case character this symbol represents.
func (s Symbol) Byte() byte {
	switch s {
	case A:
		return 'A'
	case C:
		return 'C'
	case G:
		return 'G'
	case T:
		return 'T'
	case N:
		return 'N'
	default:
		return '?'
	}
}

func (s Symbol) String() string {
	return string(s.Byte())
}
