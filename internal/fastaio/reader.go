// Package fastaio reads FASTA query records, upper-casing sequence data so
// it lines up with internal/dna's alphabet.
package fastaio

import (
	"io"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/pkg/errors"
)

// Record is one FASTA entry: its identifier (the description line up to
// the first whitespace) and raw, upper-cased sequence bytes.
type Record struct {
	ID       string
	Sequence []byte
}

// Reader reads successive FASTA records from an underlying biogo reader.
type Reader struct {
	r      *fasta.Reader
	closer io.Closer
}

// Open opens path and returns a Reader over its FASTA contents.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "fastaio: opening %s", path)
	}
	return &Reader{r: newBiogoReader(f), closer: f}, nil
}

// NewReader wraps an already-open io.Reader as a Reader. The caller retains
// ownership of r and must close it, if applicable.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: newBiogoReader(r)}
}

func newBiogoReader(r io.Reader) *fasta.Reader {
	template := linear.NewSeq("", nil, alphabet.DNAredundant)
	return fasta.NewReader(r, template)
}

// Next returns the next record, or io.EOF once the stream is exhausted.
func (rd *Reader) Next() (Record, error) {
	s, err := rd.r.Read()
	if err != nil {
		return Record{}, err
	}
	seq, ok := s.(*linear.Seq)
	if !ok {
		return Record{}, errors.Errorf("fastaio: unexpected sequence type %T", s)
	}

	raw := make([]byte, seq.Len())
	for i, l := range seq.Seq {
		raw[i] = upper(byte(l))
	}
	return Record{ID: seq.Name(), Sequence: raw}, nil
}

// Close releases the underlying file, if Open was used to create the
// Reader. It is a no-op for readers built with NewReader.
func (rd *Reader) Close() error {
	if rd.closer == nil {
		return nil
	}
	return rd.closer.Close()
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
