package hmmio

import "fmt"

// FormatError reports a malformed Dfam/HMMER text record: a truncated file,
// an unparseable float, or a model line with too few fields.
type FormatError struct {
	Line   int
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("hmmio: line %d: %s", e.Line, e.Detail)
}
