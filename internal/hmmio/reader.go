// Package hmmio imports profile HMMs from Dfam/HMMER plain-text model
// files into the internal/hmm representation, as an alternative to
// building a model with the construction algebra.
package hmmio

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/talkowski-lab/sva-typer/internal/hmm"
)

// columnProbs holds one model position's parsed fields: four match emission
// log-probabilities, four insertion emission log-probabilities, and the
// seven transition log-probabilities in HMMER's fixed order (m->m, m->i,
// m->d, i->m, i->i, d->m, d->d).
type columnProbs struct {
	matchEmit [4]float64
	insEmit   [4]float64
	trans     [7]float64
}

// ReadFile opens path and parses the first HMM record it contains.
// prefix, if non-empty, is prepended (with a trailing underscore) to every
// generated state identifier, so an imported model can be composed with
// others without colliding names. startPos/endPos subset the model to a
// half-open column range; nil means "from the beginning"/"to the end".
func ReadFile(path string, prefix string, startPos, endPos *int) (*hmm.HMM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "hmmio: opening %s", path)
	}
	defer f.Close()
	return Read(f, prefix, startPos, endPos)
}

// Read parses one HMM record from r. See ReadFile for the parameters.
func Read(r io.Reader, prefix string, startPos, endPos *int) (*hmm.HMM, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0

	nextLine := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		line++
		return sc.Text(), true
	}

	for {
		text, ok := nextLine()
		if !ok {
			return nil, errors.Wrap(sc.Err(), "hmmio: reading header")
		}
		fields := strings.Fields(text)
		if len(fields) > 0 && fields[0] == "HMM" {
			break
		}
	}
	if _, ok := nextLine(); !ok {
		return nil, &FormatError{Line: line, Detail: "file truncated after HMM header"}
	}

	var columns []columnProbs
	for {
		l1, ok := nextLine()
		if !ok {
			return nil, &FormatError{Line: line, Detail: "file truncated, expected // terminator"}
		}
		if strings.HasPrefix(l1, "//") {
			break
		}
		l2, ok := nextLine()
		if !ok {
			return nil, &FormatError{Line: line, Detail: "file truncated mid-record"}
		}
		l3, ok := nextLine()
		if !ok {
			return nil, &FormatError{Line: line, Detail: "file truncated mid-record"}
		}

		f1 := strings.Fields(l1)
		if len(f1) > 0 && f1[0] == "COMPO" {
			continue
		}
		f2 := strings.Fields(l2)
		f3 := strings.Fields(l3)
		if len(f1) < 5 || len(f2) < 4 || len(f3) < 7 {
			return nil, &FormatError{Line: line, Detail: "model line has too few fields"}
		}

		col := columnProbs{}
		for i := 0; i < 4; i++ {
			v, err := parseHMMERFloat(f1[1+i])
			if err != nil {
				return nil, errors.Wrapf(err, "hmmio: line %d: match emission", line-2)
			}
			col.matchEmit[i] = -v
		}
		for i := 0; i < 4; i++ {
			v, err := parseHMMERFloat(f2[i])
			if err != nil {
				return nil, errors.Wrapf(err, "hmmio: line %d: insertion emission", line-1)
			}
			col.insEmit[i] = -v
		}
		for i := 0; i < 7; i++ {
			v, err := parseHMMERFloat(f3[i])
			if err != nil {
				return nil, errors.Wrapf(err, "hmmio: line %d: transition", line)
			}
			col.trans[i] = -v
		}
		columns = append(columns, col)
	}

	start, end := 0, len(columns)
	if startPos != nil {
		start = *startPos
	}
	if endPos != nil {
		end = *endPos
	}
	if start < 0 || end > len(columns) || start > end {
		return nil, &FormatError{Line: line, Detail: "start_pos/end_pos out of range"}
	}
	columns = columns[start:end]
	if len(columns) == 0 {
		return nil, &FormatError{Line: line, Detail: "subset leaves no model positions"}
	}

	return buildFromColumns(columns, prefix)
}

// parseHMMERFloat parses one HMMER token, treating "*" as the HMMER
// convention for a transition/emission that never occurs (probability 0).
// HMMER stores negated natural logs; the caller negates the return value
// back to the package's standard (higher = more probable) convention.
func parseHMMERFloat(tok string) (float64, error) {
	if tok == "*" {
		return -hmm.NegInf, nil
	}
	return strconv.ParseFloat(tok, 64)
}

// buildFromColumns mirrors internal/hmm.Profile's state layout exactly, but
// takes already-logged probabilities straight from the file rather than
// logging linear probabilities itself. The last match state's exit
// transition is always derived as ln(1-exp(m->i)) rather than read from the
// file, which keeps it valid when the model was subset (see ReadFile's
// startPos/endPos).
func buildFromColumns(columns []columnProbs, prefix string) (*hmm.HMM, error) {
	p := ""
	if prefix != "" {
		p = prefix
		if !strings.HasSuffix(p, "_") {
			p += "_"
		}
	}
	id := func(suffix string) string { return p + suffix }

	h := hmm.New()
	h.Add(hmm.SilentState(id("start")))
	h.Add(hmm.State{
		ID:       id("M0"),
		Emission: hmm.Emission{Probs: columns[0].matchEmit},
		Incoming: []hmm.Transition{{From: id("start"), LogProb: 0.0}},
	})
	h.Add(hmm.State{
		ID:       id("I0"),
		Emission: hmm.Emission{Probs: columns[0].insEmit},
		Incoming: []hmm.Transition{
			{From: id("M0"), LogProb: columns[0].trans[1]},
			{From: id("I0"), LogProb: columns[0].trans[4]},
		},
	})

	L := len(columns)
	for i := 1; i < L; i++ {
		prev := columns[i-1]

		matchIncoming := []hmm.Transition{
			{From: id(mState(i - 1)), LogProb: prev.trans[0]},
			{From: id(iState(i - 1)), LogProb: prev.trans[3]},
		}
		if i > 1 {
			matchIncoming = append(matchIncoming, hmm.Transition{From: id(dState(i - 1)), LogProb: prev.trans[5]})
		}
		h.Add(hmm.State{ID: id(mState(i)), Emission: hmm.Emission{Probs: columns[i].matchEmit}, Incoming: matchIncoming})

		h.Add(hmm.State{
			ID:       id(iState(i)),
			Emission: hmm.Emission{Probs: columns[i].insEmit},
			Incoming: []hmm.Transition{
				{From: id(mState(i)), LogProb: columns[i].trans[1]},
				{From: id(iState(i)), LogProb: columns[i].trans[4]},
			},
		})

		delIncoming := []hmm.Transition{
			{From: id(mState(i - 1)), LogProb: prev.trans[2]},
		}
		if i > 1 {
			delIncoming = append(delIncoming, hmm.Transition{From: id(dState(i - 1)), LogProb: prev.trans[6]})
		}
		h.Add(hmm.State{ID: id(dState(i)), Emission: hmm.Emission{Silent: true}, Incoming: delIncoming})
	}

	last := columns[L-1]
	lastIdx := L - 1
	matchExit := safeLn1MinusExp(last.trans[1])
	endIncoming := []hmm.Transition{
		{From: id(mState(lastIdx)), LogProb: matchExit},
		{From: id(iState(lastIdx)), LogProb: last.trans[3]},
	}
	if lastIdx >= 1 {
		endIncoming = append(endIncoming, hmm.Transition{From: id(dState(lastIdx)), LogProb: 0.0})
	}
	h.Add(hmm.State{ID: id("end"), Emission: hmm.Emission{Silent: true}, Incoming: endIncoming})

	if err := h.OrderStates(); err != nil {
		return nil, err
	}
	return h, nil
}

func mState(i int) string { return "M" + strconv.Itoa(i) }
func iState(i int) string { return "I" + strconv.Itoa(i) }
func dState(i int) string { return "D" + strconv.Itoa(i) }

// safeLn1MinusExp computes ln(1 - exp(logP)), the renormalized match-exit
// probability the original importer derives rather than trusts verbatim,
// since subsetting a model's columns invalidates the file's own exit value.
func safeLn1MinusExp(logP float64) float64 {
	if logP == hmm.NegInf {
		return 0.0
	}
	p := math.Exp(logP)
	if p >= 1.0 {
		return hmm.NegInf
	}
	return math.Log(1.0 - p)
}
