package main

import (
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/talkowski-lab/sva-typer/internal/dna"
	"github.com/talkowski-lab/sva-typer/internal/fastaio"
	"github.com/talkowski-lab/sva-typer/internal/hmm"
	"github.com/talkowski-lab/sva-typer/internal/hmmio"
	"github.com/talkowski-lab/sva-typer/internal/models"
	"github.com/talkowski-lab/sva-typer/internal/tsvio"
)

// params collects every flag value; Execute wires them into a run.
type params struct {
	outputFile string

	matchToMatch     float64
	matchToIns       float64
	insExtend        float64
	delExtend        float64
	loopProb         float64
	enterSkipLoop    float64
	skipToSkip       float64
	matchEmitCorrect float64

	importHMM string
	hmmPrefix string
	startPos  int
	endPos    int

	skipErrors    bool
	verbose       bool
	workers       int
	preserveOrder bool

	verb *log.Logger
}

// Execute builds and runs the root command, returning any error so main can
// set the process exit code.
func Execute() error {
	p := &params{}

	cmd := &cobra.Command{
		Use:   "svatyper [flags] FILE",
		Short: "Annotate FASTA sequences with profile-HMM repeat regions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.run(args[0])
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&p.outputFile, "output", "o", "", "output TSV path (default: standard output)")

	defaults := hmm.DefaultSettings()
	pf.Float64Var(&p.matchToMatch, "match_to_match", defaults.MatchToMatch, "probability of match state to match")
	pf.Float64Var(&p.matchToIns, "match_to_ins", defaults.MatchToIns, "probability of match state to insertion")
	pf.Float64Var(&p.insExtend, "ins_extend", defaults.InsExtend, "probability of insertion state extension")
	pf.Float64Var(&p.delExtend, "del_extend", defaults.DelExtend, "probability of deletion state extension")
	pf.Float64Var(&p.loopProb, "loop_prob", defaults.LoopProb, "probability of a region repeating")
	pf.Float64Var(&p.enterSkipLoop, "enter_skip_loop", defaults.EnterSkipLoop, "probability of entering the skip arm on repeat")
	pf.Float64Var(&p.skipToSkip, "skip_to_skip", defaults.SkipToSkip, "probability of skip state continuing")
	pf.Float64Var(&p.matchEmitCorrect, "match_emit_correct", defaults.MatchEmitCorrect, "probability a match state emits its reference symbol")

	pf.StringVar(&p.importHMM, "import-hmm", "", "Dfam/HMMER text file to build the model from, instead of the built-in SVA model")
	pf.StringVar(&p.hmmPrefix, "hmm-prefix", "", "identifier prefix for states built from --import-hmm")
	pf.IntVar(&p.startPos, "start-pos", -1, "first model column to import from --import-hmm (default: 0)")
	pf.IntVar(&p.endPos, "end-pos", -1, "one past the last model column to import from --import-hmm (default: all columns)")

	pf.BoolVar(&p.skipErrors, "skip-errors", false, "log and skip records that fail to parse or decode, instead of aborting")
	pf.BoolVarP(&p.verbose, "verbose", "v", false, "log progress to standard error")
	pf.IntVar(&p.workers, "workers", runtime.NumCPU(), "number of concurrent decoder workers")
	pf.BoolVar(&p.preserveOrder, "preserve-order", false, "write records in input order, instead of completion order")

	return cmd.Execute()
}

func (p *params) run(inputFile string) error {
	p.verb = log.New(io.Discard, "", 0)
	if p.verbose {
		p.verb = log.New(os.Stderr, "svatyper: ", log.LstdFlags)
	}

	settings, err := hmm.NewSettings(p.matchToMatch, p.matchToIns, p.insExtend, p.delExtend, p.loopProb, p.enterSkipLoop, p.skipToSkip, p.matchEmitCorrect)
	if err != nil {
		return errors.Wrap(err, "invalid build parameters")
	}

	model, err := p.buildModel(settings)
	if err != nil {
		return errors.Wrap(err, "building model")
	}
	if err := model.CheckValid(); err != nil {
		return errors.Wrap(err, "model failed validation")
	}

	out, closeOut, err := p.openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	reader, err := fastaio.Open(inputFile)
	if err != nil {
		return errors.Wrap(err, "opening input")
	}
	defer reader.Close()

	return p.decodeAll(model, reader, out)
}

func (p *params) buildModel(settings hmm.Settings) (*hmm.HMM, error) {
	if p.importHMM == "" {
		return models.SVA(settings)
	}

	var startPos, endPos *int
	if p.startPos >= 0 {
		startPos = &p.startPos
	}
	if p.endPos >= 0 {
		endPos = &p.endPos
	}
	return hmmio.ReadFile(p.importHMM, p.hmmPrefix, startPos, endPos)
}

func (p *params) openOutput() (io.Writer, func(), error) {
	if p.outputFile == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(p.outputFile)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "creating output file %s", p.outputFile)
	}
	return f, func() { f.Close() }, nil
}

// decodedResult pairs one record's decoding outcome with its input order,
// so decodeAll's writer can honor --preserve-order without serializing the
// decode work itself.
type decodedResult struct {
	index     int
	recordID  string
	intervals []dna.Interval
	err       error
}

// decodeAll fans FASTA records out to a bounded pool of decoder workers and
// funnels their results through a single writer goroutine, so the TSV
// writer never sees concurrent writes. Reading is sequential (FASTA records
// are consumed one at a time from the single input stream); decoding,
// which dominates cost for long queries, runs in parallel.
func (p *params) decodeAll(model *hmm.HMM, reader *fastaio.Reader, out io.Writer) error {
	workers := p.workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan indexedRecord, workers)
	results := make(chan decodedResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- p.decodeOne(model, job)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- p.writeResults(out, results)
	}()

	index := 0
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			close(jobs)
			<-writerDone
			return errors.Wrap(err, "reading FASTA record")
		}
		select {
		case jobs <- indexedRecord{index: index, record: rec}:
		case err := <-writerDone:
			// The writer only finishes before jobs is closed when it failed.
			close(jobs)
			return err
		}
		index++
	}
	close(jobs)

	return <-writerDone
}

type indexedRecord struct {
	index  int
	record fastaio.Record
}

func (p *params) decodeOne(model *hmm.HMM, job indexedRecord) decodedResult {
	p.verb.Printf("decoding record %d: %s", job.index, job.record.ID)

	query, err := dna.ParseSequence(job.record.Sequence)
	if err != nil {
		return decodedResult{index: job.index, recordID: job.record.ID, err: errors.Wrapf(err, "record %s", job.record.ID)}
	}
	intervals, err := hmm.Decode(model, query)
	if err != nil {
		return decodedResult{index: job.index, recordID: job.record.ID, err: errors.Wrapf(err, "record %s", job.record.ID)}
	}
	return decodedResult{index: job.index, recordID: job.record.ID, intervals: intervals}
}

// writeResults drains results, optionally buffering out-of-order arrivals
// until they can be written in input order.
func (p *params) writeResults(out io.Writer, results <-chan decodedResult) error {
	w, err := tsvio.NewWriter(out)
	if err != nil {
		return errors.Wrap(err, "writing TSV header")
	}

	if !p.preserveOrder {
		for r := range results {
			if err := p.handleResult(w, r); err != nil {
				return err
			}
		}
		return w.Flush()
	}

	pending := make(map[int]decodedResult)
	next := 0
	for r := range results {
		pending[r.index] = r
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			if err := p.handleResult(w, ready); err != nil {
				return err
			}
			delete(pending, next)
			next++
		}
	}

	remaining := make([]decodedResult, 0, len(pending))
	for _, r := range pending {
		remaining = append(remaining, r)
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].index < remaining[j].index })
	for _, r := range remaining {
		if err := p.handleResult(w, r); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (p *params) handleResult(w *tsvio.Writer, r decodedResult) error {
	if r.err != nil {
		if p.skipErrors {
			p.verb.Printf("skipping: %v", r.err)
			return nil
		}
		return r.err
	}
	return w.WriteRecord(r.recordID, r.intervals)
}
