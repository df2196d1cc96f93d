package hmm

import (
	"strings"

	"github.com/talkowski-lab/sva-typer/internal/dna"
)

// pathToIntervals scans a traceback path for naming markers and collapses
// it into the named intervals a caller sees: a state ending in "_start"
// (but not "_loop_start", the builder's internal parallelize frame) opens
// an interval named by stripping the suffix; a state ending in "_end" (but
// not "_loop_end") closes the open interval of the matching name. An open's
// start position is its column adjusted so that column 0 maps to query
// position 0 and any column t>=1 maps to t-1; a close's stop is its column
// unchanged (the number of symbols consumed, i.e. the exclusive end). Opens
// left unmatched at the end of the path are dropped.
func pathToIntervals(path []pathStep) []dna.Interval {
	var open []dna.Interval
	var closed []dna.Interval

	for _, step := range path {
		if name, ok := openName(step.state); ok {
			open = append(open, dna.Interval{Region: name, Start: columnToPosition(step.col), Stop: dna.Sentinel})
			continue
		}
		if name, ok := closeName(step.state); ok {
			for i := len(open) - 1; i >= 0; i-- {
				if open[i].Region == name && open[i].Open() {
					open[i].Stop = step.col
					closed = append(closed, open[i])
					open = append(open[:i], open[i+1:]...)
					break
				}
			}
		}
	}

	return trimSkipArms(closed)
}

func columnToPosition(col int) int {
	if col == 0 {
		return 0
	}
	return col - 1
}

func openName(id string) (string, bool) {
	if !strings.HasSuffix(id, "_start") {
		return "", false
	}
	if strings.HasSuffix(id, "_loop_start") {
		return "", false
	}
	return strings.TrimSuffix(id, "_start"), true
}

func closeName(id string) (string, bool) {
	if !strings.HasSuffix(id, "_end") {
		return "", false
	}
	if strings.HasSuffix(id, "_loop_end") {
		return "", false
	}
	return strings.TrimSuffix(id, "_end"), true
}

// trimSkipArms trims every region's own interval by an abutting
// "<region>_skip" interval sharing one of its endpoints, and renames that
// skip interval to "skip". Every region name present in the path is
// checked, not a fixed pair, so a composite with any number of repeating
// regions is handled uniformly.
func trimSkipArms(intervals []dna.Interval) []dna.Interval {
	out := make([]dna.Interval, len(intervals))
	copy(out, intervals)

	for i := range out {
		region := out[i]
		skipName := region.Region + "_skip"
		for j := range out {
			if out[j].Region != skipName {
				continue
			}
			skip := &out[j]
			switch {
			case skip.Start == region.Start:
				out[i].Start = skip.Stop
				skip.Region = "skip"
			case skip.Stop == region.Stop:
				out[i].Stop = skip.Start
				skip.Region = "skip"
			}
		}
	}

	return out
}
