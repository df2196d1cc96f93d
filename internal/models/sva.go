// Package models provides the built-in reference HMMs shipped alongside the
// builder algebra: composite models assembled from named motif regions via
// internal/hmm's construction functions, rather than imported from a
// Dfam/HMMER text file.
package models

import (
	"github.com/talkowski-lab/sva-typer/internal/dna"
	"github.com/talkowski-lab/sva-typer/internal/hmm"
)

// SVA returns the built-in composite model for the SvA retrotransposon
// consensus: a single-motif hexamer region followed by a three-motif VNTR
// region. Both regions repeat independently and report their own skip-arm
// spans, renamed to "skip" by the decoder's interval post-processing.
func SVA(settings hmm.Settings) (*hmm.HMM, error) {
	hexamer, err := hmm.BuildRegion(hmm.Region{
		Name: "hexamer_region",
		Motifs: []hmm.NamedMotif{
			{Name: "hex", Motif: mustParse("CCCTCT")},
		},
	}, settings)
	if err != nil {
		return nil, err
	}

	vntr, err := hmm.BuildRegion(hmm.Region{
		Name: "VNTR_region",
		Motifs: []hmm.NamedMotif{
			{Name: "VNTR_1", Motif: mustParse("GCCTCTGCCCGGCCGCCCAGTCTGGGAAGTGAGGAGC")},
			{Name: "VNTR_2", Motif: mustParse("GCCCGGCCAGCCGCCCCGTCCGGGAGGAGGTGGGGGGGTCAGCCCCC")},
			{Name: "VNTR_3", Motif: mustParse("GCCGCCCCGACCGGGAAGTGAGGAGCCCCTCTGCCCG")},
		},
	}, settings)
	if err != nil {
		return nil, err
	}

	return hmm.Append([]*hmm.HMM{hexamer, vntr})
}

func mustParse(s string) []dna.Symbol {
	m, err := dna.ParseSequence([]byte(s))
	if err != nil {
		panic(err)
	}
	return m
}
