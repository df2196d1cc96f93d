// Command svatyper annotates FASTA query sequences with the repeat-region
// intervals a profile HMM decodes from them, writing results as TSV.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
