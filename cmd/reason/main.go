// Command reason materializes a rule program over ABox and TBox triple
// files and reports timings and triple counts.
//
// Usage:
//
//	reason --abox abox.nt --tbox tbox.nt [--program rules.edn]
//	reason compare --abox abox.nt --tbox tbox.nt
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
