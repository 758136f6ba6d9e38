package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Adjoshi06/chainofCommand/pkg/tracestore"
)

// runRepairCmd implements `coc repair`: resyncs a trace's head hash and
// event count with its events log. read_events already truncates a
// malformed tail on its own (verify and the API hit this path implicitly);
// repair exists for an operator to force that resync explicitly, or to
// recover a trace whose session metadata fell out of sync with the file
// for some other reason.
func runRepairCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("repair", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var traceArg string
	cmd.StringVar(&traceArg, "trace", "", "trace id or path (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if traceArg == "" {
		fmt.Fprintln(stderr, "error: --trace is required")
		return 2
	}

	e, err := openEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}

	traceID, err := e.traces.ResolveTraceID(traceArg)
	if errors.Is(err, tracestore.ErrNotFound) {
		fmt.Fprintf(stderr, "error: trace not found: %s\n", traceArg)
		return 3
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}

	truncated, err := e.ledger.Repair(traceID)
	if err != nil {
		fmt.Fprintf(stderr, "error: repair %s: %v\n", traceID, err)
		return 4
	}

	if truncated == 0 {
		fmt.Fprintf(stdout, "trace %s: no malformed tail found, nothing to repair\n", traceID)
	} else {
		fmt.Fprintf(stdout, "trace %s: truncated %d bytes of malformed tail\n", traceID, truncated)
	}
	return 0
}
