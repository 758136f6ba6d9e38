package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Adjoshi06/chainofCommand/internal/demo"
	"github.com/Adjoshi06/chainofCommand/pkg/report"
)

// runDemoCmd implements `coc demo`: builds one scripted good-path trace end
// to end and prints its verification report. Peripheral — nothing in pkg/
// depends on internal/demo.
func runDemoCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("demo", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "print the resulting report as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	e, err := openEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}

	result, err := demo.Run(e.traces, e.store, e.keys)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}

	fmt.Fprintf(stdout, "demo trace: %s (%d events)\n", result.TraceID, len(result.EventIDs))
	if jsonOutput {
		data, err := report.JSON(result.Report)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 4
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		fmt.Fprintln(stdout, report.Text(result.Report))
	}
	return 0
}
