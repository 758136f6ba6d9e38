package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/report"
	"github.com/Adjoshi06/chainofCommand/pkg/tracestore"
	"github.com/Adjoshi06/chainofCommand/pkg/verifier"
)

// runVerifyCmd implements `coc verify`.
//
// Exit codes (per the CLI contract consumed by CI):
//
//	0 = pass (including pass-with-warnings)
//	1 = verification fail
//	2 = input/schema validation error (bad flags)
//	3 = runtime protocol error (trace not found); an unreadable events log
//	    is reported as a CHK_SCHEMA_CONFORMANCE failure, so it exits 1
//	4 = internal error (config, store, or other infrastructure failure)
//	5 = policy preflight block (--require-finalized on a still-running trace)
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var (
		traceArg                    string
		policy                      string
		jsonOutput                  bool
		jsonOutFile                 string
		requireFinalized            bool
		allowIncompleteFinalization bool
	)
	cmd.StringVar(&traceArg, "trace", "", "trace id or path (REQUIRED)")
	cmd.StringVar(&policy, "policy", "", "override policy profile: strict|default|lenient")
	cmd.BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	cmd.StringVar(&jsonOutFile, "json-out", "", "write the structured report to file")
	cmd.BoolVar(&requireFinalized, "require-finalized", false, "block (exit 5) if the trace has not reached a terminal status")
	cmd.BoolVar(&allowIncompleteFinalization, "allow-incomplete-finalization", false, "downgrade a missing verification_run_completed to a warning instead of a failure")
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

	profile := e.cfg.PolicyProfile
	if policy != "" {
		profile = contracts.PolicyProfile(policy)
		if err := profile.Validate(); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 2
		}
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

	if requireFinalized {
		session, err := e.traces.LoadTrace(traceID)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 4
		}
		if session.Status == contracts.TraceRunning {
			fmt.Fprintf(stderr, "blocked: trace %s has not reached a terminal status\n", traceID)
			return 5
		}
	}

	pipeline := verifier.New(e.traces, e.ledger, e.store, e.keys, profile).
		WithAllowIncompleteFinalization(allowIncompleteFinalization)
	rep, err := pipeline.Verify(traceID)
	if errors.Is(err, tracestore.ErrNotFound) {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 3
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}

	if err := e.traces.SaveReport(traceID, rep); err != nil {
		fmt.Fprintf(stderr, "error: save report: %v\n", err)
		return 4
	}

	if jsonOutFile != "" {
		data, err := report.JSON(rep)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 4
		}
		if err := os.WriteFile(jsonOutFile, data, 0o644); err != nil {
			fmt.Fprintf(stderr, "error: write %s: %v\n", jsonOutFile, err)
			return 4
		}
	}

	if jsonOutput {
		data, err := report.JSON(rep)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 4
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		fmt.Fprintln(stdout, report.Text(rep))
	}

	if rep.VerificationStatus == contracts.StatusFail {
		return 1
	}
	return 0
}
