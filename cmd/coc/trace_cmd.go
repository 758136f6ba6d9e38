package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
)

// runTraceCmd implements `coc trace init`.
func runTraceCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: coc trace <init> [flags]")
		return 2
	}
	switch args[0] {
	case "init":
		return runTraceInit(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown trace subcommand: %s\n", args[0])
		return 2
	}
}

func runTraceInit(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("trace init", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var taskID, rolesCSV, profile string
	cmd.StringVar(&taskID, "task", "", "task id this trace covers (REQUIRED)")
	cmd.StringVar(&rolesCSV, "participants", "", "comma-separated participant roles (REQUIRED)")
	cmd.StringVar(&profile, "policy", string(contracts.PolicyDefault), "policy profile: strict|default|lenient")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if taskID == "" || rolesCSV == "" {
		fmt.Fprintln(stderr, "error: --task and --participants are required")
		return 2
	}
	roles, err := parseRoles(rolesCSV)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	policyProfile := contracts.PolicyProfile(profile)
	if err := policyProfile.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	e, err := openEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}

	traceID := contracts.NewULID()
	session := contracts.NewTraceSession(traceID, taskID, roles, policyProfile)
	if err := e.traces.CreateTrace(session); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}

	data, _ := json.MarshalIndent(session, "", "  ")
	fmt.Fprintln(stdout, string(data))
	return 0
}
