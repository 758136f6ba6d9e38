package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
)

// runKeysCmd implements `coc keys ensure|list|rotate|revoke`.
func runKeysCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: coc keys <ensure|list|rotate|revoke> [flags]")
		return 2
	}

	switch args[0] {
	case "ensure":
		return runKeysEnsure(args[1:], stdout, stderr)
	case "list":
		return runKeysList(args[1:], stdout, stderr)
	case "rotate":
		return runKeysRotate(args[1:], stdout, stderr)
	case "revoke":
		return runKeysRevoke(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown keys subcommand: %s\n", args[0])
		return 2
	}
}

func parseRoles(csv string) ([]contracts.Role, error) {
	var roles []contracts.Role
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		role := contracts.Role(part)
		if err := role.Validate(); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}
	return roles, nil
}

func runKeysEnsure(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("keys ensure", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var agentID, displayName, rolesCSV string
	cmd.StringVar(&agentID, "agent", "", "agent id (REQUIRED)")
	cmd.StringVar(&displayName, "name", "", "human-readable display name (REQUIRED)")
	cmd.StringVar(&rolesCSV, "roles", "", "comma-separated roles, e.g. planner,executor (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if agentID == "" || displayName == "" || rolesCSV == "" {
		fmt.Fprintln(stderr, "error: --agent, --name, and --roles are required")
		return 2
	}
	roles, err := parseRoles(rolesCSV)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	e, err := openEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	mat, err := e.keys.EnsureKey(agentID, displayName, roles)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	data, _ := json.MarshalIndent(mat.Identity, "", "  ")
	fmt.Fprintln(stdout, string(data))
	return 0
}

func runKeysList(args []string, stdout, stderr io.Writer) int {
	e, err := openEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	identities, err := e.keys.List()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	data, _ := json.MarshalIndent(identities, "", "  ")
	fmt.Fprintln(stdout, string(data))
	return 0
}

func runKeysRevoke(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("keys revoke", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var keyID, reason string
	cmd.StringVar(&keyID, "key", "", "key id to revoke (REQUIRED)")
	cmd.StringVar(&reason, "reason", "", "reason for revocation")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if keyID == "" {
		fmt.Fprintln(stderr, "error: --key is required")
		return 2
	}
	e, err := openEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	if err := e.keys.Revoke(keyID, reason); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	fmt.Fprintf(stdout, "revoked %s\n", keyID)
	return 0
}

// runKeysRotate revokes the agent's current identity, if any, and mints a
// fresh one under the same agent id and roles. EnsureKey already mints a
// fresh keypair whenever no active (non-revoked) identity exists, so rotate
// is revoke-then-ensure.
func runKeysRotate(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("keys rotate", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var agentID, displayName, rolesCSV, keyID, reason string
	cmd.StringVar(&agentID, "agent", "", "agent id (REQUIRED)")
	cmd.StringVar(&displayName, "name", "", "human-readable display name (REQUIRED)")
	cmd.StringVar(&rolesCSV, "roles", "", "comma-separated roles (REQUIRED)")
	cmd.StringVar(&keyID, "key", "", "current key id to retire (REQUIRED)")
	cmd.StringVar(&reason, "reason", "rotation", "reason recorded against the retired key")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if agentID == "" || displayName == "" || rolesCSV == "" || keyID == "" {
		fmt.Fprintln(stderr, "error: --agent, --name, --roles, and --key are required")
		return 2
	}
	roles, err := parseRoles(rolesCSV)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	e, err := openEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	if err := e.keys.Revoke(keyID, reason); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	mat, err := e.keys.EnsureKey(agentID, displayName, roles)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	data, _ := json.MarshalIndent(mat.Identity, "", "  ")
	fmt.Fprintln(stdout, string(data))
	return 0
}
