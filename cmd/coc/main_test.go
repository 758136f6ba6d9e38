package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func runCLI(t *testing.T, home string, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	t.Setenv("COC_HOME", home)
	var out, errOut bytes.Buffer
	code = Run(append([]string{"coc"}, args...), &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestRun_UnknownCommandReturnsExitTwo(t *testing.T) {
	home := t.TempDir()
	_, _, code := runCLI(t, home, "bogus")
	if code != 2 {
		t.Fatalf("code = %d, want 2", code)
	}
}

func TestRun_KeysEnsureAndList(t *testing.T) {
	home := t.TempDir()
	out, stderr, code := runCLI(t, home, "keys", "ensure", "--agent", "a1", "--name", "Agent One", "--roles", "planner")
	if code != 0 {
		t.Fatalf("keys ensure failed: code=%d stderr=%s", code, stderr)
	}
	var identity struct {
		AgentID string `json:"agent_id"`
		KeyID   string `json:"key_id"`
	}
	if err := json.Unmarshal([]byte(out), &identity); err != nil {
		t.Fatalf("parse identity: %v", err)
	}
	if identity.AgentID != "a1" || identity.KeyID == "" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	out, _, code = runCLI(t, home, "keys", "list")
	if code != 0 {
		t.Fatalf("keys list failed: code=%d", code)
	}
	if !strings.Contains(out, "a1") {
		t.Fatalf("keys list missing agent: %s", out)
	}
}

func TestRun_KeysEnsureRejectsMissingFlags(t *testing.T) {
	home := t.TempDir()
	_, _, code := runCLI(t, home, "keys", "ensure", "--agent", "a1")
	if code != 2 {
		t.Fatalf("code = %d, want 2", code)
	}
}

func TestRun_TraceInitAndVerify(t *testing.T) {
	home := t.TempDir()
	out, stderr, code := runCLI(t, home, "trace", "init", "--task", "t1", "--participants", "planner,executor")
	if code != 0 {
		t.Fatalf("trace init failed: code=%d stderr=%s", code, stderr)
	}
	var session struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal([]byte(out), &session); err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if session.TraceID == "" {
		t.Fatal("empty trace_id")
	}

	// A freshly initialized trace has no final_statement_signed or
	// verification_run_started event yet, so finalization integrity fails
	// regardless of the trace's running status.
	out, _, code = runCLI(t, home, "verify", "--trace", session.TraceID, "--json")
	if code != 1 {
		t.Fatalf("verify code = %d, want 1 (unfinalized trace fails finalization integrity): stdout=%s", code, out)
	}
}

func TestRun_VerifyUnknownTraceReturnsExitThree(t *testing.T) {
	home := t.TempDir()
	_, _, code := runCLI(t, home, "verify", "--trace", "01DOESNOTEXIST0000000000X")
	if code != 3 {
		t.Fatalf("code = %d, want 3", code)
	}
}

func TestRun_RepairNoOpOnCleanLedger(t *testing.T) {
	home := t.TempDir()
	out, _, code := runCLI(t, home, "trace", "init", "--task", "t1", "--participants", "planner")
	if code != 0 {
		t.Fatalf("trace init failed: %d", code)
	}
	var session struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal([]byte(out), &session); err != nil {
		t.Fatalf("parse session: %v", err)
	}

	out, _, code = runCLI(t, home, "repair", "--trace", session.TraceID)
	if code != 0 {
		t.Fatalf("repair failed: %d", code)
	}
	if !strings.Contains(out, "nothing to repair") {
		t.Fatalf("expected no-op message, got: %s", out)
	}
}

func TestRun_DemoProducesPassingTrace(t *testing.T) {
	home := t.TempDir()
	out, stderr, code := runCLI(t, home, "demo")
	if code != 0 {
		t.Fatalf("demo failed: code=%d stderr=%s", code, stderr)
	}
	if !strings.Contains(out, "demo trace:") {
		t.Fatalf("missing demo trace header: %s", out)
	}
	if !strings.Contains(out, ": PASS\n") {
		t.Fatalf("expected a PASS verdict: %s", out)
	}
}
