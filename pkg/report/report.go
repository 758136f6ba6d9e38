// Package report renders a VerificationReport to JSON and to the
// human-readable text format the CLI prints, and derives a deduplicated
// "recommended next actions" list from a report's failures.
//
// Grounded on the teacher's core/cmd/helm/verify_cmd.go, which writes a
// structured JSON report to file ("auditor mode") alongside a short
// pass/fail text summary to stdout — the same dual-format split, pulled out
// of the CLI into a reusable package since spec.md §4.9 requires both
// tracestore persistence (JSON) and operator-facing text.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
)

// JSON renders report as indented JSON.
func JSON(r contracts.VerificationReport) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}
	return data, nil
}

// Text renders report as the operator-facing plain-text summary: verdict
// line, failures sorted most-to-least severe, warnings, per-check timing,
// and a deduplicated recommended-actions block.
func Text(r contracts.VerificationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "trace %s: %s\n", r.TraceID, strings.ToUpper(string(r.VerificationStatus)))
	fmt.Fprintf(&b, "%s\n", r.Summary)
	fmt.Fprintf(&b, "report %s, verified at %s, policy profile %s\n\n", r.ReportID, r.VerifiedAt, r.PolicyProfile)

	if len(r.Failures) > 0 {
		failures := make([]contracts.Failure, len(r.Failures))
		copy(failures, r.Failures)
		sort.SliceStable(failures, func(i, j int) bool {
			return failures[i].Severity.Less(failures[j].Severity)
		})

		b.WriteString("failures:\n")
		for _, f := range failures {
			ref := f.EventID
			if f.ArtifactHash != "" {
				ref = f.ArtifactHash
			}
			fmt.Fprintf(&b, "  [%s] %s (%s) %s: %s\n", f.Severity, f.FailureCode, f.VerificationStep, ref, f.Message)
		}
		b.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		b.WriteString("warnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  [%s] (%s) %s: %s\n", w.Code, w.VerificationStep, w.EventID, w.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString("checks:\n")
	for _, c := range r.Checks {
		fmt.Fprintf(&b, "  %-32s %-8s %6dms  %s\n", c.CheckID, c.Status, c.ElapsedMs, c.Name)
	}

	if actions := RecommendedActions(r); len(actions) > 0 {
		b.WriteString("\nrecommended next actions:\n")
		for _, a := range actions {
			fmt.Fprintf(&b, "  - %s\n", a)
		}
	}

	fmt.Fprintf(&b, "\n%d event(s), %d artifact reference(s), %dms total\n",
		r.Metrics.EventCount, r.Metrics.ArtifactReferenceCount, r.Metrics.VerificationDurationMs)

	return b.String()
}

// RecommendedActions collects each failure's remediation text, deduplicated
// and ordered by the severity of the failure that first suggested it.
func RecommendedActions(r contracts.VerificationReport) []string {
	failures := make([]contracts.Failure, len(r.Failures))
	copy(failures, r.Failures)
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].Severity.Less(failures[j].Severity)
	})

	seen := map[string]bool{}
	var actions []string
	for _, f := range failures {
		if f.RecommendedRemediation == "" || seen[f.RecommendedRemediation] {
			continue
		}
		seen[f.RecommendedRemediation] = true
		actions = append(actions, f.RecommendedRemediation)
	}
	return actions
}
