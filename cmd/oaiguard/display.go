package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/steveyegge/oaiguard/internal/logsource"
	"github.com/steveyegge/oaiguard/internal/types"
)

// printIncident renders a finished incident for a terminal.
func printIncident(w io.Writer, inc *types.Incident, path string) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s %s\n", cyan("Incident"), gray(inc.Timestamp))
	fmt.Fprintf(w, "  Error:   %s\n", inc.ErrorLine)
	fmt.Fprintf(w, "  Source:  %s\n", sourceLabel(inc.Source))
	fmt.Fprintf(w, "  Summary: %s\n", inc.Summary)
	fmt.Fprintf(w, "  Risk:    %s", riskLabel(inc.RiskLevel))
	if inc.NeedHumanReview {
		fmt.Fprintf(w, "  %s", yellow("(needs human review)"))
	}
	fmt.Fprintln(w)

	printList(w, "Causes", inc.Causes)
	printList(w, "Diagnostics", inc.DiagnosticsCmds)
	printList(w, "Fixes", inc.FixCmds)

	if len(inc.Results) > 0 {
		fmt.Fprintf(w, "  %s\n", yellow("Results:"))
		for _, r := range inc.Results {
			fmt.Fprintf(w, "    %s %s\n", resultLabel(r), r.Cmd)
			if r.VerifyState != "" {
				fmt.Fprintf(w, "      %s\n", gray("state: "+r.VerifyState))
			}
			if r.Skipped && r.Reason != "" {
				fmt.Fprintf(w, "      %s\n", gray(r.Reason))
			}
		}
	}
	if inc.AutoRan {
		fmt.Fprintf(w, "  %s\n", color.New(color.FgGreen).Sprint("Auto-remediation ran"))
	}
	if path != "" {
		fmt.Fprintf(w, "  %s %s\n", gray("Saved:"), path)
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s\n", color.New(color.FgYellow).Sprint(title+":"))
	for _, it := range items {
		fmt.Fprintf(w, "    - %s\n", it)
	}
}

func sourceLabel(s types.Source) string {
	switch s {
	case types.SourceNone:
		return color.New(color.FgRed).Sprint(string(s))
	case types.SourceHistory:
		return color.New(color.FgHiBlack).Sprint(string(s))
	default:
		return color.New(color.FgCyan).Sprint(string(s))
	}
}

func riskLabel(r types.RiskLevel) string {
	switch r {
	case types.RiskLow:
		return color.New(color.FgGreen).Sprint(string(r))
	case types.RiskMedium:
		return color.New(color.FgYellow).Sprint(string(r))
	default:
		return color.New(color.FgRed, color.Bold).Sprint(string(r))
	}
}

// resultLabel is a short status tag for one command result.
func resultLabel(r types.CommandResult) string {
	switch {
	case r.Skipped:
		return color.New(color.FgYellow).Sprint("[skipped]")
	case r.RC == 0:
		return color.New(color.FgGreen).Sprint("[ok]")
	default:
		return color.New(color.FgRed).Sprintf("[rc=%d]", r.RC)
	}
}

// isNothingFound reports input failures that end a command successfully.
func isNothingFound(err error) bool {
	return errors.Is(err, logsource.ErrNoErrorFound) || errors.Is(err, logsource.ErrMalformedInput)
}

func printNothingFound(w io.Writer, what string, err error) {
	yellow := color.New(color.FgYellow).SprintFunc()
	msg := "no error line found"
	if errors.Is(err, logsource.ErrMalformedInput) {
		msg = strings.TrimSpace(err.Error())
	}
	fmt.Fprintf(w, "%s Nothing found in %s: %s\n", yellow("✨"), what, msg)
}
