package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/oaiguard/internal/logsource"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Paste log lines and triage them one at a time",
	Long: `Start a prompt that triages every entered line. Earlier lines of the
session are kept as context for later ones. Type 'exit' or press Ctrl+D to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(runInteractive)
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(ctx context.Context, a *app) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("oaiguard> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Paste a log line to triage it. 'exit' quits.")
	session := newSessionContext(a.cfg.ContextLines)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		ev := logsource.NewEvent(line, session.add(line))
		if err := a.triageAndPrint(ctx, ev); err != nil {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

// sessionContext keeps the most recent lines typed in one session.
type sessionContext struct {
	max   int
	lines []string
}

func newSessionContext(max int) *sessionContext {
	if max < 1 {
		max = 1
	}
	return &sessionContext{max: max}
}

// add records line and returns the context ending with it.
func (s *sessionContext) add(line string) []string {
	s.lines = append(s.lines, line)
	if len(s.lines) > s.max {
		s.lines = s.lines[len(s.lines)-s.max:]
	}
	return append([]string(nil), s.lines...)
}
