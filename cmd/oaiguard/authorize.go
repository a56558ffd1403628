package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/oaiguard/internal/remediation"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize <command>",
	Short: "Explain whether a command would be allowed or auto-run",
	Long: `Check a command against the allowlist, the systemctl grammar and the
configured auto-run policy without executing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := args[0]
		auth := remediation.NewAuthorizer(cfg.AutoPolicy, cfg.WhitelistFile)

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		verdict := func(ok bool) string {
			if ok {
				return green("yes")
			}
			return red("no")
		}

		fmt.Printf("Command:     %s\n", c)
		fmt.Printf("Allowlisted: %s\n", verdict(remediation.Allowed(c, cfg.Allowlist)))

		manual := auth.Authorize(c)
		fmt.Printf("Authorized:  %s  %s\n", verdict(manual.Allowed), manual.Reason)

		auto := auth.AuthorizeAuto(c)
		fmt.Printf("Auto-run:    %s  %s\n", verdict(auto.Allowed), auto.Reason)
		fmt.Printf("Policy:      %s\n", cfg.AutoPolicy)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
}
