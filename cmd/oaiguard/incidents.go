package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/oaiguard/internal/incident"
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Inspect persisted incidents",
}

var incidentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incidents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		store, err := incident.NewStore(cfg.IncidentDir)
		if err != nil {
			return err
		}
		entries, err := store.List(limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("No incidents in %s\n", cfg.IncidentDir)
			return nil
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, e := range entries {
			inc := e.Incident
			fmt.Printf("%s  %-13s %-6s %s\n", inc.Timestamp, sourceLabel(inc.Source), riskLabel(inc.RiskLevel), inc.Summary)
			fmt.Printf("    %s\n", gray(e.Path))
		}
		return nil
	},
}

var incidentsShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show one incident",
	Long:  `Show an incident by path or by file name inside the incident directory.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		store, err := incident.NewStore(cfg.IncidentDir)
		if err != nil {
			return err
		}
		inc, err := store.Load(args[0])
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(inc)
		}
		printIncident(os.Stdout, inc, "")
		return nil
	},
}

func init() {
	incidentsListCmd.Flags().IntP("limit", "n", 20, "Maximum incidents to list (0 = all)")
	incidentsShowCmd.Flags().Bool("json", false, "Print the raw incident JSON")
	incidentsCmd.AddCommand(incidentsListCmd, incidentsShowCmd)
	rootCmd.AddCommand(incidentsCmd)
}
