package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/oaiguard/internal/config"
	"github.com/steveyegge/oaiguard/internal/logging"
	"github.com/steveyegge/oaiguard/internal/types"
)

var (
	cfgPath string
	cfg     config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "oaiguard",
	Short: "Triage OAI core network errors and propose safe fixes",
	Long: `oaiguard reads OAI 4G/5G core logs, diagnoses error lines from history,
built-in rules or a language model, runs read-only diagnostics and, when
asked to, restarts low-risk services under a strict policy.

Every triage run writes one incident file to the incident directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		ov, err := overridesFromFlags(cmd)
		if err != nil {
			return err
		}
		loaded = loaded.With(ov)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		logger = logging.Init(nil, logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
		logger.Debug("configuration loaded", "config", cfg.String())
		return nil
	},
}

func init() {
	registerGlobalFlags(rootCmd)
}

func registerGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&cfgPath, "config", "", "YAML config file")
	f.String("engine", "", "Inference engine: ollama, openai or anthropic")
	f.String("model", "", "Model name")
	f.String("base-url", "", "Inference server base URL")
	f.Bool("auto", false, "Auto-run low-risk fixes that need no review")
	f.Bool("no-heur", false, "Disable the built-in heuristic rules")
	f.Bool("fast-only", false, "Never call the model")
	f.String("mode", "", "Re-check heuristic hits with the model: none, verify or augment")
	f.Bool("no-history", false, "Do not reuse cached diagnoses")
	f.Bool("skip-diag", false, "Do not run diagnostics commands")
	f.String("auto-policy", "", "Auto-run policy: oai_only, whitelist or any")
	f.String("whitelist", "", "Unit whitelist file for the whitelist policy")
	f.String("allowlist", "", "Comma-separated allowed command prefixes")
	f.String("incident-dir", "", "Directory for incident files")
	f.String("history-db", "", "History cache database path")
	f.Int("context", 0, "Context lines kept per error")
	f.Int("window", 0, "Lines searched by 'last'")
	f.Int("workers", 0, "Concurrent triage workers for 'scan'")
	f.Duration("verify-timeout", 0, "How long to wait for a restarted unit to become active")
	f.String("log-level", "", "Log level: debug, info, warn or error")
	f.Bool("log-json", false, "Emit logs as JSON")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9108)")
}

// overridesFromFlags collects the flags the user actually set.
func overridesFromFlags(cmd *cobra.Command) (config.Overrides, error) {
	var ov config.Overrides
	f := cmd.Flags()

	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	num := func(name string) *int {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetInt(name)
		return &v
	}
	flag := func(name string, invert bool) *bool {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetBool(name)
		if invert {
			v = !v
		}
		return &v
	}

	ov.Engine = str("engine")
	ov.Model = str("model")
	ov.BaseURL = str("base-url")
	ov.WhitelistFile = str("whitelist")
	ov.IncidentDir = str("incident-dir")
	ov.HistoryDB = str("history-db")
	ov.LogLevel = str("log-level")
	ov.MetricsAddr = str("metrics-addr")
	ov.ContextLines = num("context")
	ov.Window = num("window")
	ov.Workers = num("workers")
	ov.Auto = flag("auto", false)
	ov.FastOnly = flag("fast-only", false)
	ov.SkipDiagnostics = flag("skip-diag", false)
	ov.LogJSON = flag("log-json", false)
	ov.UseHeuristics = flag("no-heur", true)
	ov.UseHistory = flag("no-history", true)

	if s := str("mode"); s != nil {
		m := types.Mode(*s)
		if !m.IsValid() {
			return ov, fmt.Errorf("invalid --mode %q (want none, verify or augment)", *s)
		}
		ov.Mode = &m
	}
	if s := str("auto-policy"); s != nil {
		p := types.AutoPolicy(*s)
		ov.AutoPolicy = &p
	}
	if s := str("allowlist"); s != nil {
		ov.Allowlist = config.SplitList(*s)
	}
	if f.Changed("verify-timeout") {
		d, _ := f.GetDuration("verify-timeout")
		ov.VerifyTimeout = &d
	}
	return ov, nil
}

// commandTimeout bounds one-shot commands that never touch the model.
const commandTimeout = 30 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
