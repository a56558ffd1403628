package config

import (
	"time"

	"github.com/steveyegge/oaiguard/internal/types"
)

// Overrides lists optional replacements for Config fields. A nil field keeps
// the current value.
type Overrides struct {
	Engine          *string
	Model           *string
	BaseURL         *string
	IncidentDir     *string
	HistoryDB       *string
	ContextLines    *int
	Window          *int
	UseHistory      *bool
	UseHeuristics   *bool
	FastOnly        *bool
	Mode            *types.Mode
	SkipDiagnostics *bool
	Auto            *bool
	Allowlist       []string
	AutoPolicy      *types.AutoPolicy
	WhitelistFile   *string
	VerifyTimeout   *time.Duration
	VerifyInterval  *time.Duration
	Workers         *int
	LogLevel        *string
	LogJSON         *bool
	MetricsAddr     *string
}

// With returns a new Config with the non-nil overrides applied. The receiver is unchanged.
func (c Config) With(o Overrides) Config {
	out := c
	out.Allowlist = c.AllowlistCopy()

	setString(&out.Engine, o.Engine)
	setString(&out.Model, o.Model)
	setString(&out.BaseURL, o.BaseURL)
	setString(&out.IncidentDir, o.IncidentDir)
	setString(&out.HistoryDB, o.HistoryDB)
	setInt(&out.ContextLines, o.ContextLines)
	setInt(&out.Window, o.Window)
	setBool(&out.UseHistory, o.UseHistory)
	setBool(&out.UseHeuristics, o.UseHeuristics)
	setBool(&out.FastOnly, o.FastOnly)
	setBool(&out.SkipDiagnostics, o.SkipDiagnostics)
	setBool(&out.Auto, o.Auto)
	setString(&out.WhitelistFile, o.WhitelistFile)
	setInt(&out.Workers, o.Workers)
	setString(&out.LogLevel, o.LogLevel)
	setBool(&out.LogJSON, o.LogJSON)
	setString(&out.MetricsAddr, o.MetricsAddr)

	if o.Mode != nil {
		out.Mode = *o.Mode
	}
	if o.AutoPolicy != nil {
		out.AutoPolicy = *o.AutoPolicy
	}
	if o.VerifyTimeout != nil {
		out.VerifyTimeout = *o.VerifyTimeout
	}
	if o.VerifyInterval != nil {
		out.VerifyInterval = *o.VerifyInterval
	}
	if o.Allowlist != nil {
		out.Allowlist = append([]string(nil), o.Allowlist...)
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
