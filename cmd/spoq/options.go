package main

import "github.com/spf13/pflag"

// options holds all CLI flags for the spoq client.
type options struct {
	// Server is the backend base URL (ws(s):// for the session channel,
	// http(s):// for the token stream). Required unless set in config.
	Server string
	// AuthToken overrides the configured bearer token.
	AuthToken string
	// Model overrides the default model selection.
	Model string
	// PermissionMode seeds the session's initial permission mode.
	PermissionMode string
	// WorkingDirectory scopes the session to a specific directory.
	WorkingDirectory string
	// NoSessionPersistence disables loading/saving input history.
	NoSessionPersistence bool
	// SettingSources limits settings sources to load (user, project, local).
	SettingSources []string
	// Settings provides a path or inline JSON for settings overrides.
	Settings string
	// LogLevel sets the minimum log level (debug, info, warn, error).
	LogLevel string
	// LogFormat selects "text" or "json" log output.
	LogFormat string
	// Version prints the CLI version.
	Version bool
}

// applyFlags defines all CLI flags for the spoq client.
func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.Server, "server", "", "Backend base URL for the session channel and token stream")
	flags.StringVar(&opts.AuthToken, "auth-token", "", "Bearer token for the backend (stored in the client config; the transports do not send it)")
	flags.StringVar(&opts.Model, "model", "", "Model for the current session. Provide an alias (e.g. 'opus') or a full model name.")
	flags.StringVar(&opts.PermissionMode, "permission-mode", "", "Permission mode to seed for new threads")
	flags.StringVar(&opts.WorkingDirectory, "working-directory", "", "Working directory reported to the backend for this session")
	flags.BoolVar(&opts.NoSessionPersistence, "no-session-persistence", false, "Disable reading and writing input history")
	flags.StringSliceVar(&opts.SettingSources, "setting-sources", nil, "Comma-separated list of settings sources to load (user, project, local)")
	flags.StringVar(&opts.Settings, "settings", "", "Path to a settings JSON file or a JSON string to load additional settings from")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "Minimum log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "Log output format: \"text\" or \"json\" (defaults to text on a TTY, json otherwise)")
	flags.BoolVarP(&opts.Version, "version", "v", false, "Print the version number and exit")
}
