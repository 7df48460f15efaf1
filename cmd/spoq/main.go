package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spoq/spoq-tui/internal/config"
	"github.com/spoq/spoq-tui/internal/engine/dispatch"
	"github.com/spoq/spoq-tui/internal/store"
	"github.com/spoq/spoq-tui/internal/telemetry"
	"github.com/spoq/spoq-tui/internal/transport"
)

// version is the client's own release version, unrelated to any backend
// protocol version.
const version = "0.1.0"

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "spoq",
		Short: "spoq is a terminal client for a remote AI-assistant backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Printf("spoq %s\n", version)
				return nil
			}
			return runRoot(opts)
		},
	}
	rootCmd.Args = cobra.NoArgs
	applyFlags(rootCmd.Flags(), opts)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runRoot loads configuration, wires the engine and its transports, and
// hands control to the terminal shell until the user quits or the
// process receives an interrupt.
func runRoot(opts *options) error {
	cwd := opts.WorkingDirectory
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get cwd: %w", err)
		}
	}

	clientCfg, err := config.LoadClientConfig("")
	if err != nil && !errors.Is(err, config.ErrClientConfigMissing) {
		return fmt.Errorf("load client config: %w", err)
	}
	if clientCfg == nil {
		clientCfg = &config.ClientConfig{}
	}
	if opts.Server != "" {
		clientCfg.ServerURL = opts.Server
	}
	if opts.AuthToken != "" {
		clientCfg.AuthToken = opts.AuthToken
	}
	if clientCfg.ServerURL == "" {
		return errors.New("no backend server configured; pass --server or set server_url in ~/.spoq/config.json")
	}

	settings, err := config.LoadSettings(cwd, opts.SettingSources, opts.Settings)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	model_ := config.ResolveModel(clientCfg, opts.Model, settings.Model)
	permissionMode := opts.PermissionMode
	if permissionMode == "" {
		permissionMode = settings.PermissionMode
	}
	if permissionMode == "" {
		permissionMode = clientCfg.DefaultPermissionMode
	}

	log := telemetry.New(telemetry.ConfigFromFlags(opts.LogLevel, opts.LogFormat))

	var recorder *store.Recorder
	var historyStore *store.HistoryStore
	if !opts.NoSessionPersistence {
		historyStore, err = store.NewHistoryStore()
		if err != nil {
			return fmt.Errorf("resolve history store: %w", err)
		}
		entries, err := historyStore.Load()
		if err != nil {
			log.Warn("failed to load input history", "error", err)
		}
		recorder = store.NewRecorder(entries)
	} else {
		recorder = store.NewRecorder(nil)
	}

	disp := dispatch.New(log)
	for _, tool := range settings.AutoApproveTools {
		disp.Session.AllowTool(tool)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	channel := transport.NewSessionChannel(wsURL(clientCfg.ServerURL), disp.Events, disp.Outbound, log)
	tokenStream := transport.NewTokenStream(&http.Client{Timeout: time.Duration(clientCfg.TimeoutMS) * time.Millisecond}, log)

	go disp.Run(ctx)
	go channel.Run(ctx)

	shell := newShell(disp, tokenStream, recorder, log, shellDefaults{
		Model:            model_,
		PermissionMode:   permissionMode,
		WorkingDirectory: cwd,
		StreamEndpoint:   httpURL(clientCfg.ServerURL) + "/stream",
	})
	if err := shell.run(ctx); err != nil {
		cancel()
		return err
	}

	cancel()
	if historyStore != nil {
		if err := historyStore.Save(recorder.Entries()); err != nil {
			log.Warn("failed to save input history", "error", err)
		}
	}
	return nil
}

// wsURL rewrites an http(s) server URL to its ws(s) session-channel
// equivalent, appending the /ws path.
func wsURL(serverURL string) string {
	switch {
	case hasPrefix(serverURL, "https://"):
		return "wss://" + serverURL[len("https://"):] + "/ws"
	case hasPrefix(serverURL, "http://"):
		return "ws://" + serverURL[len("http://"):] + "/ws"
	default:
		return serverURL
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// httpURL normalizes serverURL to its http(s) form, for the per-request
// token stream (the session channel uses wsURL instead).
func httpURL(serverURL string) string {
	switch {
	case hasPrefix(serverURL, "ws://"):
		return "http://" + serverURL[len("ws://"):]
	case hasPrefix(serverURL, "wss://"):
		return "https://" + serverURL[len("wss://"):]
	default:
		return serverURL
	}
}
