package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ClientConfig defines how spoq connects to its backend: the session
// channel and token stream endpoints, the auth token, and session
// defaults a settings file or CLI flag can still override.
type ClientConfig struct {
	// ServerURL is the base URL for the backend; SessionChannel dials
	// ServerURL+"/ws" and TokenStream posts to ServerURL+"/stream".
	ServerURL string `json:"server_url"`
	// AuthToken is the backend bearer token. It is loaded here and can be
	// overridden with --auth-token; neither SessionChannel nor TokenStream
	// sends it.
	AuthToken string `json:"auth_token"`
	// TimeoutMS bounds a single token-stream request.
	TimeoutMS int `json:"timeout_ms"`
	// DefaultModel is used when no CLI or settings override is provided.
	DefaultModel string `json:"default_model"`
	// DefaultPermissionMode seeds SessionState.PermissionMode for new
	// sessions absent a settings or CLI override.
	DefaultPermissionMode string `json:"default_permission_mode"`
	// ModelAliases maps friendly names (e.g., opus) to backend model ids.
	ModelAliases map[string]string `json:"model_aliases"`
}

var (
	// ErrClientConfigMissing is returned when the config file does not exist.
	ErrClientConfigMissing = errors.New("client config missing")
	// ErrClientConfigInvalid is returned when required fields are missing.
	ErrClientConfigInvalid = errors.New("client config invalid")
)

// ClientConfigPath returns the default client config path.
func ClientConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".spoq", "config.json"), nil
}

// LoadClientConfig reads and validates the client config.
func LoadClientConfig(path string) (*ClientConfig, error) {
	if path == "" {
		var err error
		path, err = ClientConfigPath()
		if err != nil {
			return nil, err
		}
	}

	// Read the entire config file; it is expected to be small.
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrClientConfigMissing
		}
		return nil, fmt.Errorf("read client config: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse client config: %w", err)
	}

	// Validate required fields.
	if cfg.ServerURL == "" || cfg.DefaultModel == "" {
		return nil, ErrClientConfigInvalid
	}

	// Apply defaults for optional fields.
	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = 600000
	}
	if cfg.DefaultPermissionMode == "" {
		cfg.DefaultPermissionMode = "default"
	}
	if cfg.ModelAliases == nil {
		cfg.ModelAliases = make(map[string]string)
	}

	return &cfg, nil
}

// ResolveModel returns the resolved model for the session: CLI input
// takes precedence over a settings file, which takes precedence over
// cfg's default.
func ResolveModel(cfg *ClientConfig, cliModel string, settingsModel string) string {
	if cliModel != "" {
		return aliasModel(cfg, cliModel)
	}
	if settingsModel != "" {
		return aliasModel(cfg, settingsModel)
	}
	return cfg.DefaultModel
}

// aliasModel resolves an alias to a backend model name.
func aliasModel(cfg *ClientConfig, name string) string {
	if cfg == nil {
		return name
	}
	if aliased, ok := cfg.ModelAliases[name]; ok {
		return aliased
	}
	return name
}
