package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Settings is a layered configuration file: default model, permission
// mode, and any other per-project overrides a user keeps under .spoq.
type Settings struct {
	// Model is the configured model alias or provider model name.
	Model string
	// PermissionMode is the default permission mode for new threads.
	PermissionMode string
	// AutoApproveTools lists tool names pre-approved for every thread,
	// seeded into SessionState.AllowedTools at startup so the session
	// never prompts for them.
	AutoApproveTools []string
	// Raw retains the full JSON map for future compatibility.
	Raw map[string]any
}

// LoadSettings loads settings from user/project/local sources and merges them.
func LoadSettings(cwd string, sources []string, extraSettings string) (*Settings, error) {
	sourceSet := normalizeSources(sources)
	paths, err := settingsPaths(cwd)
	if err != nil {
		return nil, err
	}

	var merged *Settings
	for _, item := range paths {
		if len(sourceSet) > 0 && !sourceSet[item.Source] {
			continue
		}
		// Missing files are not an error; a project simply has no override.
		settings, err := loadSettingsFromFile(item.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		merged = mergeSettings(merged, settings)
	}

	if extraSettings != "" {
		override, err := loadSettingsFlag(extraSettings)
		if err != nil {
			return nil, err
		}
		merged = mergeSettings(merged, override)
	}

	if merged == nil {
		return &Settings{Raw: map[string]any{}}, nil
	}

	return merged, nil
}

type settingsSource struct {
	Source string
	Path   string
}

// settingsPaths resolves user, project, and local settings files.
func settingsPaths(cwd string) ([]settingsSource, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	projectRoot := findProjectRoot(cwd)

	return []settingsSource{
		{Source: "user", Path: filepath.Join(home, ".spoq", "settings.json")},
		{Source: "project", Path: filepath.Join(projectRoot, ".spoq", "settings.json")},
		{Source: "local", Path: filepath.Join(cwd, ".spoq", "settings.json")},
	}, nil
}

// normalizeSources returns a set of allowed sources, or nil if unrestricted.
func normalizeSources(sources []string) map[string]bool {
	if len(sources) == 0 {
		return nil
	}
	set := make(map[string]bool)
	for _, entry := range sources {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		set[strings.ToLower(entry)] = true
	}
	return set
}

// loadSettingsFromFile reads settings JSON from disk.
func loadSettingsFromFile(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSettings(raw)
}

// loadSettingsFlag resolves a settings override from a path or inline JSON.
func loadSettingsFlag(value string) (*Settings, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "{") {
		return parseSettings([]byte(trimmed))
	}
	return loadSettingsFromFile(trimmed)
}

// parseSettings parses a spoq settings JSON document.
func parseSettings(raw []byte) (*Settings, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	settings := &Settings{Raw: data}

	if model, ok := data["model"].(string); ok {
		settings.Model = model
	}
	if mode, ok := data["permissionMode"].(string); ok {
		settings.PermissionMode = mode
	}
	if tools, ok := data["autoApproveTools"].([]any); ok {
		for _, tool := range tools {
			if name, ok := tool.(string); ok && name != "" {
				settings.AutoApproveTools = append(settings.AutoApproveTools, name)
			}
		}
	}

	return settings, nil
}

// mergeSettings applies overlay values on top of the base settings.
func mergeSettings(base *Settings, overlay *Settings) *Settings {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	merged := &Settings{
		Model:            base.Model,
		PermissionMode:   base.PermissionMode,
		AutoApproveTools: append([]string{}, base.AutoApproveTools...),
		Raw:              map[string]any{},
	}

	for key, value := range base.Raw {
		merged.Raw[key] = value
	}
	for key, value := range overlay.Raw {
		merged.Raw[key] = value
	}

	if overlay.Model != "" {
		merged.Model = overlay.Model
	}
	if overlay.PermissionMode != "" {
		merged.PermissionMode = overlay.PermissionMode
	}
	merged.AutoApproveTools = append(merged.AutoApproveTools, overlay.AutoApproveTools...)

	return merged
}

// findProjectRoot locates the nearest parent directory containing .git.
func findProjectRoot(cwd string) string {
	current := filepath.Clean(cwd)
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			// If no repository root is found, fall back to the current directory.
			return cwd
		}
		current = parent
	}
}
