package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "test_config_*.json")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpfile.Close()
	return tmpfile.Name()
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	validConfig := `{
		"name": "Test Config",
		"description": "Test configuration",
		"max_room_name_length": 16,
		"round_seconds": 30,
		"reconnect_grace_seconds": 10,
		"button_count": 600,
		"canvas_width": 800,
		"canvas_height": 350,
		"min_button_size": 35,
		"max_button_size": 60
	}`

	path := writeConfig(t, validConfig)

	result := validateConfig(path)
	if !result.Valid {
		t.Errorf("Expected valid config, but got errors: %v", result.Errors)
	}

	if result.File != filepath.Base(path) {
		t.Errorf("Expected file name %s, got %s", filepath.Base(path), result.File)
	}
}

func TestValidateConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"name": "test", invalid json}`)

	result := validateConfig(path)
	if result.Valid {
		t.Error("Expected invalid result for malformed JSON")
	}

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "Invalid JSON") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected 'Invalid JSON' error, got: %v", result.Errors)
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig("/nonexistent/config.json")
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
}

func TestValidateConfig_BadValues(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "zero round",
			config:  `{"max_room_name_length": 16, "round_seconds": 0, "button_count": 600, "canvas_width": 800, "canvas_height": 350, "min_button_size": 35, "max_button_size": 60}`,
			wantErr: "round_seconds",
		},
		{
			name:    "negative grace",
			config:  `{"max_room_name_length": 16, "round_seconds": 30, "reconnect_grace_seconds": -1, "button_count": 600, "canvas_width": 800, "canvas_height": 350, "min_button_size": 35, "max_button_size": 60}`,
			wantErr: "reconnect_grace_seconds",
		},
		{
			name:    "inverted sizes",
			config:  `{"max_room_name_length": 16, "round_seconds": 30, "button_count": 600, "canvas_width": 800, "canvas_height": 350, "min_button_size": 60, "max_button_size": 35}`,
			wantErr: "max_button_size",
		},
		{
			name:    "button larger than canvas",
			config:  `{"max_room_name_length": 16, "round_seconds": 30, "button_count": 600, "canvas_width": 800, "canvas_height": 50, "min_button_size": 35, "max_button_size": 60}`,
			wantErr: "canvas",
		},
		{
			name:    "zero buttons",
			config:  `{"max_room_name_length": 16, "round_seconds": 30, "button_count": 0, "canvas_width": 800, "canvas_height": 350, "min_button_size": 35, "max_button_size": 60}`,
			wantErr: "button_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.config)

			result := validateConfig(path)
			if result.Valid {
				t.Fatalf("Expected invalid config, got valid: %v", result.Errors)
			}

			found := false
			for _, e := range result.Errors {
				if strings.Contains(e, tt.wantErr) {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, result.Errors)
			}
		})
	}
}
