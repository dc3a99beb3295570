// Command validate provides a small CLI that validates game configuration JSON
// files in the ../configs directory. It checks:
//   - JSON structure and required fields
//   - Positive round, grace, and name-length settings
//   - Button sizing (min <= max, both positive)
//   - That the largest button fits inside the canvas
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config mirrors the JSON schema for a game configuration.
type Config struct {
	Name                  string `json:"name"`
	Description           string `json:"description"`
	MaxRoomNameLength     int    `json:"max_room_name_length"`
	RoundSeconds          int    `json:"round_seconds"`
	ReconnectGraceSeconds int    `json:"reconnect_grace_seconds"`
	ButtonCount           int    `json:"button_count"`
	CanvasWidth           int    `json:"canvas_width"`
	CanvasHeight          int    `json:"canvas_height"`
	MinButtonSize         int    `json:"min_button_size"`
	MaxButtonSize         int    `json:"max_button_size"`
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single configuration JSON file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	fail := func(format string, args ...interface{}) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	if config.MaxRoomNameLength <= 0 {
		fail("max_room_name_length must be positive, got %d", config.MaxRoomNameLength)
	}
	if config.RoundSeconds <= 0 {
		fail("round_seconds must be positive, got %d", config.RoundSeconds)
	}
	if config.ReconnectGraceSeconds < 0 {
		fail("reconnect_grace_seconds cannot be negative, got %d", config.ReconnectGraceSeconds)
	}
	if config.ButtonCount <= 0 {
		fail("button_count must be positive, got %d", config.ButtonCount)
	}

	if config.MinButtonSize <= 0 {
		fail("min_button_size must be positive, got %d", config.MinButtonSize)
	}
	if config.MaxButtonSize < config.MinButtonSize {
		fail("max_button_size (%d) cannot be smaller than min_button_size (%d)",
			config.MaxButtonSize, config.MinButtonSize)
	}

	if config.CanvasWidth <= 0 || config.CanvasHeight <= 0 {
		fail("canvas must have positive dimensions, got %dx%d", config.CanvasWidth, config.CanvasHeight)
	} else if config.MaxButtonSize >= config.CanvasWidth || config.MaxButtonSize >= config.CanvasHeight {
		fail("max_button_size (%d) does not fit inside the %dx%d canvas",
			config.MaxButtonSize, config.CanvasWidth, config.CanvasHeight)
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Round: %ds (grace %ds)", config.RoundSeconds, config.ReconnectGraceSeconds))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Canvas: %dx%d", config.CanvasWidth, config.CanvasHeight))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Buttons: %d of %d-%dpx", config.ButtonCount, config.MinButtonSize, config.MaxButtonSize))
	}

	return result
}

// main scans ../configs for *.json files and validates each one, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
