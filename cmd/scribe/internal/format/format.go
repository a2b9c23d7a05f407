// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// OutputMode defines the output format for CLI commands
type OutputMode string

const (
	// ModeJSON outputs data as JSON
	ModeJSON OutputMode = "json"
	// ModeYAML outputs data as YAML
	ModeYAML OutputMode = "yaml"
	// ModeTable outputs data as ASCII table
	ModeTable OutputMode = "table"
)

// Formatter provides consistent output formatting across CLI commands
type Formatter interface {
	// PrintJSON outputs data as JSON to stdout
	PrintJSON(data any) error

	// PrintYAML outputs data as YAML to stdout
	PrintYAML(data any) error

	// PrintData outputs data in the structured mode (JSON or YAML).
	// In table mode it falls back to JSON.
	PrintData(data any) error

	// PrintTable outputs data as ASCII table to stdout
	PrintTable(headers []string, rows [][]string) error

	// PrintSummary outputs a summary message to stdout (unless quiet mode)
	PrintSummary(message string) error

	// PrintError outputs an error to stderr (or a structured object to stdout)
	PrintError(err error) error

	// PrintErrorWithSuggestions is PrintError plus hint lines in table mode
	// and a "suggestions" field in structured modes
	PrintErrorWithSuggestions(err error, code string, suggestions []string) error

	// IsStructured reports whether output is machine-readable (JSON or YAML)
	IsStructured() bool

	// IsQuiet reports whether informational output is suppressed
	IsQuiet() bool
}

// formatter implements the Formatter interface
type formatter struct {
	stdout io.Writer
	stderr io.Writer
	mode   OutputMode
	quiet  bool
	color  bool
}

// New creates a new Formatter
func New(stdout, stderr io.Writer, mode OutputMode, quiet, color bool) Formatter {
	return &formatter{
		stdout: stdout,
		stderr: stderr,
		mode:   mode,
		quiet:  quiet,
		color:  color,
	}
}

// PrintJSON outputs data as JSON to stdout
func (f *formatter) PrintJSON(data any) error {
	enc := json.NewEncoder(f.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintYAML outputs data as YAML to stdout
func (f *formatter) PrintYAML(data any) error {
	enc := yaml.NewEncoder(f.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

func (f *formatter) PrintData(data any) error {
	if f.mode == ModeYAML {
		return f.PrintYAML(data)
	}
	return f.PrintJSON(data)
}

// PrintTable outputs data as ASCII table to stdout
func (f *formatter) PrintTable(headers []string, rows [][]string) error {
	if f.IsStructured() {
		// In structured modes, convert table to a list of objects
		items := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			item := make(map[string]string)
			for i, header := range headers {
				if i < len(row) {
					item[header] = row[i]
				}
			}
			items = append(items, item)
		}
		return f.PrintData(items)
	}

	w := tabwriter.NewWriter(f.stdout, 0, 0, 2, ' ', 0)

	// Print header (uppercase and bold if color enabled)
	if f.color {
		headerLine := make([]string, len(headers))
		for i, h := range headers {
			headerLine[i] = color.New(color.Bold).Sprint(strings.ToUpper(h))
		}
		if _, err := fmt.Fprintln(w, strings.Join(headerLine, "\t")); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintln(w, strings.Join(headers, "\t")); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	return w.Flush()
}

// PrintSummary outputs a summary message to stdout (unless quiet mode)
func (f *formatter) PrintSummary(message string) error {
	if f.quiet {
		return nil
	}

	if f.IsStructured() {
		// Summary goes to stderr so stdout stays parseable
		_, err := fmt.Fprintln(f.stderr, message)
		return err
	}

	if f.color {
		_, err := color.New(color.FgGreen).Fprintln(f.stdout, message)
		return err
	}

	_, err := fmt.Fprintln(f.stdout, message)
	return err
}

// PrintError outputs an error to stderr (or a structured object to stdout)
func (f *formatter) PrintError(err error) error {
	return f.PrintErrorWithSuggestions(err, "", nil)
}

func (f *formatter) PrintErrorWithSuggestions(err error, code string, suggestions []string) error {
	if err == nil {
		return nil
	}

	if f.IsStructured() {
		payload := map[string]any{
			"success": false,
			"error":   err.Error(),
		}
		if code != "" {
			payload["code"] = code
		}
		if len(suggestions) > 0 {
			payload["suggestions"] = suggestions
		}
		return f.PrintData(payload)
	}

	var writeErr error
	if f.color {
		_, writeErr = color.New(color.FgRed).Fprintf(f.stderr, "Error: %v\n", err)
	} else {
		_, writeErr = fmt.Fprintf(f.stderr, "Error: %v\n", err)
	}
	if writeErr != nil || f.quiet {
		return writeErr
	}

	for _, s := range suggestions {
		if f.color {
			_, writeErr = color.New(color.FgYellow).Fprintf(f.stderr, "  Hint: %s\n", s)
		} else {
			_, writeErr = fmt.Fprintf(f.stderr, "  Hint: %s\n", s)
		}
		if writeErr != nil {
			return writeErr
		}
	}
	return nil
}

func (f *formatter) IsStructured() bool {
	return f.mode == ModeJSON || f.mode == ModeYAML
}

func (f *formatter) IsQuiet() bool {
	return f.quiet
}

// ValidateMode checks if the output mode is valid
func ValidateMode(mode string) error {
	switch strings.ToLower(mode) {
	case string(ModeJSON), string(ModeYAML), "yml", string(ModeTable):
		return nil
	default:
		return fmt.Errorf("invalid output mode: %s (must be 'table', 'json' or 'yaml')", mode)
	}
}

// ParseMode converts a string to OutputMode
func ParseMode(mode string) OutputMode {
	switch strings.ToLower(mode) {
	case "json":
		return ModeJSON
	case "yaml", "yml":
		return ModeYAML
	default:
		return ModeTable
	}
}
