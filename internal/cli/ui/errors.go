// Package ui renders command output: path tables and error messages with
// suggestions.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level represents the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
)

// Message configures a formatted error or warning
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Suggestions []string
	Help        []string
	NoColor     bool
}

// Format renders the message
//
// Example output:
//
//	❌ GROUP NOT FOUND: FlagTre
//	   Did you mean: FlagTree?
//	   → List groups: routable routes
func (m Message) Format() string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold)
	symbol := "❌"
	if m.Level == LevelWarning {
		header = color.New(color.FgYellow, color.Bold)
		symbol = "⚠️"
	}
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if m.NoColor {
		header.DisableColor()
		yellow.DisableColor()
		cyan.DisableColor()
	}

	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}
	if len(m.Suggestions) > 0 {
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	for _, help := range m.Help {
		cyan.Fprintf(&b, "   → %s\n", help)
	}
	return b.String()
}

// Write writes the formatted message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// GroupNotFound reports an unknown group, suggesting close names
func GroupNotFound(name string, groups []string, noColor bool) Message {
	return Message{
		Context:     "group not found",
		Problem:     name,
		Suggestions: FindSimilar(name, groups, nil),
		Help:        []string{"List groups: routable routes"},
		NoColor:     noColor,
	}
}

// ConfigError reports an invalid routable.yml
func ConfigError(err error, noColor bool) Message {
	return Message{
		Context: "configuration error",
		Problem: err.Error(),
		Help: []string{
			"View config: cat routable.yml",
			"Get help: routable --help",
		},
		NoColor: noColor,
	}
}

// NoRoute warns that a path resolved to no record
func NoRoute(group, path string, noColor bool) Message {
	return Message{
		Level:   LevelWarning,
		Context: "no route",
		Problem: fmt.Sprintf("%s does not resolve to a %s record", path, group),
		NoColor: noColor,
	}
}
