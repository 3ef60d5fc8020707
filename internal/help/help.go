// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// TopicInfo contains standardized information about a help topic
type TopicInfo struct {
	Name             string   // Name of the topic (e.g., "csv")
	ShortDescription string   // Short description for the topics list
	Details          string   // Detailed description
	Settings         []string // Configuration keys the topic honors
	Examples         []string // Usage examples
}

// System manages help content for the application
type System struct {
	topics  map[string]TopicInfo
	ordered []string
	colors  map[string]*color.Color
}

// NewSystem creates a new help system
func NewSystem(noColor bool) *System {
	if noColor {
		color.NoColor = true
	}

	s := &System{
		topics: make(map[string]TopicInfo),
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"subtitle": color.New(color.FgCyan, color.Bold),
			"item":     color.New(color.FgCyan),
			"example":  color.New(color.FgMagenta),
		},
	}
	for _, topic := range builtinTopics() {
		s.Register(topic)
	}
	return s
}

// Register adds a help topic to the system
func (h *System) Register(topic TopicInfo) {
	key := strings.ToLower(topic.Name)
	if _, exists := h.topics[key]; !exists {
		h.ordered = append(h.ordered, key)
	}
	h.topics[key] = topic
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Println("docrecon - Document Validation Reconciliation Engine")
	fmt.Println()
	fmt.Println("Reconciles OCR text, extracted field values, external registry lookups,")
	fmt.Println("and sensitive-data detections into per-field review decisions.")
	fmt.Println()

	h.colors["subtitle"].Println("Usage:")
	fmt.Println("  docrecon -file document.json [options]")
	fmt.Println("  docrecon -server")
	fmt.Println()

	h.colors["subtitle"].Println("Common options:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  -file\tExtraction payload (JSON) or source PDF to reconcile")
	fmt.Fprintln(w, "  -config\tPath to configuration file")
	fmt.Fprintln(w, "  -format\tOutput format (text, json, csv, yaml)")
	fmt.Fprintln(w, "  -server\tRun the HTTP review API")
	fmt.Fprintln(w, "  -help-topic\tShow detailed help for a lookup system or concept")
	w.Flush()
	fmt.Println()

	h.colors["subtitle"].Println("Help topics:")
	h.listTopics()
}

func (h *System) listTopics() {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, key := range h.ordered {
		topic := h.topics[key]
		fmt.Fprintf(w, "  %s\t%s\n", h.colors["item"].Sprint(topic.Name), topic.ShortDescription)
	}
	w.Flush()
}

// ShowTopicHelp displays detailed help for one topic. It reports whether
// the topic exists.
func (h *System) ShowTopicHelp(name string) bool {
	topic, ok := h.topics[strings.ToLower(name)]
	if !ok {
		fmt.Printf("Unknown help topic: %s\n\n", name)
		h.colors["subtitle"].Println("Available topics:")
		h.listTopics()
		return false
	}

	h.colors["title"].Println(topic.Name)
	fmt.Println()
	fmt.Println(topic.Details)

	if len(topic.Settings) > 0 {
		fmt.Println()
		h.colors["subtitle"].Println("Settings:")
		for _, s := range topic.Settings {
			fmt.Printf("  %s\n", s)
		}
	}
	if len(topic.Examples) > 0 {
		fmt.Println()
		h.colors["subtitle"].Println("Examples:")
		for _, e := range topic.Examples {
			h.colors["example"].Printf("  %s\n", e)
		}
	}
	return true
}

func builtinTopics() []TopicInfo {
	return []TopicInfo{
		{
			Name:             "csv",
			ShortDescription: "Validate line items against a CSV export",
			Details: "Loads a CSV file, indexes it by the configured key column, and\n" +
				"compares each line item's fields against the matching row. Header\n" +
				"names match case-insensitively with spaces and underscores collapsed.",
			Settings: []string{"lookups[].source (file path)", "lookups[].key_column", "lookups[].fields"},
			Examples: []string{"docrecon -file batch.json -config docrecon.yaml"},
		},
		{
			Name:             "excel",
			ShortDescription: "Validate line items against an Excel workbook",
			Details: "Same matching behavior as the csv system, reading the first sheet\n" +
				"of an .xlsx workbook unless lookups[].sheet names another.",
			Settings: []string{"lookups[].source (file path)", "lookups[].sheet", "lookups[].key_column"},
		},
		{
			Name:             "registry",
			ShortDescription: "Validate against an HTTP registry service",
			Details: "POSTs each key to a registry endpoint and accepts either a matched\n" +
				"row or precomputed per-field results in the response.",
			Settings: []string{"lookups[].source (endpoint URL)", "DOCRECON_API_KEY"},
		},
		{
			Name:             "docmgt",
			ShortDescription: "Validate against a DocMgt record type",
			Details: "Searches a DocMgt instance's records by index field. The first hit's\n" +
				"index fields become the source row.",
			Settings: []string{"lookups[].source (base URL)", "lookups[].project (record type)", "DOCRECON_API_KEY"},
		},
		{
			Name:             "filebound",
			ShortDescription: "Validate against a FileBound project",
			Details:          "Searches a FileBound project's files by index field value.",
			Settings:         []string{"lookups[].source (base URL)", "lookups[].project (project id)", "DOCRECON_API_KEY"},
		},
		{
			Name:             "scoring",
			ShortDescription: "How match scores and thresholds work",
			Details: "Field values compare with a weighted blend of edit distance, bigram\n" +
				"overlap, and longest common subsequence. A row validates when its\n" +
				"combined score reaches match_threshold (default 0.9), or when an\n" +
				"operator approves it. Rejected rows never count as valid.",
			Settings: []string{"defaults.match_threshold", "defaults.field_threshold", "scoring.*", "field_weights"},
		},
	}
}
