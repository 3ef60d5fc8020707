// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/term"

	"docrecon/internal/config"
	"docrecon/internal/document"
	"docrecon/internal/engine"
	"docrecon/internal/extract"
	"docrecon/internal/formatters"
	"docrecon/internal/help"
	"docrecon/internal/lookup"
	"docrecon/internal/observability"
	"docrecon/internal/pagesize"
	"docrecon/internal/redaction"
	"docrecon/internal/store"
	"docrecon/internal/version"
	"docrecon/internal/web"

	_ "docrecon/internal/formatters/csv"
	_ "docrecon/internal/formatters/json"
	_ "docrecon/internal/formatters/text"
	_ "docrecon/internal/formatters/yaml"
)

// inputPayload is the accepted shape of a JSON input file: the extraction
// output plus optional detector results.
type inputPayload struct {
	BatchID    string                    `json:"batch_id,omitempty"`
	Extraction document.ExtractionResult `json:"extraction"`
	PII        []redaction.Detection     `json:"pii,omitempty"`
	Compliance []redaction.Detection     `json:"compliance,omitempty"`
}

func main() {
	// Environment from .env, if present. Real environment wins.
	_ = godotenv.Load()

	inputFile := flag.String("file", "", "Path to an extraction payload (JSON) or a digital PDF")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	outputFormat := flag.String("format", "", "Output format: text, json, csv, yaml (default: text)")
	outputFile := flag.String("output", "", "Path to output file (if not specified, output to stdout)")
	includeValid := flag.Bool("include-valid", false, "List rows that validated cleanly, not only the ones needing review")
	verbose := flag.Bool("verbose", false, "Display detailed information for each row")
	debug := flag.Bool("debug", false, "Enable debug logging of component timings")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	serverMode := flag.Bool("server", false, "Run the HTTP review API")
	showHelp := flag.Bool("help", false, "Show help information")
	helpTopic := flag.String("help-topic", "", "Show detailed help for a lookup system or concept")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	helpSystem := help.NewSystem(*noColor)
	if *helpTopic != "" {
		if !helpSystem.ShowTopicHelp(*helpTopic) {
			os.Exit(1)
		}
		return
	}
	if *showHelp || (*inputFile == "" && !*serverMode) {
		helpSystem.ShowGeneralHelp()
		if *inputFile == "" && !*serverMode && !*showHelp {
			os.Exit(1)
		}
		return
	}

	cfg := config.LoadConfigOrDefault(*configFile)

	level := observability.ObservabilityMetrics
	if *debug {
		level = observability.ObservabilityDebug
	}
	observer := observability.NewStandardObserver(level, os.Stderr)
	if *debug {
		observer.DebugObserver = observability.NewDebugObserver(os.Stderr)
	}

	st, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	engineOpts := []engine.Option{
		engine.WithScorePolicy(cfg.ScorePolicy()),
		engine.WithObserver(observer),
		engine.WithDebounce(time.Duration(cfg.Server.DebounceSeconds) * time.Second),
	}
	if validator := buildValidator(cfg, observer); validator != nil {
		engineOpts = append(engineOpts, engine.WithValidator(validator))
	}
	eng := engine.New(st, engineOpts...)
	defer eng.Close()

	if *serverMode {
		runServer(cfg, eng, st, observer)
		return
	}

	format := *outputFormat
	if format == "" {
		format = cfg.Defaults.Format
	}
	options := formatters.FormatterOptions{
		Verbose:      *verbose || cfg.Defaults.Verbose,
		NoColor:      *noColor || cfg.Defaults.NoColor || *outputFile != "" || !isTerminal(os.Stdout),
		IncludeValid: *includeValid,
	}

	if err := runOnce(eng, st, *inputFile, format, *outputFile, options); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runOnce reconciles a single input file and writes the report.
func runOnce(eng *engine.Engine, st store.Store, path, format, outputFile string, options formatters.FormatterOptions) error {
	payload, err := loadInput(path)
	if err != nil {
		return err
	}

	doc := &document.Document{
		ID:              uuid.New().String(),
		BatchID:         payload.BatchID,
		ExtractedText:   payload.Extraction.ExtractedText,
		WordBoxes:       payload.Extraction.WordBoundingBoxes,
		Fields:          payload.Extraction.Fields,
		FieldConfidence: payload.Extraction.FieldConfidence,
		LineItems:       payload.Extraction.LineItems,
		Status:          document.StatusPending,
	}
	if payload.Extraction.ReferenceSize != nil {
		doc.ReferenceSize = *payload.Extraction.ReferenceSize
	}

	ctx := context.Background()
	if err := st.SaveDocument(ctx, doc); err != nil {
		return err
	}

	rec, err := eng.Reconcile(ctx, doc, engine.Inputs{PII: payload.PII, Compliance: payload.Compliance})
	if err != nil {
		return err
	}

	output, err := formatters.Export(format, formatters.Report{Document: doc, Reconciliation: rec}, options)
	if err != nil {
		return err
	}

	if outputFile != "" {
		return os.WriteFile(outputFile, []byte(output), 0600)
	}
	fmt.Println(output)
	return nil
}

// loadInput reads a JSON extraction payload, or extracts embedded text and
// page geometry when given a PDF.
func loadInput(path string) (*inputPayload, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		result, err := extract.FromPDF(path)
		if err != nil {
			return nil, err
		}
		if result.ReferenceSize == nil {
			if ref, err := pagesize.FromFile(path); err == nil {
				result.ReferenceSize = &ref
			}
		}
		return &inputPayload{Extraction: *result}, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var payload inputPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}
	return &payload, nil
}

// buildStore selects the persistence backend from configuration.
func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		return store.NewFileStore(cfg.Store.Directory)
	case "postgres":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		return store.NewGormStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// buildValidator wires the configured lookup source, if any.
func buildValidator(cfg *config.Config, observer *observability.StandardObserver) *lookup.Validator {
	lc := cfg.ActiveLookup()
	if lc == nil {
		return nil
	}

	provider, err := lookup.NewProvider(*lc, os.Getenv("DOCRECON_API_KEY"), 10*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: lookup disabled: %v\n", err)
		return nil
	}

	return lookup.NewValidator(provider, *lc,
		lookup.WithScorePolicy(cfg.ScorePolicy()),
		lookup.WithFieldWeights(cfg.FieldWeights),
		lookup.WithWorkers(cfg.Defaults.Workers),
		lookup.WithObserver(observer),
	)
}

// runServer starts the HTTP API and, when configured, a periodic
// re-validation sweep over pending documents.
func runServer(cfg *config.Config, eng *engine.Engine, st store.Store, observer *observability.StandardObserver) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if spec := cfg.Server.RevalidateCron; spec != "" {
		c := cron.New()
		_, err := c.AddFunc(spec, func() { revalidatePending(ctx, eng, st, observer) })
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: invalid revalidate_cron %q: %v\n", spec, err)
		} else {
			c.Start()
			defer c.Stop()
		}
	}

	server := web.NewServer(eng, st, observer)
	fmt.Fprintf(os.Stderr, "docrecon %s listening on %s:%d\n", version.Short(), cfg.Server.Host, cfg.Server.Port)
	if err := server.Start(ctx, cfg.Server.Host, cfg.Server.Port); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// revalidatePending reruns reconciliation for every pending document, so
// source updates and config changes propagate without operator action.
func revalidatePending(ctx context.Context, eng *engine.Engine, st store.Store, observer *observability.StandardObserver) {
	docs, err := st.ListByStatus(ctx, document.StatusPending)
	if err != nil {
		observer.LogOperation(observability.StandardObservabilityData{
			Component: "sweep", Operation: "list_pending", Success: false, Error: err.Error(),
		})
		return
	}

	for _, doc := range docs {
		if _, err := eng.Revalidate(ctx, doc.ID, engine.Inputs{}); err != nil {
			observer.LogOperation(observability.StandardObservabilityData{
				Component: "sweep", Operation: "revalidate", DocumentID: doc.ID,
				Success: false, Error: err.Error(),
			})
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
