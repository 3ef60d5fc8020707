// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Command review applies operator decisions to stored reconciliation
// records without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"docrecon/internal/config"
	"docrecon/internal/document"
	"docrecon/internal/formatters"
	"docrecon/internal/ledger"
	"docrecon/internal/store"

	_ "docrecon/internal/formatters/text"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to configuration file (YAML)")
		docID      = flag.String("doc", "", "Document id")
		action     = flag.String("action", "", "Action to perform: list, pending, approve, reject, clear")
		row        = flag.Int("row", -1, "Row index (for approve, reject, clear)")
		operator   = flag.String("operator", "", "Operator identity recorded with the decision")
	)
	flag.Parse()

	if *action == "" {
		fmt.Println("Usage: review -action <list|pending|approve|reject|clear> [-doc ID] [-row N] [-operator WHO]")
		os.Exit(1)
	}

	cfg := config.LoadConfigOrDefault(*configFile)
	st, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(st, *action, *docID, *row, *operator); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(st store.Store, action, docID string, row int, operator string) error {
	ctx := context.Background()

	switch action {
	case "pending":
		docs, err := st.ListByStatus(ctx, document.StatusPending)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			fmt.Printf("%s  batch=%s  updated=%s\n", doc.ID, doc.BatchID, doc.UpdatedAt.Format("2006-01-02 15:04"))
		}
		if len(docs) == 0 {
			fmt.Println("No pending documents.")
		}
		return nil

	case "list":
		if docID == "" {
			return fmt.Errorf("list requires -doc")
		}
		return show(ctx, st, docID)

	case "approve", "reject", "clear":
		if docID == "" || row < 0 {
			return fmt.Errorf("%s requires -doc and -row", action)
		}
		if operator == "" {
			operator = os.Getenv("USER")
		}
		if _, err := st.ApplyAction(ctx, docID, row, ledger.Action(action), operator); err != nil {
			return err
		}
		return show(ctx, st, docID)

	default:
		return fmt.Errorf("unknown action: %s", action)
	}
}

func show(ctx context.Context, st store.Store, docID string) error {
	rec, err := st.GetReconciliation(ctx, docID)
	if err != nil {
		return err
	}
	doc, _ := st.GetDocument(ctx, docID)

	out, err := formatters.Export("text", formatters.Report{Document: doc, Reconciliation: rec},
		formatters.FormatterOptions{IncludeValid: true})
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "file":
		return store.NewFileStore(cfg.Store.Directory)
	case "postgres":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		return store.NewGormStore(dsn)
	default:
		return nil, fmt.Errorf("review requires a persistent store backend, have %s", cfg.Store.Backend)
	}
}
