// Command extract runs the decode-extract-classify pipeline against a local
// PDF and prints the result, without touching the ledger. Useful for checking
// a new statement layout or prompt change before wiring it into the service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/statement-ingest/internal/classify"
	"github.com/dvloznov/statement-ingest/internal/config"
	"github.com/dvloznov/statement-ingest/internal/ledger"
	"github.com/dvloznov/statement-ingest/internal/llm"
	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/pdfdecode"
	"github.com/dvloznov/statement-ingest/internal/statement"
)

func main() {
	var (
		filePath = flag.String("file", "", "Path to a local statement PDF")
		textOnly = flag.Bool("text-only", false, "Print decoded text and exit without calling the model")
		timeout  = flag.Duration("timeout", 5*time.Minute, "Overall deadline")
	)
	flag.Parse()

	log := logger.New()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: extract -file statement.pdf [-text-only]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read PDF")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	filename := filepath.Base(*filePath)
	registry := statement.NewRegistry(cfg.PDFPasswords)
	decoder := pdfdecode.NewDecoder(registry, log)

	doc, err := decoder.Decode(ctx, data, filename)
	if err != nil {
		log.Fatal().Err(err).Msg("Decoding failed")
	}

	log.Info().
		Int("pages", doc.PageCount).
		Bool("was_encrypted", doc.WasEncrypted).
		Msg("PDF decoded")

	if *textOnly {
		fmt.Println(doc.Text)
		return
	}

	extractor, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}

	sheet := ledger.NewSheets(cfg.Ledger, log)
	categories, err := sheet.GetCategories(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch categories")
	}

	candidates, err := extractor.Extract(ctx, doc.Text, categories.Expense, categories.Income)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	expenses, incomes := classify.New(log).Classify(candidates, doc.Config, filename, time.Now())

	out := struct {
		Expenses []classify.FinalTransaction `json:"expenses"`
		Incomes  []classify.FinalTransaction `json:"incomes"`
	}{expenses, incomes}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("Failed to print result")
	}
}
