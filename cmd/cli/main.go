// The pagelens CLI summarizes a URL or text from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pagelens/pagelens"
	"github.com/pagelens/pagelens/src/cache"
	"github.com/pagelens/pagelens/src/config"
	"github.com/pagelens/pagelens/src/extract"
	"github.com/pagelens/pagelens/src/history"
	"github.com/pagelens/pagelens/src/models"
	"github.com/pagelens/pagelens/src/summary"
)

func main() {
	mode := flag.String("mode", "summarize", "analysis mode: summarize or analyze")
	streamFlag := flag.Bool("stream", false, "stream partial output while the model generates")
	asJSON := flag.Bool("json", false, "print the raw record as JSON")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	input := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if input == "" {
		fmt.Fprintln(os.Stderr, "usage: pagelens [flags] <url or text>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	ctx := context.Background()
	model, err := models.NewProvider(ctx, models.ProviderConfig{
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		PromptPrefix: cfg.PromptPrefix,
		BaseURL:      cfg.AgentBaseURL,
		AgentID:      cfg.AgentID,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create model provider")
	}

	store, err := history.Open(ctx, history.Options{
		Backend:       cfg.HistoryBackend,
		PostgresDSN:   cfg.PostgresDSN,
		MongoURI:      cfg.MongoURI,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		SQLitePath:    cfg.SQLitePath,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to open history store")
	}

	session, err := pagelens.New(pagelens.Options{
		Model:     model,
		History:   store,
		Cache:     cache.New(cfg.CacheSize, cfg.CacheTTL),
		CacheFile: cfg.CacheFile,
		Extractor: extract.New(cfg.RequestTimeout),
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create session")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	req := pagelens.Request{Input: input, Mode: pagelens.Mode(*mode)}

	var rec *summary.Record
	if *streamFlag {
		var lastLen int
		rec, err = session.AnalyzeStream(ctx, req, func(text string) {
			fmt.Print(text[lastLen:])
			lastLen = len(text)
		})
		fmt.Println()
	} else {
		rec, err = session.Analyze(ctx, req)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, pagelens.ClassifyNetworkError(err))
		logger.WithError(err).Debug("analysis failed")
		os.Exit(1)
	}

	if *asJSON {
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			logger.WithError(err).Fatal("failed to encode record")
		}
		fmt.Println(string(out))
		return
	}
	printRecord(rec)
}

func printRecord(rec *summary.Record) {
	fmt.Printf("# %s\n\n%s\n", rec.Title, rec.Summary)
	if len(rec.KeyPoints) > 0 {
		fmt.Println("\nKey points:")
		for _, p := range rec.KeyPoints {
			fmt.Printf("  - %s\n", p)
		}
	}
	if len(rec.Keywords) > 0 {
		fmt.Printf("\nKeywords: %s\n", strings.Join(rec.Keywords, ", "))
	}
	if len(rec.Highlights) > 0 {
		fmt.Println("\nHighlights:")
		for _, h := range rec.Highlights {
			fmt.Printf("  [%s] %s\n", h.Importance, h.Text)
		}
	}
	if rec.ReadingTime != "" {
		fmt.Printf("\nReading time: %s\n", rec.ReadingTime)
	}
}
