package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"kb-analyzer/pkg/analyzer"
	"kb-analyzer/pkg/config"
	"kb-analyzer/pkg/content"
	"kb-analyzer/pkg/logger"
	"kb-analyzer/pkg/parser"
	"kb-analyzer/pkg/pipeline"
	"kb-analyzer/pkg/report"
)

func main() {
	var (
		inputDir   = flag.String("input-dir", "", "Directory containing KB articles (required)")
		outputDir  = flag.String("output-dir", "", "Directory for generated reports (required)")
		format     = flag.String("format", "markdown", "Report format: markdown, html or pdf")
		configPath = flag.String("config", "", "Optional YAML config file (defaults to $KB_CONFIG)")
		model      = flag.String("model", "", "Chat model name (overrides OPENAI_MODEL)")
		baseURL    = flag.String("llm-base", "", "OpenAI-compatible base URL (overrides OPENAI_BASE_URL)")
		htmlBody   = flag.Bool("html-body", false, "Keep sanitized <body> markup for HTML articles instead of plain text")
		rawMD      = flag.Bool("markdown-raw", false, "Keep raw Markdown bodies instead of rendered text")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *model != "" {
		cfg.OpenAI.Model = *model
	}
	if *baseURL != "" {
		cfg.OpenAI.BaseURL = *baseURL
	}
	l := logger.New(cfg.LogLevel, true)

	if *inputDir == "" || *outputDir == "" {
		flag.Usage()
		os.Exit(2)
	}
	reportFormat, err := report.ParseFormat(*format)
	if err != nil {
		l.Fatal().Err(err).Msg("Invalid report format")
	}
	if err := cfg.ValidateAnalyzer(); err != nil {
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	parserCfg := parser.Config{Logger: &l}
	if *htmlBody {
		parserCfg.HTMLMode = content.HTMLBodyMarkup
	}
	if *rawMD {
		parserCfg.MarkdownMode = content.MarkdownRaw
	}

	p := pipeline.NewPipeline(pipeline.Config{
		Parser:   parser.New(parserCfg),
		Analyzer: analyzer.New(analyzer.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL), analyzer.Config{Model: cfg.OpenAI.Model, Logger: &l}),
		Reporter: report.New(report.Config{Format: reportFormat, Logger: &l}),
		Logger:   &l,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	start := time.Now()
	res, err := p.Run(ctx, *inputDir, *outputDir)
	if err != nil {
		l.Fatal().Err(err).Msg("Analysis failed")
	}
	l.Info().Str("report", res.ReportPath).Dur("duration", time.Since(start)).Msg("Done")
}
