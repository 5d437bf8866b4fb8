// Command meralco-rates extracts the residential electricity rate
// schedule that Meralco publishes as a monthly PDF, and emits it as
// canonical JSON, CSV or XLSX.
//
// Subcommands:
//
//	latest    discover and process the newest publication
//	backfill  walk the archive for an inclusive month range
//	serve     run the read API over extracted payloads
//	version   print build information
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meralcocli/internal/app"
	"meralcocli/internal/backfill"
	"meralcocli/internal/config"
	"meralcocli/internal/exporter"
	"meralcocli/internal/fetch"
	"meralcocli/internal/infrastructure"
	"meralcocli/internal/pdf"
	"meralcocli/pkg/contracts"
	"meralcocli/pkg/contracts/domain"
)

// Exit codes. Partial means a backfill produced some payloads and some
// failures; callers that script the CLI can rerun just the failed
// months.
const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

const usageText = `meralco-rates extracts Meralco residential rate schedules from source PDFs.

Usage:
  meralco-rates <command> [flags]

Commands:
  latest      discover and process the newest publication
  backfill    process an inclusive month range from the archive
  serve       run the HTTP read API
  version     print build information

Common flags (latest, backfill):
  -config PATH      config file (default: $MERALCO_CONFIG or ./config.yaml)
  -timeout DUR      per-request HTTP timeout
  -retries N        max fetch attempts per document
  -user-agent UA    User-Agent header for source requests
  -output FORMAT    json | csv | xlsx (default json)
  -pretty           indent JSON output
  -out PATH         write to file instead of stdout
  -log-level LEVEL  debug | info | warn | error

Run "meralco-rates <command> -h" for command-specific flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches the subcommand. It is separated from main so tests
// can exercise dispatch and flag validation without spawning a process.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return exitFatal
	}

	switch args[0] {
	case "latest":
		return runLatest(args[1:], stdout, stderr)
	case "backfill":
		return runBackfill(args[1:], stdout, stderr)
	case "serve":
		return runServe(args[1:], stderr)
	case "version":
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		fmt.Fprint(stderr, usageText)
		return exitFatal
	}
}

// commonFlags are shared by the one-shot subcommands. Zero values mean
// "not set"; only set flags override the loaded config.
type commonFlags struct {
	configPath string
	timeout    time.Duration
	retries    int
	userAgent  string
	format     string
	pretty     bool
	outPath    string
	logLevel   string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "", "path to config file")
	fs.DurationVar(&cf.timeout, "timeout", 0, "per-request HTTP timeout (overrides config)")
	fs.IntVar(&cf.retries, "retries", 0, "max fetch attempts per document (overrides config)")
	fs.StringVar(&cf.userAgent, "user-agent", "", "User-Agent header (overrides config)")
	fs.StringVar(&cf.format, "output", "json", "output format: json | csv | xlsx")
	fs.BoolVar(&cf.pretty, "pretty", false, "indent JSON output")
	fs.StringVar(&cf.outPath, "out", "", "write output to file instead of stdout")
	fs.StringVar(&cf.logLevel, "log-level", "", "log level (overrides config)")
	return cf
}

// loadConfig builds the effective config from file, environment and
// flag overrides, then re-validates the result.
func (cf *commonFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return nil, err
	}

	if cf.timeout > 0 {
		cfg.HTTP.Timeout = cf.timeout
	}
	if cf.retries > 0 {
		cfg.HTTP.Retries = cf.retries
	}
	if cf.userAgent != "" {
		cfg.HTTP.UserAgent = cf.userAgent
	}
	if cf.logLevel != "" {
		cfg.Logging.Level = cf.logLevel
	}

	// One-shot modes own stdout for payload bytes; keep logs off it.
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openOutput returns where the encoded payload goes. Closing stdout is
// a no-op.
func openOutput(outPath string, stdout io.Writer) (io.WriteCloser, error) {
	if outPath == "" {
		return nopWriteCloser{stdout}, nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// buildOrchestrator wires the one-shot pipeline. One-shot runs carry
// logs but no metrics endpoint, so the meter stays nil.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger) *backfill.Orchestrator {
	client := fetch.NewClient(cfg, logger)
	cells := pdf.NewTextExtractor(logger)
	processor := backfill.NewProcessor(cfg, cells, logger, nil)
	return backfill.NewOrchestrator(cfg, client, processor, logger, nil)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runLatest(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("latest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := registerCommon(fs)
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	format, err := exporter.ParseFormat(cf.format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFatal
	}

	cfg, err := cf.loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitFatal
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "logger error: %v\n", err)
		return exitFatal
	}

	ctx, cancel := signalContext()
	defer cancel()

	payload, err := buildOrchestrator(cfg, logger).RunLatest(ctx)
	if err != nil {
		logger.Error("latest extraction failed", slog.String("error", err.Error()))
		return exitFatal
	}

	out, err := openOutput(cf.outPath, stdout)
	if err != nil {
		logger.Error("cannot open output", slog.String("error", err.Error()))
		return exitFatal
	}
	defer out.Close()

	if err := exporter.WritePayload(out, payload, format, cf.pretty); err != nil {
		logger.Error("encoding failed", slog.String("error", err.Error()))
		return exitFatal
	}

	logger.Info("latest schedule extracted",
		slog.String("period", payload.Period.String()),
		slog.Int("brackets", len(payload.Rates)))
	return exitOK
}

func runBackfill(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := registerCommon(fs)
	startStr := fs.String("start", "", "first month to process (YYYY-MM, required)")
	endStr := fs.String("end", "", "last month to process (YYYY-MM, default: current month)")
	concurrency := fs.Int("concurrency", 0, "parallel period workers (overrides config)")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	format, err := exporter.ParseFormat(cf.format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFatal
	}

	if *startStr == "" {
		fmt.Fprintln(stderr, "backfill requires -start YYYY-MM")
		fs.Usage()
		return exitFatal
	}
	start, err := domain.ParsePeriod(*startStr)
	if err != nil {
		fmt.Fprintf(stderr, "invalid -start: %v\n", err)
		return exitFatal
	}

	end := domain.PeriodOf(time.Now())
	if *endStr != "" {
		if end, err = domain.ParsePeriod(*endStr); err != nil {
			fmt.Fprintf(stderr, "invalid -end: %v\n", err)
			return exitFatal
		}
	}
	if end.Before(start) {
		fmt.Fprintf(stderr, "-end %s precedes -start %s\n", end, start)
		return exitFatal
	}

	cfg, err := cf.loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitFatal
	}
	if *concurrency > 0 {
		cfg.Backfill.Concurrency = *concurrency
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "logger error: %v\n", err)
		return exitFatal
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := buildOrchestrator(cfg, logger).Run(ctx, start, end)
	if err != nil {
		logger.Error("backfill failed", slog.String("error", err.Error()))
		return exitFatal
	}

	out, err := openOutput(cf.outPath, stdout)
	if err != nil {
		logger.Error("cannot open output", slog.String("error", err.Error()))
		return exitFatal
	}
	defer out.Close()

	if err := exporter.WriteReport(out, report, format, cf.pretty); err != nil {
		logger.Error("encoding failed", slog.String("error", err.Error()))
		return exitFatal
	}

	for _, failure := range report.Failures {
		logger.Warn("period failed",
			slog.String("period", failure.Period.String()),
			slog.String("stage", failure.Stage),
			slog.String("reason", failure.Reason))
	}
	logger.Info("backfill finished",
		slog.Int("requested", report.Requested()),
		slog.Int("succeeded", len(report.Documents)),
		slog.Int("failed", len(report.Failures)))

	switch {
	case report.AllFailed():
		return exitFatal
	case report.Partial():
		return exitPartial
	default:
		return exitOK
	}
}

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	addr := fs.String("addr", "", "listen address (overrides config)")
	logLevel := fs.String("log-level", "", "log level (overrides config)")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitFatal
	}
	if *addr != "" {
		cfg.Serve.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitFatal
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "startup error: %v\n", err)
		return exitFatal
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(stderr, "server error: %v\n", err)
		return exitFatal
	}
	return exitOK
}
