package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/charscan/internal/audit"
	"github.com/nao1215/charscan/internal/config"
	"github.com/nao1215/charscan/internal/database"
	"github.com/nao1215/charscan/internal/fetch"
	"github.com/nao1215/charscan/internal/log"
	"github.com/nao1215/charscan/internal/model"
	"github.com/nao1215/charscan/internal/netlog"
	"github.com/nao1215/charscan/internal/pipeline"
	"github.com/nao1215/charscan/internal/report"
	"github.com/nao1215/charscan/internal/tor"
)

// ErrAuditFailed is returned when at least one target did not pass.
var ErrAuditFailed = errors.New("one or more targets failed the charset audit")

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [url...]",
		Short: "Check that pages declare their character encoding",
		Long: `Audit checks each page for a character encoding declaration.

A page passes (score 1) when any of these holds:
- The first Content-Type response header has a charset parameter
- The document starts with a byte-order mark (U+FEFF)
- A <meta charset> or <meta http-equiv="content-type"> element with a
  charset lies entirely within the first 1024 characters

Otherwise the page fails (score 0). The command exits with a non-zero status
when any page fails.

Examples:
  # Audit a single page
  charscan audit https://example.com/

  # Audit several pages, four at a time
  charscan audit --batch 4 https://example.com/ https://example.org/

  # Audit an onion service through a running Tor proxy
  charscan audit --proxy 127.0.0.1:9050 http://exampleonion.onion/

  # Audit an onion service with an embedded Tor daemon
  charscan audit --tor http://exampleonion.onion/

  # Audit the main document recorded in a HAR file
  charscan audit --har recording.har

  # Audit a local file as if served with a header
  charscan audit --file index.html --header "Content-Type: text/html; charset=utf-8"

  # Output a JSON report to a file
  charscan audit --json -o report.json https://example.com/

Configuration file (.charscan) example:
  defaults:
    userAgent: "charscan"
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	// Source flags
	cmd.Flags().String("har", "",
		"Audit pages recorded in a HAR network log instead of fetching them")
	cmd.Flags().StringP("file", "f", "",
		"Audit a local HTML document instead of fetching it")
	cmd.Flags().StringArray("header", nil,
		`Response header assumed for --file, as "Name: value" (repeatable)`)

	// Transport flags
	cmd.Flags().StringP("proxy", "p", "",
		"Fetch through a SOCKS5 proxy (e.g., "+config.DefaultTorProxyAddress+")")
	cmd.Flags().Bool("tor", false,
		"Fetch through an embedded Tor daemon")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Fetch behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP attempt")
	cmd.Flags().Int("attempts", config.DefaultMaxAttempts,
		"Attempts per page, including the first")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second (0 means unlimited)")
	cmd.Flags().String("user-agent", "",
		"User-Agent header to send")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages audited concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .charscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to this file (creates directories if needed); a plain report still goes to stdout")
	cmd.Flags().Bool("no-save", false,
		"Do not record results in the audit history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the audit history database")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAudit(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.HARFile, err = flags.GetString("har"); err != nil {
		return nil, err
	}
	if cfg.DocumentFile, err = flags.GetString("file"); err != nil {
		return nil, err
	}
	if cfg.Headers, err = flags.GetStringArray("header"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseEmbeddedTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = flags.GetInt("attempts"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly given config file must exist; otherwise a missing file
	// means no per-site settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Targets = args
	return cfg, nil
}

// runAudit audits every target in cfg and writes the report to out.
func runAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	targets, err := prepareTargets(cfg)
	if err != nil {
		return err
	}

	logger.Info("starting audit",
		"targets", len(targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	loader, cleanup, err := newLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var db *database.AuditDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	auditStep := pipeline.NewAuditStep(audit.NewRunner(audit.WithLogger(logger)), logger)
	factory := func() *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddSteps(loader, auditStep)
		if db != nil {
			p.AddStep(pipeline.NewPersistStep(db, logger))
		}
		return p
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	reports, batchErr := bp.ProcessBatch(ctx, targets)

	if err := outputReports(cfg, reports, out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if batchErr != nil {
		return batchErr
	}

	for _, r := range reports {
		if !r.Passed() {
			return ErrAuditFailed
		}
	}
	return nil
}

// prepareTargets normalizes and validates the targets to audit.
//
// Network targets without a scheme get one: http for .onion hosts and
// https otherwise. HAR and file audits keep targets as given; an empty
// target selects the first document.
func prepareTargets(cfg *config.Config) ([]string, error) {
	if !cfg.NeedsNetwork() {
		if len(cfg.Targets) == 0 {
			return []string{""}, nil
		}
		return cfg.Targets, nil
	}

	targets := make([]string, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		target = normalizeTarget(target)
		if err := tor.ValidateOnionURL(target); err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", target, err)
		}
		if tor.IsOnionURL(target) && cfg.ProxyAddress == "" && !cfg.UseEmbeddedTor {
			return nil, fmt.Errorf("%w: %s (use --proxy or --tor)", tor.ErrOnionNeedsProxy, target)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// normalizeTarget adds a scheme to target if it has none.
func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if strings.Contains(target, "://") {
		return target
	}
	host := target
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if tor.IsOnionHost(host) {
		return "http://" + target
	}
	return "https://" + target
}

// newLoader returns the step that loads pages for cfg, and a cleanup
// function that must be called when the audit is done.
func newLoader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Step, func(), error) {
	noop := func() {}
	maxBody := int(cfg.MaxBodySize)

	switch {
	case cfg.HARFile != "":
		harLog, err := netlog.ParseFile(cfg.HARFile)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to read HAR file: %w", err)
		}
		return pipeline.NewHARStep(harLog, cfg.HARFile, maxBody), noop, nil

	case cfg.DocumentFile != "":
		headers, err := config.ParseHeaders(cfg.Headers)
		if err != nil {
			return nil, noop, err
		}
		return pipeline.NewDocumentStep(cfg.DocumentFile, headers, maxBody), noop, nil
	}

	client, cleanup, err := newHTTPClient(ctx, cfg, logger)
	if err != nil {
		return nil, noop, err
	}

	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxAttempts(cfg.MaxAttempts),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(cfg.UserAgent))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, fetch.WithRateLimit(cfg.RateLimit, 1))
	}

	return pipeline.NewFetchStep(fetch.New(client, opts...), cfg.SiteConfigs, logger), cleanup, nil
}

// newHTTPClient builds the HTTP client for the configured transport.
func newHTTPClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*http.Client, func(), error) {
	noop := func() {}

	switch {
	case cfg.ProxyAddress != "":
		client, err := tor.NewClient(cfg.ProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create proxy client: %w", err)
		}
		if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
			return nil, noop, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, status.Error())
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		return client.NewHTTPClient(), noop, nil

	case cfg.UseEmbeddedTor:
		client, embedded, err := startEmbeddedTor(ctx, cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		cleanup := func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		return client.NewHTTPClient(), cleanup, nil

	default:
		return tor.NewDirectHTTPClient(cfg.Timeout), noop, nil
	}
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
// Returns the Tor client and embedded Tor manager on success.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tor.Client, *tor.EmbeddedTor, error) {
	fmt.Fprintln(os.Stderr, "Starting embedded Tor daemon (this may take 1-3 minutes)...")

	embedded := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
	)
	if err := embedded.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embedded.SocksAddr(),
		"controlAddr", embedded.ControlAddr(),
	)

	client, err := embedded.NewClient(cfg.Timeout)
	if err != nil {
		_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", status.Error())
	}

	return client, embedded, nil
}

// outputReports writes the reports in the requested format to out. With a
// report file the formatted report goes to the file and the plain report
// still goes to out.
func outputReports(cfg *config.Config, reports []*model.AuditReport, out io.Writer) error {
	colored := out == io.Writer(os.Stdout) && !color.NoColor
	plain := report.NewSimpleWriter(out,
		report.WithVerbose(cfg.Verbose),
		report.WithColor(colored),
	)

	var w report.Writer = plain
	if cfg.JSONReport || cfg.MarkdownReport {
		w = newFormatWriter(cfg, out)
	}

	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Owner-only: reports may include cookie values.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		w = report.NewMultiWriter(newFormatWriter(cfg, f), plain)
	}

	var err error
	if len(reports) == 1 {
		_, err = w.Write(reports[0])
	} else {
		_, err = w.WriteAll(reports)
	}
	return err
}

// newFormatWriter returns the writer for the configured report format.
// Plain text written this way is never colored.
func newFormatWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
}
