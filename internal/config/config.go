package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/charscan/internal/model"
)

// Default configuration values.
const (
	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTimeout bounds each HTTP attempt. Pages behind Tor are slow,
	// so this is generous.
	DefaultTimeout = 60 * time.Second

	// DefaultBatchSize is the number of targets audited concurrently.
	DefaultBatchSize = 4

	// DefaultMaxAttempts includes the initial attempt.
	DefaultMaxAttempts = 3

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "charscan"
)

// Config holds all configuration options for charscan.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// The number of options is manageable and nesting would add complexity
// without significant benefit.
type Config struct {
	// Targets is the list of page URLs to audit.
	// With --har the URLs select entries in the log and may be omitted.
	Targets []string

	// HARFile is a HAR network log to audit instead of fetching pages.
	HARFile string

	// DocumentFile is a local HTML document to audit instead of fetching.
	DocumentFile string

	// Headers are "name:value" response headers assumed for DocumentFile,
	// in the order given.
	Headers []string

	// ProxyAddress is a SOCKS5 proxy in "host:port" format. Empty means
	// direct connections for clearnet targets.
	ProxyAddress string

	// UseEmbeddedTor starts an embedded Tor daemon and fetches through it.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// MaxAttempts is the number of attempts per page, including the first.
	MaxAttempts int

	// RateLimit is the maximum number of requests per second. 0 means no limit.
	RateLimit float64

	// UserAgent overrides the User-Agent header. Empty uses the fetcher default.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// 0 uses DefaultMaxBodySize.
	MaxBodySize int64

	// BatchSize is the number of targets audited concurrently.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual locations.
	ConfigFilePath string

	// SiteConfigs holds the per-site settings loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty the report is written to stdout.
	ReportFile string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/charscan on Linux).
	DBDir string

	// SaveToDB indicates whether to save audit results to the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero.
func NewConfig() *Config {
	return &Config{
		TorStartupTimeout: DefaultTorStartupTimeout,
		Timeout:           DefaultTimeout,
		MaxAttempts:       DefaultMaxAttempts,
		MaxBodySize:       DefaultMaxBodySize,
		BatchSize:         DefaultBatchSize,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// XDGDataDir returns the XDG data directory for charscan.
// On Linux: ~/.local/share/charscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for charscan.
// On Linux: ~/.config/charscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 && c.HARFile == "" && c.DocumentFile == "" {
		return ErrNoTarget
	}
	if c.HARFile != "" && c.DocumentFile != "" {
		return ErrConflictingSources
	}
	if c.DocumentFile != "" && len(c.Targets) > 1 {
		return ErrConflictingSources
	}
	if len(c.Headers) > 0 && c.DocumentFile == "" {
		return ErrHeaderWithoutFile
	}
	if _, err := ParseHeaders(c.Headers); err != nil {
		return err
	}
	if c.ProxyAddress != "" && c.UseEmbeddedTor {
		return ErrConflictingTransports
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	return nil
}

// NeedsNetwork reports whether pages are fetched rather than read from files.
func (c *Config) NeedsNetwork() bool {
	return c.HARFile == "" && c.DocumentFile == ""
}

// ParseHeaders converts "name:value" strings into an ordered header list.
// Whitespace around the name and value is trimmed. An empty value is allowed.
func ParseHeaders(raw []string) (model.Headers, error) {
	headers := make(model.Headers, 0, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, h)
		}
		headers = append(headers, model.ResponseHeader{Name: name, Value: strings.TrimSpace(value)})
	}
	return headers, nil
}
