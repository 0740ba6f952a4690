package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/korima-app/korima/internal/briefing"
	"github.com/korima-app/korima/internal/calendar"
	"github.com/korima-app/korima/internal/google"
	"github.com/korima-app/korima/internal/instrumentation"
	"github.com/korima-app/korima/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "KORIMA"

// CallbackPath is where Google redirects after consent.
const CallbackPath = "/api/auth/google/callback"

// Keys shared by flags, environment variables and the config file.
const (
	KeyHTTPAddr           = "http-addr"
	KeyBaseURL            = "base-url"
	KeyFrontendURL        = "frontend-url"
	KeyOAuthRedirectURL   = "oauth-redirect-url"
	KeyGoogleClientID     = "google-client-id"
	KeyGoogleClientSecret = "google-client-secret"
	KeyCalendarID         = "calendar-id"
	KeyMaxEvents          = "max-events"
	KeyCalendarEndpoint   = "calendar-endpoint"
	KeyStateTTL           = "state-ttl"
	KeyMetricsEnabled     = "metrics-enabled"
	KeyMetricsAddr        = "metrics-addr"
	KeyMCPEnabled         = "mcp-enabled"
	KeyLogLevel           = "log-level"
	KeyLogFormat          = "log-format"
	KeyDebug              = "debug"

	KeyTelemetryEnabled      = "telemetry-enabled"
	KeyServiceName           = "service-name"
	KeyMetricsExporter       = "metrics-exporter"
	KeyTracingExporter       = "tracing-exporter"
	KeyOTLPEndpoint          = "otlp-endpoint"
	KeyOTLPInsecure          = "otlp-insecure"
	KeyTraceSampleRate       = "trace-sample-rate"
	KeyMetricsDetailedLabels = "metrics-detailed-labels"
)

// envAliases are variable names honored besides the KORIMA_ ones, in order of
// precedence. The OTEL_ names follow the OpenTelemetry SDK conventions.
var envAliases = map[string][]string{
	KeyGoogleClientID:        {"GOOGLE_CLIENT_ID"},
	KeyGoogleClientSecret:    {"GOOGLE_CLIENT_SECRET"},
	KeyTelemetryEnabled:      {"INSTRUMENTATION_ENABLED"},
	KeyServiceName:           {"OTEL_SERVICE_NAME"},
	KeyMetricsExporter:       {"METRICS_EXPORTER"},
	KeyTracingExporter:       {"TRACING_EXPORTER"},
	KeyOTLPEndpoint:          {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	KeyOTLPInsecure:          {"OTEL_EXPORTER_OTLP_INSECURE"},
	KeyTraceSampleRate:       {"OTEL_TRACES_SAMPLER_ARG"},
	KeyMetricsDetailedLabels: {"METRICS_DETAILED_LABELS"},
}

// Config is the resolved server configuration.
type Config struct {
	HTTPAddr         string        `mapstructure:"http-addr"`
	BaseURL          string        `mapstructure:"base-url"`
	FrontendURL      string        `mapstructure:"frontend-url"`
	OAuthRedirectURL string        `mapstructure:"oauth-redirect-url"`
	CalendarID       string        `mapstructure:"calendar-id"`
	MaxEvents        int64         `mapstructure:"max-events"`
	CalendarEndpoint string        `mapstructure:"calendar-endpoint"`
	StateTTL         time.Duration `mapstructure:"state-ttl"`
	MetricsEnabled   bool          `mapstructure:"metrics-enabled"`
	MetricsAddr      string        `mapstructure:"metrics-addr"`
	MCPEnabled       bool          `mapstructure:"mcp-enabled"`
	LogLevel         string        `mapstructure:"log-level"`
	LogFormat        string        `mapstructure:"log-format"`
	Debug            bool          `mapstructure:"debug"`

	GoogleClientID     string `mapstructure:"google-client-id"`
	GoogleClientSecret string `mapstructure:"google-client-secret"`

	TelemetryEnabled      bool    `mapstructure:"telemetry-enabled"`
	ServiceName           string  `mapstructure:"service-name"`
	MetricsExporter       string  `mapstructure:"metrics-exporter"`
	TracingExporter       string  `mapstructure:"tracing-exporter"`
	OTLPEndpoint          string  `mapstructure:"otlp-endpoint"`
	OTLPInsecure          bool    `mapstructure:"otlp-insecure"`
	TraceSampleRate       float64 `mapstructure:"trace-sample-rate"`
	MetricsDetailedLabels bool    `mapstructure:"metrics-detailed-labels"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyFrontendURL, "")
	v.SetDefault(KeyOAuthRedirectURL, "")
	v.SetDefault(KeyGoogleClientID, "")
	v.SetDefault(KeyGoogleClientSecret, "")
	v.SetDefault(KeyCalendarID, calendar.DefaultCalendarID)
	v.SetDefault(KeyMaxEvents, briefing.DefaultMaxEvents)
	v.SetDefault(KeyCalendarEndpoint, "")
	v.SetDefault(KeyStateTTL, google.DefaultStateTTL)
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeyMetricsAddr, ":9090")
	v.SetDefault(KeyMCPEnabled, true)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, logging.FormatText)
	v.SetDefault(KeyDebug, false)

	telemetry := instrumentation.DefaultConfig()
	v.SetDefault(KeyTelemetryEnabled, telemetry.Enabled)
	v.SetDefault(KeyServiceName, telemetry.ServiceName)
	v.SetDefault(KeyMetricsExporter, telemetry.MetricsExporter)
	v.SetDefault(KeyTracingExporter, telemetry.TracingExporter)
	v.SetDefault(KeyOTLPEndpoint, "")
	v.SetDefault(KeyOTLPInsecure, false)
	v.SetDefault(KeyTraceSampleRate, telemetry.TraceSamplingRate)
	v.SetDefault(KeyMetricsDetailedLabels, false)
}

// bindEnvAliases binds each key to its KORIMA_ variable first, then its aliases.
func bindEnvAliases(v *viper.Viper) error {
	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	return nil
}

// Load resolves the configuration from flags (may be nil), the environment
// and configFile (may be empty). The result is validated.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := bindEnvAliases(v); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDerived fills values that default to other values.
func (c *Config) applyDerived() {
	if c.BaseURL == "" {
		c.BaseURL = baseURLFromAddr(c.HTTPAddr)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.OAuthRedirectURL == "" {
		c.OAuthRedirectURL = c.BaseURL + CallbackPath
	}
	if c.Debug {
		c.LogLevel = "debug"
	}
}

// baseURLFromAddr derives a local base URL from a listen address, e.g.
// ":8080" becomes "http://localhost:8080".
func baseURLFromAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.GoogleClientID == "" {
		errs = append(errs, fmt.Errorf("%s is required (or set GOOGLE_CLIENT_ID)", KeyGoogleClientID))
	}
	if c.GoogleClientSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required (or set GOOGLE_CLIENT_SECRET)", KeyGoogleClientSecret))
	}
	if c.FrontendURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyFrontendURL))
	} else if err := validateAbsoluteURL(c.FrontendURL); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyFrontendURL, err))
	}
	if err := validateRedirectURL(c.OAuthRedirectURL); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyOAuthRedirectURL, err))
	}
	if c.CalendarEndpoint != "" {
		if err := validateAbsoluteURL(c.CalendarEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", KeyCalendarEndpoint, err))
		}
	}
	if c.MaxEvents < 1 || c.MaxEvents > briefing.MaxEventsLimit {
		errs = append(errs, fmt.Errorf("%s must be between 1 and %d, got %d", KeyMaxEvents, briefing.MaxEventsLimit, c.MaxEvents))
	}
	if c.StateTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyStateTTL, c.StateTTL))
	}
	if c.CalendarID == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyCalendarID))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyLogLevel, err))
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", KeyLogFormat, logging.FormatText, logging.FormatJSON, c.LogFormat))
	}
	if err := c.Instrumentation("").Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

// Instrumentation returns the telemetry settings for a Provider.
func (c *Config) Instrumentation(version string) instrumentation.Config {
	ic := instrumentation.Config{
		ServiceName:       c.ServiceName,
		ServiceVersion:    version,
		Enabled:           c.TelemetryEnabled,
		MetricsExporter:   c.MetricsExporter,
		TracingExporter:   c.TracingExporter,
		OTLPEndpoint:      c.OTLPEndpoint,
		OTLPInsecure:      c.OTLPInsecure,
		TraceSamplingRate: c.TraceSampleRate,
		DetailedLabels:    c.MetricsDetailedLabels,
	}
	if ic.ServiceVersion == "" {
		ic.ServiceVersion = "unknown"
	}
	return ic
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %q in %s: must be http or https", u.Scheme, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %s has no host", raw)
	}
	return nil
}

// validateRedirectURL applies Google's rule for web redirect URIs: HTTPS,
// except for loopback hosts during development.
func validateRedirectURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("redirect URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("Google requires HTTPS redirect URLs outside localhost (got: %s)", raw)
		}
	default:
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("redirect URL %s has no host", raw)
	}
	return nil
}
