package instrumentation

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Exporter names accepted by Config.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the push interval for the OTLP and stdout metric readers.
const DefaultMetricInterval = 10 * time.Second

// DefaultTraceSamplingRate is the ratio of root spans kept when tracing is on.
const DefaultTraceSamplingRate = 0.1

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// Config selects exporters and sampling for a Provider. Environment lookup
// lives in the config package; the zero value is a disabled provider.
type Config struct {
	ServiceName    string
	ServiceVersion string

	Enabled         bool
	MetricsExporter string
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme. TLS is used unless
	// OTLPInsecure is set.
	OTLPEndpoint string
	OTLPInsecure bool

	TraceSamplingRate float64

	// DetailedLabels adds the credential account to briefing metrics.
	DetailedLabels bool

	// MetricInterval overrides DefaultMetricInterval for push readers.
	MetricInterval time.Duration
}

// DefaultConfig is an enabled Prometheus-only setup with tracing off.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "korima",
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: DefaultTraceSamplingRate,
	}
}

// Validate reports every problem in c. A disabled config is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name must not be empty"))
	}
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate))
	}
	if !slices.Contains(metricsExporters, c.MetricsExporter) {
		errs = append(errs, fmt.Errorf("invalid metrics exporter %q, must be one of %v", c.MetricsExporter, metricsExporters))
	}
	if !slices.Contains(tracingExporters, c.TracingExporter) {
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q, must be one of %v", c.TracingExporter, tracingExporters))
	}
	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		errs = append(errs, errors.New("OTLP endpoint is required when an OTLP exporter is selected"))
	}
	if c.MetricInterval < 0 {
		errs = append(errs, fmt.Errorf("metric interval must not be negative, got %s", c.MetricInterval))
	}
	return errors.Join(errs...)
}

func (c Config) metricInterval() time.Duration {
	if c.MetricInterval > 0 {
		return c.MetricInterval
	}
	return DefaultMetricInterval
}
