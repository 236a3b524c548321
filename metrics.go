package minijwt

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultMetricsNamespace = "minijwt"

// Parse outcomes recorded by the parsed-tokens counter.
const (
	outcomeValid   = "valid"
	outcomeExpired = "expired"
	outcomeInvalid = "invalid"
	outcomeRevoked = "revoked"
)

// Issuance shapes recorded by the issued-tokens counter.
const (
	shapeLive     = "live"
	shapeSnapshot = "snapshot"
)

// MetricsConfig enables the Prometheus counters for processors built from
// configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace" json:"namespace" validate:"required_if=Enabled true"`
}

// collector is nil-safe: a nil *collector records nothing.
type collector struct {
	issued  *prometheus.CounterVec
	parsed  *prometheus.CounterVec
	revoked prometheus.Counter
}

func newCollector(reg prometheus.Registerer, namespace string) (*collector, error) {
	if reg == nil {
		return nil, nil
	}
	if namespace == "" {
		namespace = defaultMetricsNamespace
	}

	c := &collector{
		issued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_issued_total",
				Help:      "Total number of tokens issued",
			},
			[]string{"shape"},
		),
		parsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_parsed_total",
				Help:      "Total number of tokens parsed by outcome",
			},
			[]string{"outcome"},
		),
		revoked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_revoked_total",
				Help:      "Total number of tokens revoked",
			},
		),
	}

	for _, m := range []prometheus.Collector{c.issued, c.parsed, c.revoked} {
		if err := reg.Register(m); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
			// Share the existing series when several processors use one
			// registry.
			switch existing := already.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				if m == prometheus.Collector(c.issued) {
					c.issued = existing
				} else {
					c.parsed = existing
				}
			case prometheus.Counter:
				c.revoked = existing
			}
		}
	}

	return c, nil
}

func (c *collector) tokenIssued(shape string) {
	if c == nil {
		return
	}
	c.issued.WithLabelValues(shape).Inc()
}

func (c *collector) tokenParsed(info ParsingInfo) {
	if c == nil {
		return
	}
	c.parsed.WithLabelValues(parseOutcome(info)).Inc()
}

func (c *collector) tokenRevoked() {
	if c == nil {
		return
	}
	c.revoked.Inc()
}

func parseOutcome(info ParsingInfo) string {
	switch {
	case !info.IsValid:
		return outcomeInvalid
	case info.HasExpired:
		return outcomeExpired
	case info.IsRevoked:
		return outcomeRevoked
	default:
		return outcomeValid
	}
}
