package keyed

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Config holds the configuration for the keyed lock manager.
type Config struct {
	// Name identifies the manager in logs and metrics.
	Name string

	MeterProvider metric.MeterProvider
}

// Option configures a manager instance.
type Option interface {
	Apply(*Config)
}

// OptionFunc is a function that configures a manager config.
type OptionFunc func(*Config)

// Apply calls f(config).
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithName returns an option that sets the manager name.
func WithName(value string) Option {
	return OptionFunc(func(c *Config) {
		c.Name = value
	})
}

// WithMeterProvider returns an option that sets the provider the manager
// creates its instruments from. Defaults to the global otel provider.
func WithMeterProvider(value metric.MeterProvider) Option {
	return OptionFunc(func(c *Config) {
		c.MeterProvider = value
	})
}

func newConfig(options ...Option) Config {
	config := Config{
		Name: "entitylock",
	}
	for _, opt := range options {
		opt.Apply(&config)
	}
	if config.MeterProvider == nil {
		config.MeterProvider = otel.GetMeterProvider()
	}
	return config
}
