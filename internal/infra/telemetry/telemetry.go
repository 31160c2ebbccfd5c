package telemetry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ezra31448/soap-api/internal/infra/config"
)

// Provider bundles the telemetry handles owned by the application.
type Provider struct {
	tracer *TracerProvider
}

// Attach configures telemetry exporters and returns a provider handle.
// Tracing is optional: without an OTLP endpoint the provider is inert
// and Shutdown is a no-op.
func Attach(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	provider := &Provider{}

	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err := NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, logger)
		if err != nil {
			return nil, fmt.Errorf("init tracer provider: %w", err)
		}
		provider.tracer = tracer
	}

	return provider, nil
}

// Tracer returns the tracer provider handle, nil when tracing is disabled.
func (p *Provider) Tracer() *TracerProvider {
	if p == nil {
		return nil
	}
	return p.tracer
}

// Shutdown flushes pending spans and stops the configured exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tracer == nil {
		return nil
	}
	return p.tracer.Shutdown(ctx)
}
