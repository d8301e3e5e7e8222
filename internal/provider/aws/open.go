package aws

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/cirrus/internal/config"
	"github.com/yairfalse/cirrus/internal/invoker"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// Open builds a provider over the signed HTTP transport described by cfg. When rec is
// non-nil every request is traced and measured.
func Open(ctx context.Context, cfg *config.Config, rec invoker.Recorder) (cloud.Provider, error) {
	creds, err := invoker.LoadCredentials(ctx, cfg.AWS.Region, cfg.AWS.Profile, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("open aws provider: %w", err)
	}

	httpInv, err := invoker.NewHTTP(invoker.Options{
		Region:      cfg.AWS.Region,
		Endpoint:    cfg.AWS.Endpoint,
		Credentials: creds,
		Timeout:     cfg.Transport.Timeout,
		Retries:     cfg.Transport.Retries,
		Backoff:     cfg.Transport.Backoff,
		MaxBackoff:  cfg.Transport.MaxBackoff,
	})
	if err != nil {
		return nil, fmt.Errorf("open aws provider: %w", err)
	}

	var inv invoker.Invoker = httpInv
	if rec != nil {
		inv = invoker.Instrument(httpInv, rec)
	}

	log.Debug().
		Str("region", cfg.AWS.Region).
		Str("ec2", httpInv.URL(invoker.ServiceEC2)).
		Int("retries", cfg.Transport.Retries).
		Msg("aws provider ready")

	p, err := New(inv, Config{Region: cfg.AWS.Region})
	if err != nil {
		return nil, err
	}
	return p, nil
}
