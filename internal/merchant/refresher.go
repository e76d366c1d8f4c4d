package merchant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bnpl-gateway/internal/limits"
	"bnpl-gateway/internal/model"
)

// DefaultRefreshInterval matches the provider's recommended polling cadence.
const DefaultRefreshInterval = 15 * time.Minute

// ConfigurationFetcher reads the merchant's payment configuration from the provider.
type ConfigurationFetcher interface {
	FetchConfiguration(ctx context.Context) ([]limits.PaymentConfiguration, error)
}

// Refresher periodically copies the provider's installment limits into the Holder.
type Refresher struct {
	holder   *Holder
	fetcher  ConfigurationFetcher
	interval time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a refresher. interval <= 0 uses DefaultRefreshInterval.
func NewRefresher(holder *Holder, fetcher ConfigurationFetcher, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{holder: holder, fetcher: fetcher, interval: interval, logger: logger}
}

// Run refreshes immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.RefreshOnce(ctx); err != nil {
			r.logger.Warn("limits refresh failed", "error", err, "kind", model.KindOf(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RefreshOnce fetches limits once. It does nothing when the gateway is
// disabled or the active environment has no credentials. An authentication
// failure leaves the limits unavailable; any other failure keeps the cache.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	s := r.holder.Load()
	if !s.Enabled {
		r.logger.Debug("limits refresh skipped, gateway disabled")
		return nil
	}
	if _, err := s.ActiveCredentials(); err != nil {
		r.logger.Debug("limits refresh skipped", "reason", err.Error())
		return nil
	}

	configs, err := r.fetcher.FetchConfiguration(ctx)
	if err != nil {
		if errors.Is(err, model.ErrAuth) {
			r.holder.InvalidateLimits()
		}
		return err
	}

	next, ok := limits.FromConfiguration(configs)
	if !ok {
		r.logger.Debug("no installment configuration returned")
		return nil
	}

	prev := s.Limits
	if prev.Equal(next) {
		return nil
	}
	r.holder.SetLimits(next)
	r.logger.Info("payment limits changed",
		"min_from", prev.Min.String(), "min_to", next.Min.String(),
		"max_from", prev.Max.String(), "max_to", next.Max.String())
	return nil
}
