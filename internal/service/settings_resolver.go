package service

import (
	"context"
	"strings"

	"wallet-reconciler/config"
	"wallet-reconciler/internal/core/domain"
	"wallet-reconciler/internal/core/ports"
	"wallet-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettingsResolver builds the configuration of one run from static config and
// the operator settings store.
type SettingsResolver struct {
	repo      ports.SettingsRepository
	cfg       config.ReconcileConfig
	feedToken string
	log       zerolog.Logger
}

// NewSettingsResolver creates a resolver. If repo is nil, configured defaults are used.
func NewSettingsResolver(repo ports.SettingsRepository, cfg config.ReconcileConfig, feedToken string, log zerolog.Logger) *SettingsResolver {
	return &SettingsResolver{repo: repo, cfg: cfg, feedToken: feedToken, log: log}
}

// Resolve returns the run configuration. Missing or invalid settings fall back
// to defaults; an unreachable settings store is fatal.
func (r *SettingsResolver) Resolve(ctx context.Context) (ports.RunConfig, error) {
	settings, err := r.Settings(ctx)
	if err != nil {
		return ports.RunConfig{}, err
	}
	return ports.RunConfig{
		FeedToken:  r.feedToken,
		MemoPrefix: settings.MemoPrefix,
		MinAmount:  settings.MinAmount,
	}, nil
}

// Settings reads the memo prefix and minimum amount.
func (r *SettingsResolver) Settings(ctx context.Context) (domain.ReconciliationSettings, error) {
	settings := domain.ReconciliationSettings{
		MemoPrefix: r.cfg.DefaultPrefix,
		MinAmount:  r.cfg.DefaultMinAmount,
	}
	if r.repo == nil {
		return settings, nil
	}

	prefix, err := r.repo.Get(ctx, r.cfg.PrefixSettingKey)
	if err != nil {
		return settings, apperror.ErrSettingsUnavailable(err)
	}
	if prefix != nil && strings.TrimSpace(*prefix) != "" {
		settings.MemoPrefix = strings.TrimSpace(*prefix)
	}

	minRaw, err := r.repo.Get(ctx, r.cfg.MinAmountSettingKey)
	if err != nil {
		return settings, apperror.ErrSettingsUnavailable(err)
	}
	if minRaw != nil && strings.TrimSpace(*minRaw) != "" {
		if v, ok := parseMinAmount(*minRaw); ok {
			settings.MinAmount = v
		} else {
			r.log.Warn().
				Str("key", r.cfg.MinAmountSettingKey).
				Str("value", *minRaw).
				Int64("default", settings.MinAmount).
				Msg("invalid minimum amount setting, using default")
		}
	}

	return settings, nil
}

func parseMinAmount(raw string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(raw, ",", "")))
	if err != nil || d.IsNegative() {
		return 0, false
	}
	return d.Truncate(0).IntPart(), true
}
