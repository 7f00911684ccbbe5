// Package headlines rewrites selected headlines through a text-generation
// provider and stores the results.
package headlines

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/headlinestudio/internal/config"
	"github.com/TobiSchelling/headlinestudio/internal/database"
	"github.com/TobiSchelling/headlinestudio/internal/llm"
	"github.com/TobiSchelling/headlinestudio/internal/prompt"
)

// Store is the persistence the service writes results to.
type Store interface {
	SaveSelectionResult(rc database.RequestContext, r database.SelectionResult) (*database.GeneratedHeadline, error)
	SaveOverrideResult(rc database.RequestContext, o database.Override) (*database.Override, error)
	IsFavorite(rc database.RequestContext, id string) (bool, error)
	ToggleFavorite(rc database.RequestContext, id, sourceTable string, snap database.Snapshot) (bool, error)
}

// Options controls sampling and fan-out.
type Options struct {
	Workers             int
	MaxTokens           int
	BatchTemperature    float64
	OverrideTemperature float64
}

// OptionsFromConfig maps the generation config onto service options.
func OptionsFromConfig(cfg config.Generation) Options {
	return Options{
		Workers:             cfg.Workers,
		MaxTokens:           cfg.MaxTokens,
		BatchTemperature:    cfg.BatchTemperature,
		OverrideTemperature: cfg.OverrideTemperature,
	}
}

// BatchItem is a selected headline to regenerate into the selection store.
type BatchItem struct {
	Headline    string  `json:"headline"`
	SourceTable string  `json:"source_table"`
	SourceID    *string `json:"source_id"`
	Brand       *string `json:"brand"`
}

// OverrideItem is a weekly aggregate row to regenerate for one user.
type OverrideItem struct {
	SourceID  string `json:"source_id"`
	Headline  string `json:"headline"`
	Week      int    `json:"week"`
	Year      int    `json:"year"`
	Frequency int    `json:"frequency"`
}

// OverrideResult is the rewritten headline for one aggregate row.
type OverrideResult struct {
	SourceID   string `json:"source_id"`
	AIHeadline string `json:"ai_headline"`
}

// Service regenerates headlines. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	store    Store
	provider llm.Provider
	logger   *zap.Logger
	opts     Options
}

// New creates a Service. A nil logger disables logging.
func New(store Store, provider llm.Provider, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 300
	}
	if opts.BatchTemperature == 0 {
		opts.BatchTemperature = 0.7
	}
	if opts.OverrideTemperature == 0 {
		opts.OverrideTemperature = 0.8
	}
	return &Service{store: store, provider: provider, logger: logger, opts: opts}
}

// target persists one cleaned headline.
type target func(aiHeadline string) error

// RegenerateBatch rewrites every item into the user's selection and the
// generation log. Items are independent: a failed item is logged and skipped.
// Returns the number of items stored.
func (s *Service) RegenerateBatch(ctx context.Context, rc database.RequestContext, items []BatchItem) (int, error) {
	if err := s.ready(rc, len(items)); err != nil {
		return 0, err
	}

	var stored atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)

	for _, item := range items {
		g.Go(func() error {
			log := s.logger.With(
				zap.String("user", rc.User),
				zap.String("headline", item.Headline),
				zap.String("source_table", item.SourceTable),
				zap.Stringp("source_id", item.SourceID),
			)
			if strings.TrimSpace(item.Headline) == "" {
				log.Warn("skipping selection with empty headline")
				return nil
			}

			_, err := s.regenerate(ctx, log, item.Headline, s.opts.BatchTemperature, func(ai string) error {
				_, err := s.store.SaveSelectionResult(rc, database.SelectionResult{
					Headline:    item.Headline,
					SourceTable: item.SourceTable,
					SourceID:    item.SourceID,
					Brand:       item.Brand,
					AIHeadline:  ai,
				})
				return err
			})
			if err != nil {
				log.Error("headline regeneration failed", zap.Error(err))
				return nil
			}
			stored.Add(1)
			return nil
		})
	}
	g.Wait()

	n := int(stored.Load())
	s.logger.Info("batch regeneration finished",
		zap.String("user", rc.User), zap.Int("requested", len(items)), zap.Int("generated", n))
	if err := ctx.Err(); err != nil {
		return n, err
	}
	return n, nil
}

// RegenerateOne rewrites a single aggregate row into the user's override and
// the generation log. Failure is returned to the caller.
func (s *Service) RegenerateOne(ctx context.Context, rc database.RequestContext, item OverrideItem) (*OverrideResult, error) {
	if err := s.ready(rc, 1); err != nil {
		return nil, err
	}
	return s.regenerateOverride(ctx, rc, item)
}

// RegenerateOverrides rewrites several aggregate rows for the user. Failed
// items are logged and left out of the result, which keeps input order.
func (s *Service) RegenerateOverrides(ctx context.Context, rc database.RequestContext, items []OverrideItem) ([]OverrideResult, error) {
	if err := s.ready(rc, len(items)); err != nil {
		return nil, err
	}

	slots := make([]*OverrideResult, len(items))
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)
	for i, item := range items {
		g.Go(func() error {
			res, err := s.regenerateOverride(ctx, rc, item)
			if err != nil {
				s.logger.Error("override regeneration failed",
					zap.String("user", rc.User),
					zap.String("source_id", item.SourceID),
					zap.String("headline", item.Headline),
					zap.Int("week", item.Week),
					zap.Int("year", item.Year),
					zap.Error(err))
				return nil
			}
			slots[i] = res
			return nil
		})
	}
	g.Wait()

	results := make([]OverrideResult, 0, len(items))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Service) regenerateOverride(ctx context.Context, rc database.RequestContext, item OverrideItem) (*OverrideResult, error) {
	if strings.TrimSpace(item.SourceID) == "" || strings.TrimSpace(item.Headline) == "" {
		return nil, fmt.Errorf("%w: source id and headline are required", database.ErrValidation)
	}
	log := s.logger.With(
		zap.String("user", rc.User),
		zap.String("source_id", item.SourceID),
		zap.Int("week", item.Week),
		zap.Int("year", item.Year),
	)
	ai, err := s.regenerate(ctx, log, item.Headline, s.opts.OverrideTemperature, func(ai string) error {
		_, err := s.store.SaveOverrideResult(rc, database.Override{
			SourceID:   item.SourceID,
			Week:       item.Week,
			Year:       item.Year,
			Headline:   item.Headline,
			Frequency:  item.Frequency,
			AIHeadline: &ai,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &OverrideResult{SourceID: item.SourceID, AIHeadline: ai}, nil
}

// regenerate runs one item through prompt, provider, cleaning and save.
func (s *Service) regenerate(ctx context.Context, log *zap.Logger, headline string, temperature float64, save target) (string, error) {
	raw, err := s.provider.Generate(ctx, llm.Request{
		System:      prompt.SystemReference,
		User:        prompt.Build(headline),
		Temperature: temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEndpointCallFailed, err)
	}

	ai, err := CleanHeadline(raw)
	if err != nil {
		return "", err
	}
	if n := utf8.RuneCountInString(ai); n > prompt.MaxHeadlineLength {
		log.Warn("generated headline exceeds length limit",
			zap.String("ai_headline", ai), zap.Int("length", n), zap.Int("limit", prompt.MaxHeadlineLength))
	}

	if err := save(ai); err != nil {
		return "", fmt.Errorf("%w: storing result: %w", ErrEndpointCallFailed, err)
	}
	log.Debug("headline regenerated", zap.String("ai_headline", ai))
	return ai, nil
}

func (s *Service) ready(rc database.RequestContext, n int) error {
	if strings.TrimSpace(rc.User) == "" {
		return fmt.Errorf("%w: user is not authenticated", database.ErrValidation)
	}
	if n == 0 {
		return ErrEmptyInput
	}
	if s.provider == nil || !s.provider.IsConfigured() {
		s.logger.Error("text-generation endpoint unavailable", zap.String("user", rc.User))
		return ErrEndpointUnavailable
	}
	return nil
}
