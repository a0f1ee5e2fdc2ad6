package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-shorturl/internal/urlservice/domain"
	"go-shorturl/internal/urlservice/shortcode"

	"go.uber.org/zap"
)

// CollisionPolicy decides what Create does when a generated code is taken.
type CollisionPolicy string

const (
	// CollisionRetry regenerates the code until MaxAttempts is reached.
	CollisionRetry CollisionPolicy = "retry"
	// CollisionReject fails the first time a generated code is taken.
	CollisionReject CollisionPolicy = "reject"
)

const defaultMaxAttempts = 5

// Config tunes the ResolutionService.
type Config struct {
	DefaultTTL      time.Duration
	CollisionPolicy CollisionPolicy
	MaxAttempts     int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// CreateInput is the payload of a create request.
type CreateInput struct {
	Original  string
	ShortCode string
	Expiry    *time.Time
}

// ResolveInput describes a single redirect request.
type ResolveInput struct {
	Code      string
	Referrer  string
	Origin    string
	UserAgent string
}

// ResolutionService orchestrates creation, redirects and stats for short codes.
type ResolutionService struct {
	store     RedirectStore
	generator CodeGenerator
	enricher  ClickEnricher
	recorder  domain.ClickRecorder
	cfg       Config

	validationLog *zap.Logger
	serviceLog    *zap.Logger
	handlerLog    *zap.Logger
}

// NewResolutionService wires the service. enricher may be nil.
func NewResolutionService(store RedirectStore, generator CodeGenerator, enricher ClickEnricher, logger *zap.Logger, cfg Config) *ResolutionService {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = domain.DefaultTTL
	}
	if cfg.CollisionPolicy == "" {
		cfg.CollisionPolicy = CollisionRetry
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &ResolutionService{
		store:         store,
		generator:     generator,
		enricher:      enricher,
		recorder:      domain.NewClickRecorder(),
		cfg:           cfg,
		validationLog: logger.Named("middleware"),
		serviceLog:    logger.Named("service"),
		handlerLog:    logger.Named("handler"),
	}
}

// now is truncated to microseconds, the resolution every store keeps.
func (s *ResolutionService) now() time.Time {
	return s.cfg.Clock().UTC().Truncate(time.Microsecond)
}

// Create validates the request and registers a new entry.
func (s *ResolutionService) Create(ctx context.Context, in CreateInput) (*domain.Entry, error) {
	if in.Original == "" {
		s.validationLog.Error("missing required field: original")
		return nil, fmt.Errorf("%w: original", domain.ErrMissingField)
	}

	if !domain.ValidTarget(in.Original) {
		s.validationLog.Warn("invalid url format", zap.String("original", in.Original))
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidURL, in.Original)
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.DefaultTTL)
	if in.Expiry != nil {
		expiresAt = in.Expiry.UTC().Truncate(time.Microsecond)
		if !expiresAt.After(now) {
			s.validationLog.Warn("expiry is not in the future", zap.Time("expiry", expiresAt))
			return nil, fmt.Errorf("%w: must be after %s", domain.ErrInvalidExpiry, now.Format(time.RFC3339))
		}
	}

	if in.ShortCode != "" {
		if err := shortcode.Validate(in.ShortCode); err != nil {
			s.validationLog.Warn("invalid custom shortcode", zap.String("shortcode", in.ShortCode), zap.Error(err))
			return nil, err
		}
	}

	s.validationLog.Info("URL validation passed")

	if in.ShortCode != "" {
		s.serviceLog.Info("using custom shortcode", zap.String("shortcode", in.ShortCode))
		return s.register(ctx, in.ShortCode, in.Original, now, expiresAt)
	}

	attempts := s.cfg.MaxAttempts
	if s.cfg.CollisionPolicy == CollisionReject {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		code, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}
		s.serviceLog.Info("auto-generated shortcode", zap.String("shortcode", code), zap.Int("attempt", attempt))

		entry, err := s.register(ctx, code, in.Original, now, expiresAt)
		if errors.Is(err, domain.ErrCodeConflict) {
			continue
		}
		return entry, err
	}

	return nil, fmt.Errorf("%w: %d generated codes were taken", domain.ErrCodeConflict, attempts)
}

// register checks for an existing code and inserts the entry. The prior
// lookup only saves a write; Insert is what enforces uniqueness.
func (s *ResolutionService) register(ctx context.Context, code, target string, now, expiresAt time.Time) (*domain.Entry, error) {
	s.serviceLog.Debug("DB lookup starting", zap.String("shortcode", code))
	_, err := s.store.FindByCode(ctx, code)
	s.serviceLog.Info("DB lookup completed", zap.String("shortcode", code))

	switch {
	case err == nil:
		s.handlerLog.Warn("shortcode already taken", zap.String("shortcode", code))
		return nil, fmt.Errorf("%w: %s", domain.ErrCodeConflict, code)
	case !errors.Is(err, domain.ErrNotFound):
		s.serviceLog.Error("lookup failed", zap.String("shortcode", code), zap.Error(err))
		return nil, err
	}

	entry := domain.NewEntry(code, target, now, expiresAt)

	s.serviceLog.Debug("creating new entry", zap.String("shortcode", code))
	if err := s.store.Insert(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrCodeConflict) {
			s.handlerLog.Warn("shortcode already taken", zap.String("shortcode", code))
			return nil, err
		}
		s.serviceLog.Error("failed to create entry", zap.String("shortcode", code), zap.Error(err))
		return nil, err
	}
	s.serviceLog.Info("entry created", zap.String("shortcode", code))

	s.handlerLog.Info("short URL created",
		zap.String("shortcode", code),
		zap.String("original", target),
		zap.Time("expiry", expiresAt),
	)
	return entry, nil
}

// Resolve records a click on a live entry and returns it.
func (s *ResolutionService) Resolve(ctx context.Context, in ResolveInput) (*domain.Entry, error) {
	event := domain.NewClickEvent(time.Time{}, in.Referrer, in.Origin)
	if s.enricher != nil {
		event = s.enricher.Enrich(event, in.UserAgent)
	}

	s.serviceLog.Debug("DB lookup starting for redirect", zap.String("shortcode", in.Code))
	entry, err := s.store.Update(ctx, in.Code, func(e *domain.Entry) error {
		// Read the clock under the per-code lock so the log stays chronological.
		now := s.now()
		if e.IsExpired(now) {
			return fmt.Errorf("%w: %s at %s", domain.ErrExpired, e.Code, e.ExpiresAt.Format(time.RFC3339))
		}
		event.Time = now
		s.recorder.Record(e, event)
		return nil
	})
	s.serviceLog.Info("DB lookup completed for redirect", zap.String("shortcode", in.Code))

	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.handlerLog.Warn("shortcode not found", zap.String("shortcode", in.Code))
		return nil, err
	case errors.Is(err, domain.ErrExpired):
		s.handlerLog.Warn("shortcode expired", zap.String("shortcode", in.Code))
		s.serviceLog.Info("expired URL access attempt", zap.String("shortcode", in.Code), zap.Error(err))
		return nil, err
	case err != nil:
		s.serviceLog.Error("failed to update click stats", zap.String("shortcode", in.Code), zap.Error(err))
		return nil, err
	}

	s.serviceLog.Info("click stats updated",
		zap.String("shortcode", in.Code),
		zap.Int64("clicks", entry.ClickCount),
	)
	s.handlerLog.Info("successful redirect",
		zap.String("shortcode", in.Code),
		zap.String("original", entry.Target),
	)
	return entry, nil
}

// Stats returns the full entry, including entries past their expiry.
func (s *ResolutionService) Stats(ctx context.Context, code string) (*domain.Entry, error) {
	s.serviceLog.Debug("DB lookup starting for stats", zap.String("shortcode", code))
	entry, err := s.store.FindByCode(ctx, code)
	s.serviceLog.Info("DB lookup completed for stats", zap.String("shortcode", code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.handlerLog.Warn("stats requested for non-existent shortcode", zap.String("shortcode", code))
		} else {
			s.serviceLog.Error("stats lookup failed", zap.String("shortcode", code), zap.Error(err))
		}
		return nil, err
	}

	s.handlerLog.Info("stats retrieved", zap.String("shortcode", code), zap.Int64("clicks", entry.ClickCount))
	return entry, nil
}
