package movements

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"stockval/internal/core/apperror"
	"stockval/internal/domain/valuation"
	"stockval/pkg/logger"
)

var tracer = otel.Tracer("stockval/movements")

// ServiceConfig holds optional collaborators of the service.
type ServiceConfig struct {
	// Cache is consulted before reading storage; nil disables caching.
	Cache Cache

	// Recorder receives one observation per valuation; nil disables metrics.
	Recorder Recorder

	// MaxParallel bounds concurrent valuations in ValuateMany.
	MaxParallel int
}

// DefaultServiceConfig returns a configuration without cache or metrics.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{MaxParallel: 8}
}

// Service values stored movement ledgers.
type Service struct {
	repo   Repository
	config ServiceConfig
}

// NewService creates a new valuation service.
func NewService(repo Repository, config ServiceConfig) *Service {
	if config.MaxParallel <= 0 {
		config.MaxParallel = 1
	}
	return &Service{repo: repo, config: config}
}

// Valuate values every movement of one product or one client.
func (s *Service) Valuate(ctx context.Context, scope Scope, method valuation.Method) (*valuation.Result, error) {
	if s.config.Cache != nil {
		if res, ok := s.config.Cache.Get(scope, method); ok {
			logger.Debug(logger.WithValuation(ctx, scope.String(), string(method)), "valuation cache hit")
			return res, nil
		}
	}

	ctx, span := tracer.Start(ctx, "movements.Valuate")
	defer span.End()
	span.SetAttributes(
		attribute.String("valuation.scope", scope.String()),
		attribute.String("valuation.method", string(method)),
	)

	raws, err := s.load(ctx, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load movements")
		return nil, err
	}

	res, err := s.run(ctx, scope, raws, method)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "value movements")
		return nil, err
	}

	if s.config.Cache != nil {
		s.config.Cache.Set(scope, method, res)
	}
	return res, nil
}

// ScopeResult pairs a scope with its valuation.
type ScopeResult struct {
	Scope  Scope
	Result *valuation.Result
}

// ValuateMany values several scopes in parallel, one independent engine run each.
// Results keep the order of scopes. The first failure cancels the remaining loads.
func (s *Service) ValuateMany(ctx context.Context, scopes []Scope, method valuation.Method) ([]ScopeResult, error) {
	results := make([]ScopeResult, len(scopes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxParallel)

	for i, scope := range scopes {
		i, scope := i, scope
		g.Go(func() error {
			res, err := s.Valuate(gctx, scope, method)
			if err != nil {
				return fmt.Errorf("valuate %s: %w", scope, err)
			}
			results[i] = ScopeResult{Scope: scope, Result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Preview values a caller-supplied batch without touching storage, e.g. unsaved edits
// in the movement form.
func (s *Service) Preview(ctx context.Context, raws []valuation.RawMovement, method valuation.Method) (*valuation.Result, error) {
	return s.run(ctx, Scope{Kind: "preview"}, raws, method)
}

func (s *Service) load(ctx context.Context, scope Scope) ([]valuation.RawMovement, error) {
	var (
		raws []valuation.RawMovement
		err  error
	)
	switch scope.Kind {
	case ScopeProduct:
		raws, err = s.repo.ListByProduct(ctx, scope.ID)
	case ScopeClient:
		raws, err = s.repo.ListByClient(ctx, scope.ID)
	default:
		return nil, apperror.NewValidation(fmt.Sprintf("unsupported scope %q", scope.Kind))
	}
	if err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewDatabase(fmt.Errorf("list movements for %s: %w", scope, err))
	}
	return raws, nil
}

func (s *Service) run(ctx context.Context, scope Scope, raws []valuation.RawMovement, method valuation.Method) (*valuation.Result, error) {
	ctx = logger.WithValuation(ctx, scope.String(), string(method))
	start := time.Now()

	res, err := s.value(raws, method)
	elapsed := time.Since(start)

	if s.config.Recorder != nil {
		rows := 0
		if res != nil {
			rows = len(res.Rows)
		}
		s.config.Recorder.ObserveValuation(method, scope.Kind, rows, elapsed.Seconds(), err)
	}

	if err != nil {
		logger.Warn(ctx, "valuation rejected", "error", err)
		return nil, err
	}

	logger.Info(ctx, "valuation computed",
		"records", len(res.Rows),
		"duration_ms", elapsed.Milliseconds(),
	)
	s.reportDataQuality(ctx, res)

	return res, nil
}

func (s *Service) value(raws []valuation.RawMovement, method valuation.Method) (*valuation.Result, error) {
	movements, err := valuation.ParseMovements(raws)
	if err != nil {
		return nil, err
	}
	return valuation.Value(movements, method)
}

// reportDataQuality logs the upstream inconsistencies the engine degraded around.
func (s *Service) reportDataQuality(ctx context.Context, res *valuation.Result) {
	d := res.Diagnostics
	if d.MalformedDates > 0 {
		logger.Warn(ctx, "movements with unparseable dates sorted first",
			"count", d.MalformedDates,
		)
	}
	if d.Shortages > 0 {
		logger.Warn(ctx, "fifo exits exceeded available layers",
			"shortages", d.Shortages,
			"quantity", d.ShortageQuantity.String(),
		)
	}
	if res.Method == valuation.MethodWAC && d.FinalStock.IsNegative() {
		logger.Warn(ctx, "negative running stock",
			"stock", d.FinalStock.String(),
		)
	}
}
