// Package reconciler coordinates reconciliation runs: it loads a scope's
// transactions, runs the matching engine, and persists the resulting match
// set atomically. The engine itself never touches I/O; everything durable
// happens here.
package reconciler

import (
	"context"
	"sort"
	"sync"
	"time"

	"payment-reconciliation-service/internal/matcher"
	"payment-reconciliation-service/internal/models"
	apperrors "payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"
)

// Store is the persistence boundary the service needs. *store.Store
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	TransactionsByScope(ctx context.Context, scope string, side models.Side) ([]*models.Transaction, error)
	ReplaceMatches(ctx context.Context, scope string, matches []*models.Match) error
	Scopes(ctx context.Context) ([]string, error)
}

// ScopeSummary reports the outcome of one scope's run.
type ScopeSummary struct {
	Scope       string        `json:"scope"`
	Collections int           `json:"collections"`
	Banks       int           `json:"banks"`
	Matches     int           `json:"matches"`
	ByType      map[string]int `json:"by_type"`
	Duration    time.Duration `json:"duration"`
}

// Config holds service-level options.
type Config struct {
	// MaxConcurrentScopes bounds the worker pool used by RunAllScopes.
	MaxConcurrentScopes int
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() *Config {
	return &Config{MaxConcurrentScopes: 4}
}

// Service runs reconciliation for one or many scopes.
type Service struct {
	engine *matcher.MatchingEngine
	store  Store
	config *Config
	log    logger.Logger
}

// NewService creates a reconciliation service.
func NewService(engine *matcher.MatchingEngine, store Store, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxConcurrentScopes < 1 {
		config.MaxConcurrentScopes = 1
	}
	return &Service{
		engine: engine,
		store:  store,
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("reconciler"),
	}
}

// RunScope reconciles a single scope end to end: load both sides, run the
// engine, and replace the scope's persisted matches with the new set.
// Previous matches are superseded wholesale; a persistence failure leaves
// the old set untouched.
func (s *Service) RunScope(ctx context.Context, scope string) (*ScopeSummary, error) {
	started := time.Now()
	log := s.log.WithScope(scope)

	collections, err := s.store.TransactionsByScope(ctx, scope, models.SideCollection)
	if err != nil {
		return nil, apperrors.WrapIfNeeded(err, apperrors.CategoryReconciliation, apperrors.CodeScopeFailed, "load collections")
	}
	banks, err := s.store.TransactionsByScope(ctx, scope, models.SideBank)
	if err != nil {
		return nil, apperrors.WrapIfNeeded(err, apperrors.CategoryReconciliation, apperrors.CodeScopeFailed, "load bank lines")
	}

	matches, err := s.engine.RunReconciliation(scope, collections, banks)
	if err != nil {
		return nil, apperrors.ReconciliationError(apperrors.CodeScopeFailed, scope, err)
	}

	if err := s.store.ReplaceMatches(ctx, scope, matches); err != nil {
		return nil, apperrors.WrapIfNeeded(err, apperrors.CategoryStorage, apperrors.CodeTransactionFailed, "persist matches")
	}

	summary := &ScopeSummary{
		Scope:       scope,
		Collections: len(collections),
		Banks:       len(banks),
		Matches:     len(matches),
		ByType:      make(map[string]int),
		Duration:    time.Since(started),
	}
	for _, match := range matches {
		summary.ByType[match.Type.String()]++
	}

	log.WithFields(logger.Fields{
		"matches":  summary.Matches,
		"duration": summary.Duration.String(),
	}).Info("scope reconciled")
	return summary, nil
}

// RunAllScopes reconciles every stored scope. Scopes are independent, so
// they run concurrently on a bounded worker pool; one scope's failure does
// not stop the others. Summaries come back sorted by scope, and the first
// error (if any) is returned after all workers finish.
func (s *Service) RunAllScopes(ctx context.Context) ([]*ScopeSummary, error) {
	scopes, err := s.store.Scopes(ctx)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		summaries []*ScopeSummary
		firstErr  error
	)
	sem := make(chan struct{}, s.config.MaxConcurrentScopes)

	for _, scope := range scopes {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(scope string) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, err := s.RunScope(ctx, scope)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.WithScope(scope).WithError(err).Error("scope failed")
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			summaries = append(summaries, summary)
		}(scope)
	}

	wg.Wait()

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Scope < summaries[j].Scope })
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	return summaries, firstErr
}
