package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
	drepo "FxCast/internal/domain/repository"
	"FxCast/pkg/cache"
	"FxCast/pkg/logger"
)

const catalogCacheKey = "catalog:symbols"

// CatalogLoader holds the symbol catalog. Each load replaces it wholesale.
type CatalogLoader struct {
	src   drepo.SymbolSource
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger

	mu      sync.RWMutex
	symbols []models.Symbol
	index   map[string]struct{}
}

// NewCatalogLoader creates a loader. c may be nil to disable caching.
func NewCatalogLoader(src drepo.SymbolSource, c cache.Service, ttl time.Duration, log *logger.Logger) *CatalogLoader {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogLoader{src: src, cache: c, ttl: ttl, log: log, index: map[string]struct{}{}}
}

// Load fetches the catalog. On failure the catalog is left empty and the
// error is a network error; nothing is retried.
func (l *CatalogLoader) Load(ctx context.Context) ([]models.Symbol, error) {
	syms, err := cache.GetOrLoad(ctx, l.cache, catalogCacheKey, l.ttl, l.src.Symbols)
	if err != nil {
		l.replace(nil)
		l.log.Error("catalog load failed", logger.Error(err))
		return nil, asNetworkError(err)
	}
	l.replace(syms)
	l.log.Info("catalog loaded", logger.Int("symbols", len(syms)))
	return l.Symbols(), nil
}

// Invalidate drops the cached catalog so the next Load hits the source.
func (l *CatalogLoader) Invalidate(ctx context.Context) {
	if l.cache != nil {
		_ = l.cache.Delete(ctx, catalogCacheKey)
	}
}

// Symbols returns a copy of the current catalog.
func (l *CatalogLoader) Symbols() []models.Symbol {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Symbol{}, l.symbols...)
}

// Filter returns the symbols whose value or label contains term,
// case-insensitively, in catalog order. An empty term returns everything.
func (l *CatalogLoader) Filter(term string) []models.Symbol {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Symbol, 0, len(l.symbols))
	for _, s := range l.symbols {
		if s.Matches(term) {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether ticker is in the loaded catalog.
func (l *CatalogLoader) Contains(ticker string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[ticker]
	return ok
}

func (l *CatalogLoader) replace(syms []models.Symbol) {
	index := make(map[string]struct{}, len(syms))
	for _, s := range syms {
		index[s.Value] = struct{}{}
	}
	l.mu.Lock()
	l.symbols = append([]models.Symbol(nil), syms...)
	l.index = index
	l.mu.Unlock()
}

// asNetworkError folds server and timeout failures into a network error.
// Cancellation and protocol errors keep their kind.
func asNetworkError(err error) error {
	switch errs.KindOf(err) {
	case errs.KindNetwork, errs.KindCanceled, errs.KindProtocol:
		return err
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return errs.Network(e.Op, err)
	}
	return errs.Network("symbols", err)
}
