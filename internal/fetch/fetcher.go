package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/internal/fallback"
	"github.com/wonny/marketbrief/pkg/logger"
)

// Sentinel errors for fetch failures. Callers match them with errors.Is.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrEmptySeries         = errors.New("provider returned empty series")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrSnapshotTooOld      = errors.New("fallback snapshot too old")
)

// FetchError wraps a fetch failure with the series key it belongs to.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SeriesProvider fetches one time series from an external source.
type SeriesProvider interface {
	Fetch(ctx context.Context) (contracts.TimeSeries, error)
}

// ProviderFunc adapts a function to the SeriesProvider interface.
type ProviderFunc func(ctx context.Context) (contracts.TimeSeries, error)

func (f ProviderFunc) Fetch(ctx context.Context) (contracts.TimeSeries, error) {
	return f(ctx)
}

// Result is a fetched series plus its freshness. Stale means the series
// came from a fallback snapshot instead of a live fetch.
type Result struct {
	Series  contracts.TimeSeries
	Stale   bool
	AgeDays int
}

// Fetcher runs providers with fallback-to-snapshot semantics. A successful
// fetch refreshes the snapshot; a failed one falls back to the last good
// snapshot if it is young enough.
type Fetcher struct {
	store      *fallback.Store
	logger     *logger.Logger
	maxAgeDays int
	now        func() time.Time
}

// NewFetcher creates a fetcher. maxAgeDays caps snapshot age; zero means
// any age is accepted.
func NewFetcher(store *fallback.Store, log *logger.Logger, maxAgeDays int) *Fetcher {
	return &Fetcher{
		store:      store,
		logger:     log,
		maxAgeDays: maxAgeDays,
		now:        time.Now,
	}
}

// Fetch runs the provider for key. On success the snapshot is refreshed; on
// failure the snapshot stands in and the result is marked stale.
func (f *Fetcher) Fetch(ctx context.Context, key string, provider SeriesProvider) (Result, error) {
	series, err := provider.Fetch(ctx)
	if err == nil && series.Len() == 0 {
		err = ErrEmptySeries
	}

	if err == nil {
		if saveErr := f.store.Save(key, series); saveErr != nil {
			// A failed snapshot write must not fail the run
			f.logger.WithError(saveErr).WithField("key", key).Warn("Failed to save fallback snapshot")
		}
		return Result{Series: series}, nil
	}

	// A bad symbol is a configuration problem, not an outage. Stale data
	// would only hide it.
	if errors.Is(err, ErrInvalidSymbol) {
		return Result{}, &FetchError{Key: key, Err: err}
	}

	f.logger.WithError(err).WithField("key", key).Warn("Live fetch failed, trying fallback snapshot")

	snap, loadErr := f.store.Load(key)
	if loadErr != nil {
		if errors.Is(loadErr, fallback.ErrNotFound) {
			return Result{}, &FetchError{Key: key, Err: fmt.Errorf("%w: %v", ErrProviderUnavailable, err)}
		}
		return Result{}, &FetchError{Key: key, Err: loadErr}
	}

	age := snap.AgeDays(f.now())
	if f.maxAgeDays > 0 && age > f.maxAgeDays {
		return Result{}, &FetchError{
			Key: key,
			Err: fmt.Errorf("%w: age %d days exceeds limit %d", ErrSnapshotTooOld, age, f.maxAgeDays),
		}
	}

	f.logger.WithFields(map[string]interface{}{
		"key":      key,
		"age_days": age,
	}).Warn("Using fallback snapshot")

	return Result{Series: snap.Series, Stale: true, AgeDays: age}, nil
}
