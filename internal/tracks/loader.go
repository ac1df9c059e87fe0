package tracks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dissector-viewer/internal/platform/logger"
	"dissector-viewer/internal/platform/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "dissector-viewer/internal/tracks"

// Loader resolves a track to its archive, unpacks it and parses the
// dissector document.
type Loader struct {
	locator   *Locator
	fetcher   Fetcher
	cache     ArchiveCache
	cacheTTL  time.Duration
	log       *slog.Logger
	metrics   *metrics.Metrics
	inspector *Inspector
	tracer    trace.Tracer

	group singleflight.Group
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithMetrics enables load and cache metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithInspector records every opened archive's listing in i.
func WithInspector(i *Inspector) Option {
	return func(l *Loader) { l.inspector = i }
}

// WithCacheTTL sets how long fetched archives stay in the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(l *Loader) { l.cacheTTL = ttl }
}

// NewLoader returns a Loader. cache may be nil to always fetch.
func NewLoader(locator *Locator, fetcher Fetcher, cache ArchiveCache, opts ...Option) *Loader {
	l := &Loader{
		locator:  locator,
		fetcher:  fetcher,
		cache:    cache,
		cacheTTL: DefaultCacheTTL,
		log:      logger.Discard(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load fetches and parses the dissector document for track. Failures are
// reported in Result.Err and never panic. Concurrent loads of the same
// archive share one download; each caller still gets its own Document.
func (l *Loader) Load(ctx context.Context, track string) Result {
	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "tracks.Load", trace.WithAttributes(attribute.String("track", track)))
	defer span.End()

	res := l.load(ctx, TrackID(track))

	class := resultClass(res.Err)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, class)
		l.log.Warn("track load failed",
			slog.String("track", track),
			slog.String("result", class),
			slog.String("error", res.Err.Error()))
	} else {
		l.log.Debug("track loaded",
			slog.String("track", track),
			slog.Int("keys", len(res.Document)),
			slog.Int("duration_ms", int(time.Since(start).Milliseconds())))
	}
	if l.metrics != nil {
		l.metrics.ObserveLoad(class, time.Since(start))
	}
	return res
}

func (l *Loader) load(ctx context.Context, track TrackID) Result {
	res := Result{Track: track}

	url, err := l.locator.URL(track)
	if err != nil {
		res.Err = err
		return res
	}

	data, err := l.archive(ctx, url)
	if err != nil {
		res.Err = err
		return res
	}

	archive, err := OpenArchive(data)
	if err != nil {
		res.Err = err
		return res
	}
	raw, err := archive.ReadEntry(DissectorEntry)
	if err != nil {
		res.Err = err
		return res
	}

	res.Document, res.Err = ParseDocument(raw)
	if res.Err == nil && l.inspector != nil {
		l.inspector.Record(track, url, archive.Entries())
	}
	return res
}

// archive returns the archive bytes for url, preferring the cache. The
// download is shared by concurrent callers and detached from any single
// caller's cancellation; each caller still stops waiting when its own ctx
// is done.
func (l *Loader) archive(ctx context.Context, url string) ([]byte, error) {
	detached := context.WithoutCancel(ctx)
	ch := l.group.DoChan(url, func() (any, error) {
		return l.fetchArchive(detached, url)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

func (l *Loader) fetchArchive(ctx context.Context, url string) ([]byte, error) {
	if l.cache != nil {
		data, ok, err := l.cache.Get(ctx, url)
		if err != nil {
			l.log.Warn("archive cache read failed", slog.String("url", url), slog.String("error", err.Error()))
		}
		if l.metrics != nil {
			l.metrics.IncArchiveCache(ok)
		}
		if ok {
			return data, nil
		}
	}

	data, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, url, data, l.cacheTTL); err != nil {
			l.log.Warn("archive cache write failed", slog.String("url", url), slog.String("error", err.Error()))
		}
	}
	return data, nil
}

// resultClass names an outcome for metrics and logs.
func resultClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidTrack):
		return "invalid_track"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrUpstreamNotFound):
		return "upstream_not_found"
	case errors.Is(err, ErrUpstreamStatus):
		return "upstream_status"
	case errors.Is(err, ErrArchiveTooLarge):
		return "too_large"
	case errors.Is(err, ErrFetch):
		return "fetch_error"
	case errors.Is(err, ErrInvalidArchive):
		return "invalid_archive"
	case errors.Is(err, ErrEntryNotFound):
		return "entry_not_found"
	case errors.Is(err, ErrInvalidDocument):
		return "invalid_document"
	default:
		return "error"
	}
}
