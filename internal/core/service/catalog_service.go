package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/record-catalog/internal/core/domain"
	"github.com/rl1809/record-catalog/internal/port"
)

const (
	DefaultCacheTTL = 60 * time.Second

	tracerName        = "github.com/rl1809/record-catalog/internal/core/service"
	maxUpdateAttempts = 3
)

type Option func(*options)

type options struct {
	logger *slog.Logger
	tracer trace.Tracer
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CatalogService orchestrates the record store, the list cache and the
// tracklist provider. It keeps no per-call state and is safe for concurrent use.
type CatalogService struct {
	records  port.RecordRepository
	cache    port.CacheRepository
	tracks   port.TracklistProvider
	cacheTTL time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewCatalogService(records port.RecordRepository, cache port.CacheRepository, tracks port.TracklistProvider, cacheTTL time.Duration, opts ...Option) *CatalogService {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	o := buildOptions(opts)
	return &CatalogService{
		records:  records,
		cache:    cache,
		tracks:   tracks,
		cacheTTL: cacheTTL,
		logger:   o.logger,
		tracer:   o.tracer,
	}
}

func (s *CatalogService) CreateRecord(ctx context.Context, req domain.CreateRecord) (_ *domain.Envelope[*domain.Record], err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.CreateRecord")
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tracklist := []string{}
	if req.MBID != "" {
		span.SetAttributes(attribute.String("record.mbid", req.MBID))
		tracklist, err = s.fetchTracklist(ctx, req.MBID)
		if err != nil {
			return nil, s.internal(ctx, "CreateRecord", "Failed to create record", err)
		}
	}

	record, err := s.records.CreateRecord(ctx, domain.Record{
		Artist:    req.Artist,
		Album:     req.Album,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Format:    req.Format,
		Category:  req.Category,
		MBID:      req.MBID,
		Tracklist: tracklist,
	})
	if err != nil {
		return nil, s.internal(ctx, "CreateRecord", "Failed to create record", fmt.Errorf("create record: %w", err))
	}

	return domain.OK("Record created successfully", record), nil
}

func (s *CatalogService) UpdateRecord(ctx context.Context, id string, req domain.UpdateRecord) (_ *domain.Envelope[*domain.Record], err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.UpdateRecord", trace.WithAttributes(attribute.String("record.id", id)))
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	// The tracklist is fetched at most once even if the save is retried.
	var fetched []string
	var fetchedFor string

	for attempt := 1; ; attempt++ {
		current, err := s.records.GetRecord(ctx, id)
		if err != nil {
			return nil, s.internal(ctx, "UpdateRecord", "Failed to update record", fmt.Errorf("get record %s: %w", id, err))
		}
		if current == nil {
			return nil, domain.NotFound("Record not found")
		}

		next := *current
		if NeedsReenrichment(*current, req) {
			if fetched == nil || fetchedFor != *req.MBID {
				fetched, err = s.fetchTracklist(ctx, *req.MBID)
				if err != nil {
					return nil, s.internal(ctx, "UpdateRecord", "Failed to update record", err)
				}
				fetchedFor = *req.MBID
			}
			next.Tracklist = fetched
		}
		req.Apply(&next)

		saved, err := s.records.UpdateRecord(ctx, next)
		if errors.Is(err, domain.ErrOptimisticLock) && attempt < maxUpdateAttempts {
			s.logger.DebugContext(ctx, "record changed concurrently, retrying update", "record_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, s.internal(ctx, "UpdateRecord", "Failed to update record", fmt.Errorf("save record %s: %w", id, err))
		}

		return domain.OK("Record updated successfully", saved), nil
	}
}

func (s *CatalogService) ListRecords(ctx context.Context, query domain.ListQuery) (_ *domain.Envelope[*domain.RecordPage], err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListRecords")
	defer func() { endSpan(span, err) }()

	q, err := query.Resolve()
	if err != nil {
		return nil, err
	}
	key := ListCacheKey(q)
	span.SetAttributes(attribute.String("cache.key", key))

	cached, found, cacheErr := s.cache.GetRecordPage(ctx, key)
	if cacheErr != nil {
		s.logger.WarnContext(ctx, "cache retrieval failed", "key", key, "error", cacheErr)
	} else if found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return domain.OK("Records fetched successfully (cached)", &domain.RecordPage{
			Records:    cached,
			Pagination: domain.NewPagination(q.Page, q.Limit, len(cached)),
		}), nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	filter := BuildRecordFilter(q)
	total, err := s.records.CountRecords(ctx, filter)
	if err != nil {
		return nil, s.internal(ctx, "ListRecords", "Failed to fetch records", fmt.Errorf("count records: %w", err))
	}
	records, err := s.records.FindRecords(ctx, filter, q.Offset(), q.Limit)
	if err != nil {
		return nil, s.internal(ctx, "ListRecords", "Failed to fetch records", fmt.Errorf("find records: %w", err))
	}
	if records == nil {
		records = []domain.Record{}
	}

	if err := s.cache.SetRecordPage(ctx, key, records, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache store failed", "key", key, "error", err)
	}

	return domain.OK("Records fetched successfully", &domain.RecordPage{
		Records:    records,
		Pagination: domain.NewPagination(q.Page, q.Limit, total),
	}), nil
}

// AdjustStock adds delta to the record's quantity. The non-negative check
// and the write happen in one conditional store update, so concurrent
// adjustments can never oversell.
func (s *CatalogService) AdjustStock(ctx context.Context, id string, delta int) (_ *domain.Envelope[*domain.Record], err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.AdjustStock", trace.WithAttributes(
		attribute.String("record.id", id),
		attribute.Int("stock.delta", delta),
	))
	defer func() { endSpan(span, err) }()

	if delta > domain.MaxQuantity || delta < -domain.MaxQuantity {
		return nil, domain.BadRequest("Stock adjustment out of range")
	}

	record, err := s.records.AdjustQuantity(ctx, id, delta)
	if errors.Is(err, domain.ErrInsufficientStock) {
		return nil, domain.BadRequest("Not enough stock available")
	}
	if errors.Is(err, domain.ErrQuantityOverflow) {
		return nil, domain.BadRequest("Stock quantity out of range")
	}
	if err != nil {
		return nil, s.internal(ctx, "AdjustStock", "Failed to update stock", fmt.Errorf("adjust quantity %s by %d: %w", id, delta, err))
	}
	if record == nil {
		return nil, domain.NotFound(fmt.Sprintf("Record with ID %s not found", id))
	}

	return domain.OK("Stock updated successfully", record), nil
}

// GetRecord always reads the store; lookups by ID are not part of the cached
// query space.
func (s *CatalogService) GetRecord(ctx context.Context, id string) (_ *domain.Envelope[*domain.Record], err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.GetRecord", trace.WithAttributes(attribute.String("record.id", id)))
	defer func() { endSpan(span, err) }()

	record, err := s.records.GetRecord(ctx, id)
	if err != nil {
		return nil, s.internal(ctx, "GetRecord", "Failed to fetch record", fmt.Errorf("get record %s: %w", id, err))
	}
	if record == nil {
		return nil, domain.NotFound(fmt.Sprintf("Record with ID %s not found", id))
	}

	return domain.OK("Record fetched successfully", record), nil
}

func (s *CatalogService) fetchTracklist(ctx context.Context, mbid string) ([]string, error) {
	tracklist, err := s.tracks.FetchTracklist(ctx, mbid)
	if err != nil {
		return nil, fmt.Errorf("fetch tracklist %s: %w", mbid, err)
	}
	if tracklist == nil {
		tracklist = []string{}
	}
	return tracklist, nil
}

// internal logs the cause and returns a generic error that is safe to expose.
func (s *CatalogService) internal(ctx context.Context, op, msg string, cause error) error {
	s.logger.ErrorContext(ctx, msg, "op", op, "error", cause)
	return domain.Internal(msg)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
