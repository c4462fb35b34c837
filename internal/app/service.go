// Package app provides the core service implementing the dependencies
// required by the HTTP API: recording punches against the local store,
// aggregating hours, and feeding the async mirror pipeline.
package app

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crewtools/crewclock/internal/adapters/mirror"
	"github.com/crewtools/crewclock/internal/adapters/mq/queue"
	"github.com/crewtools/crewclock/internal/adapters/mq/worker"
	"github.com/crewtools/crewclock/internal/adapters/repository"
	"github.com/crewtools/crewclock/internal/domain/dedupe"
	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/internal/domain/pairing"
	"github.com/crewtools/crewclock/internal/domain/report"
	"github.com/crewtools/crewclock/pkg/clock"
	"github.com/crewtools/crewclock/pkg/logger"
	"github.com/crewtools/crewclock/pkg/metrics"
)

const (
	defaultQueueSize   = 4096
	defaultWorkerCount = 2
	defaultDedupeSize  = 10000
	defaultSourceTag   = "crew-clock"
)

// Service wires the punch store, the pairing engine, and the mirror
// pipeline behind the API's dependency surface.
type Service struct {
	mu sync.RWMutex

	store   repository.PunchStore
	sink    mirror.Sink
	clk     clock.Clock
	deduper dedupe.Deduper
	jobs    queue.Queue
	pool    *worker.Pool

	queueSize   int
	workerCount int
	dedupeSize  int
	sourceTag   string

	// personLocks serializes writes per person: two OUTs racing the same
	// open IN must not both consume it.
	personLocks sync.Map // person -> *sync.Mutex

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the punch store. Required before Start.
func WithStore(store repository.PunchStore) Option {
	return func(s *Service) { s.store = store }
}

// WithSink sets the mirror sink. When omitted the mirror is treated as not
// configured and every mirror job fails softly.
func WithSink(sink mirror.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock sets the clock used to stamp punches.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clk = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueueSize bounds the mirror job queue.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithWorkerCount sets the number of mirror workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithDedupeSize bounds the duplicate-submission cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithSourceTag sets the source column stamped on mirror rows.
func WithSourceTag(tag string) Option {
	return func(s *Service) {
		if tag != "" {
			s.sourceTag = tag
		}
	}
}

// New constructs a Service with defaults applied, then options.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:   defaultQueueSize,
		workerCount: defaultWorkerCount,
		dedupeSize:  defaultDedupeSize,
		sourceTag:   defaultSourceTag,
		clk:         clock.NewZoned(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the mirror pipeline and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}
	if s.store == nil {
		return ErrNotStarted
	}
	if s.sink == nil {
		s.sink = notConfiguredSink{}
		s.logger.Warn(ctx, "mirror sink not configured; punches will not be mirrored")
	}

	s.deduper = dedupe.NewMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobs = queue.NewMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.jobs, s.sink, s,
		worker.WithWorkerCount(s.workerCount),
		worker.WithLogger(s.logger.Named("mirror")),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "crewclock service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop drains the mirror pipeline and releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.pool.Stop()
	if closer, ok := s.sink.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "crewclock service stopped")
}

// RecordPunch validates and appends one punch. For an OUT it first matches
// the person's most recent open IN and returns the pair summary alongside
// the appended punch. Validation failures reject before any store mutation;
// mirror failures never fail the punch.
func (s *Service) RecordPunch(ctx context.Context, person, action, requestID string) (model.PunchResult, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.PunchResult{}, ErrNotStarted
	}

	person = trimPerson(person)
	if person == "" {
		metrics.RecordPunchRejected()
		return model.PunchResult{}, ErrInvalidPerson
	}
	act, err := model.ParseAction(action)
	if err != nil {
		metrics.RecordPunchRejected()
		return model.PunchResult{}, err
	}

	if requestID != "" && s.deduper.SeenAndRecord(ctx, requestID) {
		metrics.RecordPunchDuplicate()
		return model.PunchResult{}, ErrDuplicateRequest
	}

	lock := s.personLock(person)
	lock.Lock()
	defer lock.Unlock()

	now := s.clk.Now()

	var pair *model.PairSummary
	if act == model.ActionOut {
		history, err := s.store.ListByPerson(ctx, person)
		if err != nil {
			s.unrecord(ctx, requestID)
			return model.PunchResult{}, err
		}
		if openIn, ok := pairing.FindOpenIn(history); ok {
			hours := pairing.Hours(openIn, now)
			pair = &model.PairSummary{In: openIn, Out: now, Hours: hours}
			metrics.ObservePairHours(hours)
		}
	}

	punch := model.Punch{Person: person, Action: act, TS: now}
	id, err := s.store.Append(ctx, punch)
	if err != nil {
		s.unrecord(ctx, requestID)
		return model.PunchResult{}, err
	}
	punch.ID = id
	metrics.RecordPunch(string(act))
	metrics.UpdatePunchesStored(s.store.Count(ctx))

	s.enqueueMirror(ctx, punch, pair)

	return model.PunchResult{Punch: punch, Pair: pair}, nil
}

// enqueueMirror queues the punch row for the sink and, for an OUT, a totals
// rebuild of the row's ISO week. Fire-and-forget: backpressure is logged.
func (s *Service) enqueueMirror(ctx context.Context, punch model.Punch, pair *model.PairSummary) {
	bucket := pairing.Bucket(punch.TS, pairing.Weekly)
	row := model.Row{
		Date:   punch.TS.Format("2006-01-02"),
		Person: punch.Person,
		Action: string(punch.Action),
		Source: s.sourceTag,
	}
	switch {
	case punch.Action == model.ActionIn:
		row.TSIn = punch.TS.Format(clock.Stamp)
	case pair != nil:
		row.TSIn = pair.In.Format(clock.Stamp)
		row.TSOut = pair.Out.Format(clock.Stamp)
		row.Hours = strconv.FormatFloat(pair.Hours, 'f', -1, 64)
	}

	if !s.jobs.Enqueue(ctx, queue.Job{Kind: queue.KindAppendRow, Bucket: bucket, Row: row}) {
		s.logger.Warn(ctx, "mirror row dropped", logger.String("bucket", bucket), logger.String("person", punch.Person))
	}
	if punch.Action == model.ActionOut {
		if !s.jobs.Enqueue(ctx, queue.Job{Kind: queue.KindRebuild, Bucket: bucket}) {
			s.logger.Warn(ctx, "rebuild job dropped", logger.String("bucket", bucket))
		}
	}
}

// RecentPunches returns the newest punches, most recent first.
func (s *Service) RecentPunches(ctx context.Context, limit int) ([]model.Punch, error) {
	return s.store.ListAll(ctx, limit)
}

// Hours aggregates the full punch history at the requested granularity.
func (s *Service) Hours(ctx context.Context, g pairing.Granularity) (map[string]map[string]float64, error) {
	punches, err := s.store.ListAllAsc(ctx)
	if err != nil {
		return nil, err
	}
	return pairing.Aggregate(punches, g), nil
}

// OpenPunch returns the person's current open IN, if any.
func (s *Service) OpenPunch(ctx context.Context, person string) (time.Time, bool, error) {
	person = trimPerson(person)
	if person == "" {
		return time.Time{}, false, ErrInvalidPerson
	}
	history, err := s.store.ListByPerson(ctx, person)
	if err != nil {
		return time.Time{}, false, err
	}
	ts, ok := pairing.FindOpenIn(history)
	return ts, ok, nil
}

// RebuildBucket recomputes a bucket's published totals from the mirror's
// row log and rewrites the totals page and the cross-bucket summary. An
// empty bucket name means the current ISO week. Safe to re-run any number
// of times.
func (s *Service) RebuildBucket(ctx context.Context, bucket string) error {
	if bucket == "" {
		bucket = pairing.Bucket(s.clk.Now(), pairing.Weekly)
	}
	start := time.Now()

	rows, err := s.sink.BucketRows(ctx, bucket)
	if err != nil {
		return err
	}
	totals := report.BucketTotals(rows)
	updatedAt := s.clk.Now().Format(clock.Stamp)

	if err := s.sink.WriteTotals(ctx, bucket, totals, updatedAt); err != nil {
		return err
	}
	if err := s.sink.WriteSummary(ctx, bucket, totals, updatedAt); err != nil {
		return err
	}
	metrics.RecordRebuild()
	metrics.ObserveRebuildDuration(float64(time.Since(start).Milliseconds()))
	return nil
}

// Ping reports whether the store answers a one-row read.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetStats returns a monitoring snapshot.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		stats["queueLength"] = s.jobs.Len()
		stats["punchesStored"] = s.store.Count(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
		metrics.UpdateQueueSize(s.jobs.Len())
	}
	return stats
}

func (s *Service) personLock(person string) *sync.Mutex {
	actual, _ := s.personLocks.LoadOrStore(person, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (s *Service) unrecord(ctx context.Context, requestID string) {
	if requestID != "" {
		s.deduper.Unrecord(ctx, requestID)
	}
}

func trimPerson(person string) string {
	// Whitespace-only names collapse to empty and are rejected upstream.
	return strings.TrimSpace(person)
}

// notConfiguredSink fails every operation with ErrNotConfigured so the
// mirror pipeline logs the condition without special-casing a nil sink.
type notConfiguredSink struct{}

func (notConfiguredSink) AppendRow(context.Context, string, model.Row) error {
	return mirror.ErrNotConfigured
}

func (notConfiguredSink) BucketRows(context.Context, string) ([]model.Row, error) {
	return nil, mirror.ErrNotConfigured
}

func (notConfiguredSink) WriteTotals(context.Context, string, []report.Total, string) error {
	return mirror.ErrNotConfigured
}

func (notConfiguredSink) WriteSummary(context.Context, string, []report.Total, string) error {
	return mirror.ErrNotConfigured
}
