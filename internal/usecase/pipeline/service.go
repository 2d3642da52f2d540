// Package pipeline orchestrates the extraction run: fetch threads, extract
// mentions, aggregate, verify, rank, and cache the result for one
// (city, category) partition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/wildpath/naturescout/internal/domain"
	"github.com/wildpath/naturescout/internal/metrics"
	"github.com/wildpath/naturescout/internal/retry"
	"github.com/wildpath/naturescout/internal/usecase/aggregate"
	"github.com/wildpath/naturescout/internal/usecase/rank"
)

// EmptyReasonNoLocations marks a legitimate "nothing found" outcome.
const EmptyReasonNoLocations = "no verifiable locations found"

// EmptyReasonSourcesFailed marks a degraded run where no thread could be read.
const EmptyReasonSourcesFailed = "discussion sources unavailable"

// RunRequest asks for one partition to be (re)computed.
type RunRequest struct {
	City       string
	Category   string
	ThreadRefs []string
	// Force skips the cache read and overwrites the stored record, the
	// recovery path for cached empty results.
	Force bool
}

// Options configures orchestration behavior.
type Options struct {
	Weights            rank.Weights
	ExtractConcurrency int
	RunTimeout         time.Duration
	SourceRetry        retry.Policy
	ExtractRetry       retry.Policy
}

// Service runs the pipeline with per-partition single-flight semantics.
type Service struct {
	source    Source
	extractor Extractor
	verifier  Verifier
	cache     Cache
	opts      Options
	logger    *zap.Logger

	group singleflight.Group
	now   func() time.Time
}

// New creates a pipeline orchestrator.
func New(source Source, extractor Extractor, verifier Verifier, cache Cache,
	opts Options, logger *zap.Logger,
) *Service {
	if opts.ExtractConcurrency <= 0 {
		opts.ExtractConcurrency = 3
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 2 * time.Minute
	}
	return &Service{
		source:    source,
		extractor: extractor,
		verifier:  verifier,
		cache:     cache,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Run returns the cached record for the partition, computing it first on a
// miss or a forced refresh. Concurrent runs for the same partition coalesce
// onto one in-flight computation; its lifetime is detached from any single
// caller so an abandoned request never cancels the cache write.
func (s *Service) Run(ctx context.Context, req RunRequest) (domain.CacheRecord, error) {
	if req.City == "" || req.Category == "" {
		return domain.CacheRecord{}, fmt.Errorf("%w: city and category are required", domain.ErrInvalidRequest)
	}
	if len(req.ThreadRefs) == 0 {
		return domain.CacheRecord{}, fmt.Errorf("%w: at least one thread reference is required", domain.ErrInvalidRequest)
	}

	cityKey := domain.CityKey(req.City)
	categoryKey := domain.CategoryKey(req.Category)

	if !req.Force {
		rec, err := s.cache.GetRecord(ctx, cityKey, categoryKey)
		if err == nil {
			metrics.PipelineRunsTotal.WithLabelValues("hit").Inc()
			return rec, nil
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return domain.CacheRecord{}, err
		}
	}

	flightKey := cityKey + "|" + categoryKey
	result, err, shared := s.group.Do(flightKey, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RunTimeout)
		defer cancel()
		return s.runPipeline(runCtx, req, cityKey, categoryKey)
	})
	if shared {
		metrics.PipelineSharedRunsTotal.Inc()
	}
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		return domain.CacheRecord{}, err
	}

	rec := result.(domain.CacheRecord)
	if rec.Empty() {
		metrics.PipelineRunsTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.PipelineRunsTotal.WithLabelValues("miss").Inc()
	}
	return rec, nil
}

func (s *Service) runPipeline(
	ctx context.Context, req RunRequest, cityKey, categoryKey string,
) (domain.CacheRecord, error) {
	start := s.now()

	city, err := s.resolveCity(ctx, req.City, cityKey)
	if err != nil {
		return domain.CacheRecord{}, fmt.Errorf("resolve city: %w", err)
	}

	candidates, sourceRefs := s.collectCandidates(ctx, req)
	sort.Strings(sourceRefs) // concurrent fetch order is not stable

	emptyReason := ""
	if len(sourceRefs) == 0 {
		emptyReason = EmptyReasonSourcesFailed
	}

	merged := aggregate.Merge(candidates)
	verified := s.verifier.Verify(ctx, city, categoryKey, merged)
	ranked := rank.Score(verified, s.opts.Weights)

	if len(ranked) == 0 && emptyReason == "" {
		emptyReason = EmptyReasonNoLocations
	}

	rec := domain.CacheRecord{
		CityKey:     cityKey,
		CategoryKey: categoryKey,
		Locations:   ranked,
		EmptyReason: emptyReason,
		SourceRefs:  sourceRefs,
		UpdatedAt:   s.now().UTC(),
		Version:     domain.SchemaVersion,
	}
	if !rec.Empty() {
		rec.EmptyReason = ""
	}

	city.AddCategory(categoryKey)
	if err := s.cache.PutCityMetadata(ctx, cityKey, city); err != nil {
		return domain.CacheRecord{}, fmt.Errorf("put city metadata: %w", err)
	}
	if err := s.cache.PutRecord(ctx, rec); err != nil {
		return domain.CacheRecord{}, fmt.Errorf("put record: %w", err)
	}

	metrics.PipelineRunDuration.Observe(s.now().Sub(start).Seconds())
	s.logger.Info("pipeline run complete",
		zap.String("city", cityKey),
		zap.String("category", categoryKey),
		zap.Int("threads", len(sourceRefs)),
		zap.Int("candidates", len(merged)),
		zap.Int("locations", len(ranked)),
		zap.String("empty_reason", rec.EmptyReason),
	)
	return rec, nil
}

// resolveCity anchors the run on verified city metadata. When the verifier
// is down but the city is already known to the cache, the stored metadata
// keeps the run going; an unknown city stays a hard failure.
func (s *Service) resolveCity(ctx context.Context, city, cityKey string) (domain.CityMetadata, error) {
	meta, err := s.verifier.ResolveCity(ctx, city)
	if err == nil {
		return meta, nil
	}
	if errors.Is(err, domain.ErrCityNotFound) {
		return domain.CityMetadata{}, err
	}

	cached, cacheErr := s.cache.GetCityMetadata(ctx, cityKey)
	if cacheErr != nil {
		return domain.CityMetadata{}, err
	}
	s.logger.Warn("city resolution failed, using cached metadata",
		zap.String("city", cityKey),
		zap.Error(err),
	)
	return cached, nil
}

// collectCandidates fetches every thread and extracts weighted mentions
// from its comments under a bounded worker pool. A failing thread is
// logged and skipped; the run continues on the remainder.
func (s *Service) collectCandidates(ctx context.Context, req RunRequest) ([]domain.Candidate, []string) {
	perThread := make([][]domain.Candidate, len(req.ThreadRefs))
	refs := make([]string, len(req.ThreadRefs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ExtractConcurrency)

	for i, ref := range req.ThreadRefs {
		g.Go(func() error {
			thread, err := retry.Do(gctx, s.opts.SourceRetry, func() (domain.Thread, error) {
				return s.source.FetchThread(gctx, ref)
			})
			if err != nil {
				s.logger.Warn("skipping thread",
					zap.String("ref", ref),
					zap.Error(err),
				)
				return nil
			}

			// Indexed by input position so the flattened order is stable.
			perThread[i] = s.extractFromThread(gctx, thread, req.Category)
			refs[i] = thread.Ref
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	var candidates []domain.Candidate
	var sourceRefs []string
	for i := range req.ThreadRefs {
		candidates = append(candidates, perThread[i]...)
		if refs[i] != "" {
			sourceRefs = append(sourceRefs, refs[i])
		}
	}
	return candidates, sourceRefs
}

func (s *Service) extractFromThread(ctx context.Context, thread domain.Thread, category string) []domain.Candidate {
	var out []domain.Candidate
	for _, comment := range thread.Comments {
		names, err := retry.Do(ctx, s.opts.ExtractRetry, func() ([]string, error) {
			return s.extractor.ExtractLocations(ctx, comment.Body, category)
		})
		if err != nil {
			s.logger.Warn("skipping comment extraction",
				zap.String("ref", thread.Ref),
				zap.Error(err),
			)
			continue
		}

		weight := domain.MentionWeight(comment.Score)
		for _, name := range names {
			out = append(out, domain.Candidate{
				RawName:   name,
				ThreadRef: thread.Ref,
				Weight:    weight,
			})
		}
	}
	return out
}
