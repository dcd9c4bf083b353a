package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
	"github.com/ChrisMcGann/RamanKey/pkg/filter"
	"github.com/ChrisMcGann/RamanKey/pkg/score"
)

// Progress is a snapshot of a running search.
type Progress struct {
	Processed    int
	Total        int
	Matches      int
	Done         bool
	EarlyStopped bool // the tail of the candidate set was not scanned
}

// ProgressFunc receives progress updates on the searching goroutine.
type ProgressFunc func(Progress)

// ChannelProgress adapts a channel into a ProgressFunc for hosts that
// consume updates on another goroutine. Updates are dropped instead of
// blocking when the channel is full.
func ChannelProgress(ch chan<- Progress) ProgressFunc {
	return func(p Progress) {
		select {
		case ch <- p:
		default:
		}
	}
}

// Engine runs searches. It keeps no state between calls beyond its
// configuration and may be shared.
type Engine struct {
	log           *zap.Logger
	metrics       *Metrics
	scoreCfg      score.Config
	progressEvery float64
	withoutDTW    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics records searches into m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithScoreConfig replaces the scorer tunables.
func WithScoreConfig(cfg score.Config) Option {
	return func(e *Engine) {
		e.scoreCfg = cfg
	}
}

// WithProgressInterval sets how often progress is reported, as a fraction
// of the candidate count.
func WithProgressInterval(fraction float64) Option {
	return func(e *Engine) {
		if fraction > 0 && fraction <= 1 {
			e.progressEvery = fraction
		}
	}
}

// WithoutDTW runs DTW-based algorithms on their correlation fallback.
func WithoutDTW() Option {
	return func(e *Engine) {
		e.withoutDTW = true
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log:           zap.NewNop(),
		scoreCfg:      score.DefaultConfig(),
		progressEvery: 0.1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SearchLibrary searches every record of lib.
func (e *Engine) SearchLibrary(
	ctx context.Context, query score.Query, lib core.Library, f Filters, progress ProgressFunc,
) ([]core.MatchResult, error) {
	return e.Search(ctx, query, core.Records(lib), f, progress)
}

// Search scores candidates against query and returns at most
// f.MaxResults matches scoring at least f.Threshold, best first. Ties keep
// candidate order. A malformed query or invalid filters are rejected
// before scanning; a malformed candidate is logged and skipped. When ctx
// is cancelled the matches ranked so far are returned with ctx.Err().
func (e *Engine) Search(
	ctx context.Context, query score.Query, candidates []*core.Record, f Filters, progress ProgressFunc,
) ([]core.MatchResult, error) {
	start := time.Now()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	// Canonical spelling for scoring, early termination and metric labels
	f.Algorithm, _ = score.ParseAlgorithm(string(f.Algorithm))
	if query.Spectrum.Len() == 0 {
		return nil, core.ErrEmptyQuery
	}
	if err := query.Spectrum.Validate(); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	log := e.log.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("algorithm", string(f.Algorithm)),
	)

	// Records without data and metadata mismatches never reach the scorer
	candidates = f.Metadata.Apply(filter.RemoveEmptyRecords(candidates))
	if len(candidates) == 0 {
		log.Info("no candidates to search")
		e.metrics.searchDone(f.Algorithm, "empty", start)
		report(progress, Progress{Done: true})
		return []core.MatchResult{}, nil
	}

	cfg := e.scoreCfg
	if f.PeakTolerance > 0 {
		cfg.PeakTolerance = f.PeakTolerance
	}
	if len(f.PeakPositions) > 0 {
		query.CallerPeaks = f.PeakPositions
	}
	opts := []score.Option{score.WithLogger(log)}
	if e.withoutDTW {
		opts = append(opts, score.WithoutDTW())
	}
	scorer, err := score.NewScorer(f.Algorithm, query, cfg, opts...)
	if err != nil {
		return nil, err
	}

	total := len(candidates)
	step := max(1, int(math.Round(float64(total)*e.progressEvery)))
	earlyStop := f.Algorithm.Expensive() && !f.Exhaustive

	var (
		matches   []core.MatchResult
		processed int
		failed    int
		stopped   bool
		ctxErr    error
	)
	for _, rec := range candidates {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		processed++

		v, err := e.scoreCandidate(scorer, rec)
		switch {
		case err != nil:
			failed++
			log.Debug("candidate skipped", zap.String("name", rec.Name), zap.Error(err))
			e.metrics.candidateFailed(f.Algorithm)
		case v >= f.Threshold:
			matches = append(matches, core.MatchResult{
				Name:     rec.Name,
				Score:    v,
				Metadata: rec.Metadata,
				Peaks:    rec.Peaks,
			})
		}
		e.metrics.candidateScored(f.Algorithm)

		if processed%step == 0 && processed < total {
			report(progress, Progress{Processed: processed, Total: total, Matches: len(matches)})
		}

		if earlyStop && len(matches) >= earlyStopFactor*f.MaxResults &&
			float64(processed) >= earlyStopFraction*float64(total) {
			stopped = processed < total
			break
		}
	}

	results := rank(matches, f.MaxResults)

	outcome := "ok"
	switch {
	case ctxErr != nil:
		outcome = "cancelled"
		log.Info("search cancelled", zap.Int("processed", processed), zap.Int("total", total))
	case stopped:
		outcome = "early_stop"
		e.metrics.earlyTermination(f.Algorithm)
		log.Info("search stopped early",
			zap.Int("processed", processed),
			zap.Int("total", total),
			zap.Int("matches", len(matches)))
	}
	e.metrics.searchDone(f.Algorithm, outcome, start)
	log.Info("search finished",
		zap.Int("candidates", total),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)))

	report(progress, Progress{
		Processed:    processed,
		Total:        total,
		Matches:      len(matches),
		Done:         true,
		EarlyStopped: stopped,
	})
	return results, ctxErr
}

// scoreCandidate isolates a single candidate, turning a panic into an error.
func (e *Engine) scoreCandidate(s *score.Scorer, rec *core.Record) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scoring %q panicked: %v", rec.Name, r)
		}
	}()
	return s.Evaluate(rec.Spectrum())
}

// rank sorts matches by descending score, keeping input order for ties,
// and truncates to limit.
func rank(matches []core.MatchResult, limit int) []core.MatchResult {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		return []core.MatchResult{}
	}
	return matches
}

func report(progress ProgressFunc, p Progress) {
	if progress != nil {
		progress(p)
	}
}
