// Package service provides the analysis service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/okian/scholardash/internal/adapters/repository"
	"github.com/okian/scholardash/internal/config"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/stats"
	"github.com/okian/scholardash/internal/domain/tier"
	"github.com/okian/scholardash/pkg/logger"
	"github.com/okian/scholardash/pkg/metrics"
)

// ErrNotFound is returned for an unknown student.
var ErrNotFound = errors.New("student not found")

// Tables is the read side of the data repository.
type Tables interface {
	Engagement(ctx context.Context) (repository.Table[model.EngagementRecord], error)
	TieredEngagement(ctx context.Context) (repository.Table[model.EngagementRecord], error)
	Exams(ctx context.Context) (repository.Table[model.ExamRecord], error)
	ExamHistory(ctx context.Context) (repository.Table[model.ExamRecord], error)
	Sections(ctx context.Context) (repository.Table[model.SectionRecord], error)
	TierAssignments(ctx context.Context) (repository.Table[model.TierRecord], error)
	Outcomes(ctx context.Context) (repository.Table[model.OutcomeRecord], error)
	Roster(ctx context.Context) (repository.Table[model.RosterRecord], error)
	Status() []repository.BundleStatus
}

// Service runs every analysis against the cached tables. Results are
// recomputed on each call.
type Service struct {
	mu sync.RWMutex

	tables   Tables
	tiers    *tier.Table
	analysis config.Analysis
	dataDirs []string
	files    config.Files

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTables sets the table source.
func WithTables(t Tables) Option {
	return func(s *Service) {
		if t != nil {
			s.tables = t
		}
	}
}

// WithTierTable sets the tier threshold table.
func WithTierTable(t *tier.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.tiers = t
		}
	}
}

// WithAnalysis sets the per-analysis cutoffs.
func WithAnalysis(a config.Analysis) Option {
	return func(s *Service) {
		s.analysis = a
	}
}

// WithConfig applies data paths, tier bands and cutoffs from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.analysis = cfg.Analysis
		s.dataDirs = cfg.DataDirs
		s.files = cfg.Files
		s.tiers = TierTable(cfg.Tiers)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// TierTable builds the classifier table from configured bands.
func TierTable(bands map[string]config.TierBands) *tier.Table {
	names := make([]string, 0, len(bands))
	for name := range bands {
		names = append(names, name)
	}
	sort.Strings(names)
	opts := make([]tier.Option, 0, len(names))
	for _, name := range names {
		b := bands[name]
		opts = append(opts, tier.WithThresholds(name, b.Label, b.Tier1Min, b.Tier2Min))
	}
	return tier.NewTable(opts...)
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	cfg := config.New()
	s := &Service{
		analysis: cfg.Analysis,
		dataDirs: cfg.DataDirs,
		files:    cfg.Files,
		tiers:    TierTable(cfg.Tiers),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resolves the data bundles and logs where each was found. Missing
// bundles are not an error: their analyses report unavailable.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.tables == nil {
		s.tables = repository.NewLoader(s.dataDirs, s.files)
	}

	s.logger.Info(ctx, "starting analysis service...")
	for _, st := range s.tables.Status() {
		if st.Available {
			s.logger.Info(ctx, "data bundle resolved",
				logger.String("bundle", string(st.Bundle)),
				logger.String("base", st.Base))
			continue
		}
		s.logger.Warn(ctx, "data bundle unavailable",
			logger.String("bundle", string(st.Bundle)),
			logger.String("reason", st.Reason))
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "analysis service started", logger.Strings("tierSets", s.tiers.Names()))
	return nil
}

// Stop marks the service stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "analysis service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]any{
		"started":  s.started,
		"tierSets": s.tiers.Names(),
	}
	if !s.started {
		return out
	}
	out["uptimeSeconds"] = time.Since(s.startedAt).Seconds()
	out["bundles"] = s.tables.Status()
	if l, ok := s.tables.(interface{ Cache() *repository.TableCache }); ok {
		out["cachedTables"] = l.Cache().Size()
		out["tableLoads"] = l.Cache().Loads()
	}
	return out
}

// TierDefinitions renders the configured threshold table.
func (s *Service) TierDefinitions(context.Context) []tier.Definition {
	return s.tiers.Definitions()
}

func (s *Service) tablesOrDefault() Tables {
	s.mu.RLock()
	t := s.tables
	s.mu.RUnlock()
	if t != nil {
		return t
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables == nil {
		s.tables = repository.NewLoader(s.dataDirs, s.files)
	}
	return s.tables
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Get().Named("service")
	}
	return l
}

func (s *Service) compareOptions() stats.Options {
	return stats.Options{Alpha: s.analysis.Alpha, EqualVariance: s.analysis.EqualVariance}
}

// Meta is carried by every analysis result. An unavailable result has no
// computed values and Reason says why.
type Meta struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func available() Meta { return Meta{Available: true} }

func unavailable(err error) Meta {
	return Meta{Reason: err.Error()}
}

func insufficient() Meta {
	return Meta{Reason: model.ErrEmptyCohort.Error()}
}

// observe records metrics and logs for one analysis run.
func (s *Service) observe(ctx context.Context, name string, start time.Time, m Meta) {
	outcome := metrics.OutcomeOK
	switch {
	case m.Available:
	case m.Reason == model.ErrEmptyCohort.Error():
		outcome = metrics.OutcomeInsufficient
	default:
		outcome = metrics.OutcomeUnavailable
	}
	metrics.RecordAnalysis(name, outcome, float64(time.Since(start).Nanoseconds())/1e6)
	if !m.Available {
		s.log().Warn(ctx, "analysis unavailable",
			logger.String("analysis", name),
			logger.String("reason", m.Reason))
	}
}

func (s *Service) cohortSizes(ctx context.Context, analysis string, sizes map[string]int) {
	fields := make([]logger.Field, 0, len(sizes)+1)
	fields = append(fields, logger.String("analysis", analysis))
	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		metrics.RecordCohortSize(analysis+"/"+name, sizes[name])
		fields = append(fields, logger.Int(name, sizes[name]))
	}
	s.log().Debug(ctx, "cohort sizes", fields...)
}
