package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"ransomguard/internal/detection/scoring"
	"ransomguard/internal/domain/models"
	"ransomguard/pkg/logger"
)

// ErrScanNotFound is returned when a scan id does not exist
var ErrScanNotFound = errors.New("scan not found")

// DefaultRecentLimit is the number of scans shown on the dashboard
const DefaultRecentLimit = 10

// ScanStore persists scan records
type ScanStore interface {
	Create(ctx context.Context, scan *models.ScanResult) (*models.ScanResult, error)
	GetByID(ctx context.Context, id int64) (*models.ScanResult, error)
	List(ctx context.Context, limit int) ([]*models.ScanResult, error)
	Stats(ctx context.Context) (*models.ScanStats, error)
}

// StatsCache caches the dashboard counters
type StatsCache interface {
	CachedStats(ctx context.Context) (*models.ScanStats, error)
	CacheStats(ctx context.Context, stats *models.ScanStats) error
	InvalidateStats(ctx context.Context) error
}

// EventPublisher fans scan outcomes out to subscribers
type EventPublisher interface {
	PublishScan(ctx context.Context, scan *models.ScanResult, modelVersion string) error
	PublishQuickScan(ctx context.Context, profile string, v *models.Verdict, modelVersion string) error
	PublishModelReload(ctx context.Context, version string, features int, err error) error
}

// AnalyzeRequest is one submitted sample. RequestID, when set, is logged
// with the persisted scan.
type AnalyzeRequest struct {
	FileName  string
	Counters  models.Counters
	RequestID string
}

// AnalyzeResult is the verdict for a submitted sample and the record it produced
type AnalyzeResult struct {
	ScanID  int64              `json:"scan_id"`
	Verdict *models.Verdict    `json:"result"`
	Scan    *models.ScanResult `json:"-"`
}

// QuickScanResult is the verdict for a predefined profile
type QuickScanResult struct {
	Profile models.ScanProfile `json:"profile"`
	Known   bool               `json:"-"`
	Verdict *models.Verdict    `json:"result"`
}

// ModelStatus describes the active model
type ModelStatus struct {
	Loaded   bool      `json:"loaded"`
	Version  string    `json:"version,omitempty"`
	Features int       `json:"features,omitempty"`
	Dir      string    `json:"dir,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// ServiceStats are process-local counters
type ServiceStats struct {
	TotalScans    int64 `json:"total_scans"`
	QuickScans    int64 `json:"quick_scans"`
	ScoringErrors int64 `json:"scoring_errors"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
}

// ScanService scores samples, records them and notifies subscribers
type ScanService struct {
	engine      *scoring.Engine
	store       ScanStore
	cache       StatsCache
	events      EventPublisher
	artifactDir string
	logger      *logger.Logger

	totalScans    atomic.Int64
	quickScans    atomic.Int64
	scoringErrors atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
}

// ScanServiceOption configures optional collaborators
type ScanServiceOption func(*ScanService)

// WithStatsCache enables caching of dashboard stats
func WithStatsCache(c StatsCache) ScanServiceOption {
	return func(s *ScanService) { s.cache = c }
}

// WithEventPublisher enables scan events
func WithEventPublisher(p EventPublisher) ScanServiceOption {
	return func(s *ScanService) { s.events = p }
}

// NewScanService creates a new scan service. artifactDir is where reloads read from.
func NewScanService(engine *scoring.Engine, store ScanStore, artifactDir string, log *logger.Logger, opts ...ScanServiceOption) *ScanService {
	s := &ScanService{
		engine:      engine,
		store:       store,
		artifactDir: artifactDir,
		logger:      log.WithComponent("scan-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	setModelLoaded(engine.Available())
	return s
}

// Analyze scores a sample, persists the result and publishes a scan event.
// Nothing is persisted when scoring fails.
func (s *ScanService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	verdict, err := s.score(req.Counters)
	if err != nil {
		return nil, err
	}

	scan, err := s.store.Create(ctx, models.NewScanResult(req.FileName, req.Counters, verdict))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to save scan result")
		return nil, err
	}
	s.totalScans.Add(1)
	recordScan(scan.Prediction, string(scan.RiskLevel), true)

	log := s.logger.WithScanID(scan.ID)
	if req.RequestID != "" {
		log = log.WithRequestID(req.RequestID)
	}
	log.Info().
		Str("file_name", scan.FileName).
		Str("prediction", scan.Prediction).
		Str("risk_level", string(scan.RiskLevel)).
		Float64("malware_probability", scan.MalwareProbability).
		Msg("scan completed")

	if s.cache != nil {
		if err := s.cache.InvalidateStats(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate stats cache")
		}
	}
	if s.events != nil {
		if err := s.events.PublishScan(ctx, scan, s.modelVersion()); err != nil {
			s.logger.Warn().Err(err).Int64("scan_id", scan.ID).Msg("failed to publish scan event")
		}
	}

	return &AnalyzeResult{ScanID: scan.ID, Verdict: verdict, Scan: scan}, nil
}

// QuickScan scores a predefined profile without persisting it. Unknown
// profile keys score the benign profile.
func (s *ScanService) QuickScan(ctx context.Context, key string) (*QuickScanResult, error) {
	profile, known := QuickScanProfile(key)
	if !known {
		s.logger.Debug().Str("type", key).Msg("unknown quick scan type, using benign profile")
	}

	verdict, err := s.score(profile.Counters)
	if err != nil {
		return nil, err
	}
	s.quickScans.Add(1)
	recordScan(verdict.Prediction, string(verdict.RiskLevel), false)

	if s.events != nil {
		if err := s.events.PublishQuickScan(ctx, profile.Key, verdict, s.modelVersion()); err != nil {
			s.logger.Warn().Err(err).Str("profile", profile.Key).Msg("failed to publish quick scan event")
		}
	}

	return &QuickScanResult{Profile: profile, Known: known, Verdict: verdict}, nil
}

func (s *ScanService) score(c models.Counters) (*models.Verdict, error) {
	start := time.Now()
	verdict, err := s.engine.Score(c.Features())
	scoringDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.scoringErrors.Add(1)
		recordScoringError(err)
		return nil, err
	}
	return verdict, nil
}

// Get returns a scan by id, or ErrScanNotFound
func (s *ScanService) Get(ctx context.Context, id int64) (*models.ScanResult, error) {
	scan, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if scan == nil {
		return nil, ErrScanNotFound
	}
	return scan, nil
}

// List returns scans newest first. limit <= 0 returns all of them.
func (s *ScanService) List(ctx context.Context, limit int) ([]*models.ScanResult, error) {
	return s.store.List(ctx, limit)
}

// Recent returns the scans shown on the dashboard
func (s *ScanService) Recent(ctx context.Context) ([]*models.ScanResult, error) {
	return s.store.List(ctx, DefaultRecentLimit)
}

// Stats returns the dashboard counters, from cache when possible
func (s *ScanService) Stats(ctx context.Context) (*models.ScanStats, error) {
	if s.cache != nil {
		cached, err := s.cache.CachedStats(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read cached stats")
		}
		if cached != nil {
			s.cacheHits.Add(1)
			return cached, nil
		}
		s.cacheMisses.Add(1)
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats.GeneratedAt = time.Now().UTC()

	if s.cache != nil {
		if err := s.cache.CacheStats(ctx, stats); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache stats")
		}
	}
	return stats, nil
}

// ReloadModel reloads the artifacts from the configured directory. On
// failure the active model, if any, keeps serving.
func (s *ScanService) ReloadModel(ctx context.Context) (*ModelStatus, error) {
	bundle, err := s.engine.Reload(s.artifactDir)
	recordModelReload(err == nil)
	setModelLoaded(s.engine.Available())

	if s.events != nil {
		version, features := "", 0
		if bundle != nil {
			version, features = bundle.Version, len(bundle.Features)
		}
		if perr := s.events.PublishModelReload(ctx, version, features, err); perr != nil {
			s.logger.Warn().Err(perr).Msg("failed to publish model reload event")
		}
	}

	if err != nil {
		return nil, err
	}
	status := s.ModelStatus()
	return &status, nil
}

// ModelStatus describes the active model, or why there is none
func (s *ScanService) ModelStatus() ModelStatus {
	b := s.engine.Bundle()
	if b == nil {
		st := ModelStatus{Loaded: false}
		if err := s.engine.LoadErr(); err != nil {
			st.Error = err.Error()
		}
		return st
	}
	return ModelStatus{
		Loaded:   true,
		Version:  b.Version,
		Features: len(b.Features),
		Dir:      b.Dir,
		LoadedAt: b.LoadedAt,
	}
}

// ModelLoaded reports whether scoring is available
func (s *ScanService) ModelLoaded() bool {
	return s.engine.Available()
}

// CheckModel is a readiness probe for the model
func (s *ScanService) CheckModel(ctx context.Context) error {
	if !s.engine.Available() {
		return scoring.ErrModelUnavailable
	}
	return nil
}

// GetStats returns process-local counters
func (s *ScanService) GetStats() ServiceStats {
	return ServiceStats{
		TotalScans:    s.totalScans.Load(),
		QuickScans:    s.quickScans.Load(),
		ScoringErrors: s.scoringErrors.Load(),
		CacheHits:     s.cacheHits.Load(),
		CacheMisses:   s.cacheMisses.Load(),
	}
}

func (s *ScanService) modelVersion() string {
	if b := s.engine.Bundle(); b != nil {
		return b.Version
	}
	return ""
}
