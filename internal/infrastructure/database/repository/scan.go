package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"ransomguard/internal/domain/models"
	"ransomguard/internal/infrastructure/database"
)

const scanColumns = `id, timestamp, file_name, prediction, confidence, malware_probability,
	risk_level, recommendation, registry_read, registry_write, registry_delete,
	network_threats, processes_malicious, files_malicious`

// ScanRepository handles scan result persistence in PostgreSQL
type ScanRepository struct {
	db database.DBTX
}

// NewScanRepository creates a new scan repository
func NewScanRepository(db database.DBTX) *ScanRepository {
	return &ScanRepository{db: db}
}

// Create inserts a scan result and fills in its ID
func (r *ScanRepository) Create(ctx context.Context, s *models.ScanResult) (*models.ScanResult, error) {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	if s.FileName == "" {
		s.FileName = models.DefaultFileName
	}

	query := `
		INSERT INTO scan_results (
			timestamp, file_name, prediction, confidence, malware_probability,
			risk_level, recommendation, registry_read, registry_write, registry_delete,
			network_threats, processes_malicious, files_malicious
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		) RETURNING id, timestamp`

	var ts pgtype.Timestamptz
	err := r.db.QueryRow(ctx, query,
		timeToTimestamptz(s.Timestamp), s.FileName, s.Prediction,
		floatToFloat8(s.Confidence), floatToFloat8(s.MalwareProbability),
		string(s.RiskLevel), string(s.Recommendation),
		s.RegistryRead, s.RegistryWrite, s.RegistryDelete,
		s.NetworkThreats, s.ProcessesMalicious, s.FilesMalicious,
	).Scan(&s.ID, &ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan result: %w", err)
	}
	s.Timestamp = timestamptzToTime(ts).UTC()

	return s, nil
}

// GetByID retrieves a scan result by ID. A missing scan is (nil, nil).
func (r *ScanRepository) GetByID(ctx context.Context, id int64) (*models.ScanResult, error) {
	query := `SELECT ` + scanColumns + ` FROM scan_results WHERE id = $1`

	s, err := scanResult(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scan result by ID: %w", err)
	}
	return s, nil
}

// List returns scan results newest first. A limit <= 0 returns all of them.
func (r *ScanRepository) List(ctx context.Context, limit int) ([]*models.ScanResult, error) {
	query := `SELECT ` + scanColumns + ` FROM scan_results ORDER BY timestamp DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan results: %w", err)
	}
	defer rows.Close()

	scans := []*models.ScanResult{}
	for rows.Next() {
		s, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan results: %w", err)
	}

	return scans, nil
}

// Stats returns the dashboard counters
func (r *ScanRepository) Stats(ctx context.Context) (*models.ScanStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE prediction = $1),
			COUNT(*) FILTER (WHERE risk_level = $2)
		FROM scan_results`

	stats := &models.ScanStats{GeneratedAt: time.Now().UTC()}
	err := r.db.QueryRow(ctx, query, models.LabelMalware, string(models.RiskLevelHigh)).
		Scan(&stats.TotalScans, &stats.MalwareDetected, &stats.HighRisk)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan stats: %w", err)
	}
	return stats, nil
}

func scanResult(row pgx.Row) (*models.ScanResult, error) {
	var (
		s              models.ScanResult
		ts             pgtype.Timestamptz
		confidence     pgtype.Float8
		malwareProb    pgtype.Float8
		riskLevel      string
		recommendation string
	)
	err := row.Scan(
		&s.ID, &ts, &s.FileName, &s.Prediction, &confidence, &malwareProb,
		&riskLevel, &recommendation, &s.RegistryRead, &s.RegistryWrite, &s.RegistryDelete,
		&s.NetworkThreats, &s.ProcessesMalicious, &s.FilesMalicious,
	)
	if err != nil {
		return nil, err
	}
	s.Timestamp = timestamptzToTime(ts).UTC()
	s.Confidence = float8ToFloat(confidence)
	s.MalwareProbability = float8ToFloat(malwareProb)
	s.RiskLevel = models.RiskLevel(riskLevel)
	s.Recommendation = models.Recommendation(recommendation)
	return &s, nil
}
