package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ransomguard/internal/domain/models"
)

// SQLiteScanRepository handles scan result persistence in SQLite
type SQLiteScanRepository struct {
	db *sql.DB
}

// NewSQLiteScanRepository creates a new SQLite scan repository
func NewSQLiteScanRepository(db *sql.DB) *SQLiteScanRepository {
	return &SQLiteScanRepository{db: db}
}

// Create inserts a scan result and fills in its ID
func (r *SQLiteScanRepository) Create(ctx context.Context, s *models.ScanResult) (*models.ScanResult, error) {
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		formatSQLiteTime(s.Timestamp), s.FileName, s.Prediction,
		s.Confidence, s.MalwareProbability,
		string(s.RiskLevel), string(s.Recommendation),
		s.RegistryRead, s.RegistryWrite, s.RegistryDelete,
		s.NetworkThreats, s.ProcessesMalicious, s.FilesMalicious,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read scan result id: %w", err)
	}
	s.ID = id
	s.Timestamp = s.Timestamp.UTC()

	return s, nil
}

// GetByID retrieves a scan result by ID. A missing scan is (nil, nil).
func (r *SQLiteScanRepository) GetByID(ctx context.Context, id int64) (*models.ScanResult, error) {
	query := `SELECT ` + scanColumns + ` FROM scan_results WHERE id = ?`

	s, err := scanSQLiteResult(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scan result by ID: %w", err)
	}
	return s, nil
}

// List returns scan results newest first. A limit <= 0 returns all of them.
func (r *SQLiteScanRepository) List(ctx context.Context, limit int) ([]*models.ScanResult, error) {
	query := `SELECT ` + scanColumns + ` FROM scan_results ORDER BY timestamp DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan results: %w", err)
	}
	defer rows.Close()

	scans := []*models.ScanResult{}
	for rows.Next() {
		s, err := scanSQLiteResult(rows)
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
func (r *SQLiteScanRepository) Stats(ctx context.Context) (*models.ScanStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN prediction = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN risk_level = ? THEN 1 ELSE 0 END), 0)
		FROM scan_results`

	stats := &models.ScanStats{GeneratedAt: time.Now().UTC()}
	err := r.db.QueryRowContext(ctx, query, models.LabelMalware, string(models.RiskLevelHigh)).
		Scan(&stats.TotalScans, &stats.MalwareDetected, &stats.HighRisk)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteResult(row rowScanner) (*models.ScanResult, error) {
	var (
		s              models.ScanResult
		ts             string
		riskLevel      string
		recommendation string
	)
	err := row.Scan(
		&s.ID, &ts, &s.FileName, &s.Prediction, &s.Confidence, &s.MalwareProbability,
		&riskLevel, &recommendation, &s.RegistryRead, &s.RegistryWrite, &s.RegistryDelete,
		&s.NetworkThreats, &s.ProcessesMalicious, &s.FilesMalicious,
	)
	if err != nil {
		return nil, err
	}
	s.Timestamp, err = parseSQLiteTime(ts)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	s.RiskLevel = models.RiskLevel(riskLevel)
	s.Recommendation = models.Recommendation(recommendation)
	return &s, nil
}
