package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// sqliteTimeFormat is fixed width so that text order matches time order
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Float8 conversion helpers (for DOUBLE PRECISION columns)

func floatToFloat8(f float64) pgtype.Float8 {
	return pgtype.Float8{Float64: f, Valid: true}
}

func float8ToFloat(f pgtype.Float8) float64 {
	if !f.Valid {
		return 0
	}
	return f.Float64
}

// Timestamp conversion helpers

func timeToTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timestamptzToTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

func parseSQLiteTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeFormat, s)
}
