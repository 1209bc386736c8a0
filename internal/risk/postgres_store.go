package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists assessments in PostgreSQL.
// The fraud_assessments table is created by the migrations in migrations/.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// PingContext checks database connectivity.
func (s *PostgresStore) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Record(ctx context.Context, assessment *Assessment) error {
	featuresJSON, err := json.Marshal(assessment.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fraud_assessments (id, score, decision, features, request_id, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		assessment.ID,
		assessment.Score,
		string(assessment.Decision),
		featuresJSON,
		nullString(assessment.RequestID),
		assessment.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record fraud assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, score, decision, features, request_id, evaluated_at
		FROM fraud_assessments
		ORDER BY evaluated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		var a Assessment
		var featuresJSON []byte
		var requestID sql.NullString
		var evaluatedAt time.Time

		if err := rows.Scan(&a.ID, &a.Score, &a.Decision, &featuresJSON, &requestID, &evaluatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fraud assessment: %w", err)
		}
		a.EvaluatedAt = evaluatedAt
		a.RequestID = requestID.String
		a.Features = make(map[string]float64)
		if err := json.Unmarshal(featuresJSON, &a.Features); err != nil {
			return nil, fmt.Errorf("failed to decode features: %w", err)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
