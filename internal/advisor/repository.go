package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/divsage/internal/contracts"
)

// Repository persists recommendations. Implements
// contracts.RecommendationStore.
// SSOT: recommendation reads/writes happen here only.
// Rows are append-only: a recommendation is written once in its
// terminal state and never updated.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new recommendation repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save inserts a terminal recommendation and returns its generated id
func (r *Repository) Save(ctx context.Context, rec *contracts.Recommendation) (string, error) {
	var packetJSON, explanationJSON []byte
	var err error

	if rec.Packet != nil {
		packetJSON, err = json.Marshal(rec.Packet)
		if err != nil {
			return "", fmt.Errorf("failed to marshal packet: %w", err)
		}
	}
	if rec.Explanation != nil {
		explanationJSON, err = json.Marshal(rec.Explanation)
		if err != nil {
			return "", fmt.Errorf("failed to marshal explanation: %w", err)
		}
	}

	query := `
		INSERT INTO advisor.recommendations (
			owner, status, packet, explanation, error_detail, correlation_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id string
	err = r.pool.QueryRow(ctx, query,
		rec.Owner, string(rec.Status), packetJSON, explanationJSON,
		rec.ErrorDetail, rec.CorrelationID, rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to save recommendation: %w", err)
	}

	return id, nil
}

// Get retrieves one recommendation by id, scoped to the owner
func (r *Repository) Get(ctx context.Context, owner, id string) (*contracts.Recommendation, error) {
	query := `
		SELECT id, owner, status, packet, explanation, error_detail, correlation_id, created_at
		FROM advisor.recommendations
		WHERE owner = $1 AND id = $2
	`

	rec, err := scanRecommendation(r.pool.QueryRow(ctx, query, owner, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}

	return rec, nil
}

// ListByOwner retrieves recent recommendations for an owner,
// newest first
func (r *Repository) ListByOwner(ctx context.Context, owner string, limit int) ([]contracts.Recommendation, error) {
	query := `
		SELECT id, owner, status, packet, explanation, error_detail, correlation_id, created_at
		FROM advisor.recommendations
		WHERE owner = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]contracts.Recommendation, 0)

	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return recs, nil
}

// scanRecommendation decodes one row from either QueryRow or Query
func scanRecommendation(row pgx.Row) (*contracts.Recommendation, error) {
	var rec contracts.Recommendation
	var status string
	var packetJSON, explanationJSON []byte

	err := row.Scan(
		&rec.ID, &rec.Owner, &status, &packetJSON, &explanationJSON,
		&rec.ErrorDetail, &rec.CorrelationID, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = contracts.RecommendationStatus(status)

	if len(packetJSON) > 0 {
		var packet contracts.RecommendationPacket
		if err := json.Unmarshal(packetJSON, &packet); err != nil {
			return nil, fmt.Errorf("failed to unmarshal packet: %w", err)
		}
		rec.Packet = &packet
	}
	if len(explanationJSON) > 0 {
		var explanation contracts.Explanation
		if err := json.Unmarshal(explanationJSON, &explanation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal explanation: %w", err)
		}
		rec.Explanation = &explanation
	}

	return &rec, nil
}
