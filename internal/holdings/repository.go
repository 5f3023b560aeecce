package holdings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/divsage/internal/contracts"
)

// Repository handles holding persistence. Implements
// contracts.HoldingStore.
// SSOT: holdings reads/writes happen here only.
// Every query is owner-scoped; there is no cross-owner access path.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new holdings repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByOwner retrieves all holdings for an owner
func (r *Repository) ListByOwner(ctx context.Context, owner string) ([]contracts.Holding, error) {
	query := `
		SELECT id, owner, ticker, shares, cost_basis, purchase_date
		FROM advisor.holdings
		WHERE owner = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]contracts.Holding, 0)

	for rows.Next() {
		var h contracts.Holding
		if err := rows.Scan(&h.ID, &h.Owner, &h.Ticker, &h.Shares, &h.CostBasis, &h.PurchaseDate); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return holdings, nil
}

// Get retrieves one holding by id, scoped to the owner
func (r *Repository) Get(ctx context.Context, owner, id string) (*contracts.Holding, error) {
	query := `
		SELECT id, owner, ticker, shares, cost_basis, purchase_date
		FROM advisor.holdings
		WHERE owner = $1 AND id = $2
	`

	var h contracts.Holding
	err := r.pool.QueryRow(ctx, query, owner, id).Scan(
		&h.ID, &h.Owner, &h.Ticker, &h.Shares, &h.CostBasis, &h.PurchaseDate,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return &h, nil
}

// Create inserts a new holding and returns its generated id
func (r *Repository) Create(ctx context.Context, h *contracts.Holding) (string, error) {
	if err := h.Validate(); err != nil {
		return "", err
	}

	query := `
		INSERT INTO advisor.holdings (
			owner, ticker, shares, cost_basis, purchase_date
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id string
	err := r.pool.QueryRow(ctx, query,
		h.Owner, h.Ticker, h.Shares, h.CostBasis, h.PurchaseDate,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create holding: %w", err)
	}

	return id, nil
}

// Update replaces a holding's mutable fields, scoped to the owner
func (r *Repository) Update(ctx context.Context, h *contracts.Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE advisor.holdings
		SET ticker = $3, shares = $4, cost_basis = $5, purchase_date = $6
		WHERE owner = $1 AND id = $2
	`

	tag, err := r.pool.Exec(ctx, query,
		h.Owner, h.ID, h.Ticker, h.Shares, h.CostBasis, h.PurchaseDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("holding %s not found for owner %s", h.ID, h.Owner)
	}

	return nil
}

// Delete removes a holding, scoped to the owner
func (r *Repository) Delete(ctx context.Context, owner, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM advisor.holdings WHERE owner = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("holding %s not found for owner %s", id, owner)
	}

	return nil
}
