package identity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	dErrors "benefit-gateway/pkg/domain-errors"
)

// PostgresStore reads console users from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, upstream_id, email, roles FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetByUpstreamID(ctx context.Context, upstreamID string) (*User, error) {
	query := `SELECT id, upstream_id, email, roles FROM users WHERE upstream_id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, upstreamID))
}

func (s *PostgresStore) ListUpstreamIDsByRoles(ctx context.Context, roles []string) ([]string, error) {
	query := `
		SELECT upstream_id FROM users
		WHERE roles && $1 AND NOT ($2 = ANY(roles))
		ORDER BY upstream_id`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(roles), RoleSuperAdmin)
	if err != nil {
		return nil, fmt.Errorf("list users by roles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan upstream id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.UpstreamID, &user.Email, pq.Array(&user.Roles))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
