package mirror

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/org/consentd/pkg/models"
)

// PostgresMirror is a Mirror backed by PostgreSQL.
type PostgresMirror struct {
	pool *pgxpool.Pool
}

// NewPostgresMirror opens a pgxpool connection and returns a ready mirror.
func NewPostgresMirror(ctx context.Context, connStr string) (*PostgresMirror, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresMirror{pool: pool}, nil
}

func (p *PostgresMirror) Close() {
	p.pool.Close()
}

func (p *PostgresMirror) Append(ctx context.Context, entries []*models.AuditLogEntry) error {
	for _, e := range entries {
		_, err := p.pool.Exec(ctx,
			`INSERT INTO audit_mirror
			   (id, token_id, agent_id, scope, action, issued_at, expires_at, token_type, request_id, is_timed_out)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO NOTHING`,
			e.ID, e.TokenID, e.AgentID, e.Scope, e.Action,
			e.IssuedAt, e.ExpiresAt, e.TokenType, e.RequestID, e.IsTimedOut,
		)
		if err != nil {
			return fmt.Errorf("mirroring audit entry %s: %w", e.ID, err)
		}
	}
	return nil
}

func (p *PostgresMirror) History(ctx context.Context, filter Filter) ([]*models.AuditLogEntry, error) {
	query := `SELECT id, token_id, agent_id, scope, action, issued_at, expires_at, token_type, request_id, is_timed_out
	          FROM audit_mirror`
	var conds []string
	var args []any
	if filter.AgentID != "" {
		args = append(args, filter.AgentID)
		conds = append(conds, "agent_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Scope != "" {
		args = append(args, filter.Scope)
		conds = append(conds, "scope = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY issued_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.TokenID, &e.AgentID, &e.Scope, &e.Action,
			&e.IssuedAt, &e.ExpiresAt, &e.TokenType, &e.RequestID, &e.IsTimedOut); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (p *PostgresMirror) Count(ctx context.Context) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_mirror`).Scan(&count)
	return count, err
}
