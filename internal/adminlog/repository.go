package adminlog

import (
	"context"
	"database/sql"
	"encoding/json"

	"bijouterie-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Record(ctx context.Context, adminID, action, entityType string, entityID *string, details any)
	List(ctx context.Context, limit int) ([]Entry, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Record persists an audit entry. Failures are logged and swallowed: an audit
// write must never fail the admin action it describes.
func (r *repository) Record(ctx context.Context, adminID, action, entityType string, entityID *string, details any) {
	var payload []byte
	if details != nil {
		payload, _ = json.Marshal(details)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_logs (admin_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`, adminID, action, entityType, entityID, payload)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to record admin action",
			zap.String("admin_id", adminID),
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.Error(err),
		)
	}
}

func (r *repository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.admin_id, l.action, l.entity_type, l.entity_id, l.details, l.created_at,
		       COALESCE(p.email, ''), COALESCE(p.full_name, '')
		FROM admin_logs l
		LEFT JOIN profiles p ON p.id = l.admin_id
		ORDER BY l.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(
			&e.ID, &e.AdminID, &e.Action, &e.EntityType, &e.EntityID,
			&details, &e.CreatedAt, &e.AdminEmail, &e.AdminName,
		); err != nil {
			return nil, err
		}
		e.Details = details
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
