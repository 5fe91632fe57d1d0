package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/rentora/applications-service/internal/models"
)

type AuditLogRepository interface {
	Create(ctx context.Context, logEntry *models.AuditLog) error
	ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]*models.AuditLog, error)
}

type auditLogRepo struct {
	db DB
}

func NewAuditLogRepository(db DB) AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) Create(ctx context.Context, logEntry *models.AuditLog) error {
	q := `
        INSERT INTO audit_logs (
            id, actor_id, actor_role, action, target_id, target_type, details, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
    `
	_, err := r.db.Exec(ctx, q,
		logEntry.ID,
		logEntry.ActorID,
		logEntry.ActorRole,
		logEntry.Action,
		logEntry.TargetID,
		logEntry.TargetType,
		logEntry.Details,
	)
	return err
}

func (r *auditLogRepo) ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
        SELECT id, actor_id, actor_role, action, target_id, target_type, details, created_at
        FROM audit_logs
        WHERE target_id=$1
        ORDER BY created_at DESC
        LIMIT $2
    `, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AuditLog
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func scanAuditLog(row pgx.Row) (*models.AuditLog, error) {
	var entry models.AuditLog
	err := row.Scan(
		&entry.ID,
		&entry.ActorID,
		&entry.ActorRole,
		&entry.Action,
		&entry.TargetID,
		&entry.TargetType,
		&entry.Details,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
