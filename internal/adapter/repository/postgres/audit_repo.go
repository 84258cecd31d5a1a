package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/postgres/generated"
	"github.com/iho/booklend/internal/usecase"
)

const insertAuditLog = `
	INSERT INTO audit_logs (
		id, user_id, action, resource_type, resource_id, request_id,
		before_state, after_state, status, error_message, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// AuditRepository implements audit log persistence
type AuditRepository struct {
	db generated.DBTX
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db generated.DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry outside any transaction
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.insert(ctx, r.db, log)
}

// CreateTx inserts a new audit log entry as part of tx, so it commits or
// rolls back with the change it describes
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	pgxTx, err := pgxTxOf(tx)
	if err != nil {
		return err
	}
	return r.insert(ctx, pgxTx, log)
}

func (r *AuditRepository) insert(ctx context.Context, db generated.DBTX, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	beforeStateJSON, err := marshalState(log.BeforeState)
	if err != nil {
		return err
	}
	afterStateJSON, err := marshalState(log.AfterState)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, insertAuditLog,
		log.ID,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.RequestID,
		beforeStateJSON,
		afterStateJSON,
		log.Status,
		log.ErrorMessage,
		log.CreatedAt,
	)

	return translateError(err)
}

// List retrieves audit logs with filtering, newest first
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, action, resource_type, resource_id, request_id,
		       before_state, after_state, status, error_message, created_at
		FROM audit_logs
		WHERE 1=1`)
	args := []any{}

	arg := func(clause string, v any) {
		args = append(args, v)
		sb.WriteString(clause)
		sb.WriteString(strconv.Itoa(len(args)))
	}

	if filter.UserID != "" {
		arg(` AND user_id = $`, filter.UserID)
	}
	if filter.Action != "" {
		arg(` AND action = $`, filter.Action)
	}
	if filter.ResourceType != "" {
		arg(` AND resource_type = $`, filter.ResourceType)
	}
	if filter.ResourceID != "" {
		arg(` AND resource_id = $`, filter.ResourceID)
	}
	if filter.StartDate != nil {
		arg(` AND created_at >= $`, *filter.StartDate)
	}
	if filter.EndDate != nil {
		arg(` AND created_at < $`, *filter.EndDate)
	}

	sb.WriteString(` ORDER BY created_at DESC, id DESC`)

	if filter.Limit > 0 {
		arg(` LIMIT $`, filter.Limit)
	}
	if filter.Offset > 0 {
		arg(` OFFSET $`, filter.Offset)
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	logs := []*domain.AuditLog{}
	for rows.Next() {
		var log domain.AuditLog
		var beforeStateJSON, afterStateJSON []byte

		err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.RequestID,
			&beforeStateJSON,
			&afterStateJSON,
			&log.Status,
			&log.ErrorMessage,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, translateError(err)
		}

		if beforeStateJSON != nil {
			_ = json.Unmarshal(beforeStateJSON, &log.BeforeState)
		}

		if afterStateJSON != nil {
			_ = json.Unmarshal(afterStateJSON, &log.AfterState)
		}

		logs = append(logs, &log)
	}

	return logs, translateError(rows.Err())
}

func marshalState(state domain.JSON) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}
