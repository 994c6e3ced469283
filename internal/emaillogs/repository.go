// Package emaillogs persists the delivery history of order notification e-mails.
package emaillogs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamikdash/storefront/internal/models"
)

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 100

// Repository stores email logs.
type Repository interface {
	Record(ctx context.Context, l *models.EmailLog) error
	// List returns logs newest first. An empty formID lists all.
	List(ctx context.Context, formID string, limit int) ([]*models.EmailLog, error)
}

func prepare(l *models.EmailLog) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
}

// MemoryRepository keeps logs in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	logs []models.EmailLog
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Record(_ context.Context, l *models.EmailLog) error {
	prepare(l)
	r.mu.Lock()
	r.logs = append(r.logs, *l)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) List(_ context.Context, formID string, limit int) ([]*models.EmailLog, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*models.EmailLog
	for i := len(r.logs) - 1; i >= 0 && len(list) < limit; i-- {
		if formID != "" && r.logs[i].FormID != formID {
			continue
		}
		el := r.logs[i]
		list = append(list, &el)
	}
	return list, nil
}

// PostgresRepository stores logs in the email_logs table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Postgres-backed repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Record(ctx context.Context, l *models.EmailLog) error {
	prepare(l)
	const q = `INSERT INTO email_logs (id, form_id, recipient_email, subject, status, message_id, sent_at, error_message, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9)`
	_, err := r.pool.Exec(ctx, q, l.ID, l.FormID, l.RecipientEmail, l.Subject, l.Status, l.MessageID, l.SentAt, l.ErrorMessage, l.CreatedAt)
	return err
}

func (r *PostgresRepository) List(ctx context.Context, formID string, limit int) ([]*models.EmailLog, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	const q = `SELECT id, form_id, recipient_email, subject, status, message_id, sent_at, error_message, created_at
		FROM email_logs
		WHERE $1 = '' OR form_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, formID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var subject, messageID, errMsg *string
		if err := rows.Scan(&el.ID, &el.FormID, &el.RecipientEmail, &subject, &el.Status, &messageID, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			el.Subject = *subject
		}
		if messageID != nil {
			el.MessageID = *messageID
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
