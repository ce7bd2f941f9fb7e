package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
)

type postgresMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMessageRepository(pool *pgxpool.Pool) repository.MessageRepository {
	return &postgresMessageRepository{pool: pool}
}

func scanMessage(row rowScanner) (*entity.Message, error) {
	var m entity.Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *postgresMessageRepository) Append(ctx context.Context, conversationID, senderID int64, text string) (*entity.Message, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender_id, text) VALUES ($1, $2, $3)
		 RETURNING id, conversation_id, sender_id, text, created_at`,
		conversationID, senderID, text)

	message, err := scanMessage(row)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, mapPgError(err, "Message")
	}
	return message, nil
}

func (r *postgresMessageRepository) ListByConversation(ctx context.Context, conversationID int64) ([]*entity.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, sender_id, text, created_at FROM messages
		 WHERE conversation_id = $1 ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, mapPgError(err, "Message")
	}
	defer rows.Close()

	out := []*entity.Message{}
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, mapPgError(err, "Message")
		}
		out = append(out, message)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "Message")
	}
	return out, nil
}

func (r *postgresMessageRepository) GetByID(ctx context.Context, conversationID, messageID int64) (*entity.Message, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, conversation_id, sender_id, text, created_at FROM messages
		 WHERE conversation_id = $1 AND id = $2`, conversationID, messageID)

	message, err := scanMessage(row)
	if err != nil {
		return nil, mapPgError(err, "Message")
	}
	return message, nil
}
