package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
)

const conversationColumns = `id, user_low, user_high, low_last_read, high_last_read, unseen_count, created_at, updated_at`

type postgresConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresConversationRepository(pool *pgxpool.Pool) repository.ConversationRepository {
	return &postgresConversationRepository{pool: pool}
}

func scanConversation(row rowScanner) (*entity.Conversation, error) {
	var c entity.Conversation
	err := row.Scan(
		&c.ID,
		&c.Participants[0].UserID,
		&c.Participants[1].UserID,
		&c.Participants[0].LastReadMessageID,
		&c.Participants[1].LastReadMessageID,
		&c.UnseenCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresConversationRepository) FindByPair(ctx context.Context, userA, userB int64) (*entity.Conversation, error) {
	low, high := entity.CanonicalPair(userA, userB)
	row := r.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_low = $1 AND user_high = $2`,
		low, high)

	conversation, err := scanConversation(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, mapPgError(err, "Conversation")
	}
	return conversation, nil
}

func (r *postgresConversationRepository) GetByID(ctx context.Context, id int64) (*entity.Conversation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)

	conversation, err := scanConversation(row)
	if err != nil {
		return nil, mapPgError(err, "Conversation")
	}
	return conversation, nil
}

func (r *postgresConversationRepository) ListByUser(ctx context.Context, userID int64) ([]*entity.Conversation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE user_low = $1 OR user_high = $1
		 ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, mapPgError(err, "Conversation")
	}
	defer rows.Close()

	var out []*entity.Conversation
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, mapPgError(err, "Conversation")
		}
		out = append(out, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "Conversation")
	}
	return out, nil
}

// Create relies on the (user_low, user_high) unique constraint. A racing
// insert for the same pair becomes a no-op and the winner's row is returned.
func (r *postgresConversationRepository) Create(ctx context.Context, senderID, recipientID int64) (*entity.Conversation, error) {
	if err := repository.ValidatePair(senderID, recipientID); err != nil {
		return nil, err
	}
	low, high := entity.CanonicalPair(senderID, recipientID)

	row := r.pool.QueryRow(ctx,
		`INSERT INTO conversations (user_low, user_high) VALUES ($1, $2)
		 ON CONFLICT (user_low, user_high) DO NOTHING
		 RETURNING `+conversationColumns, low, high)

	conversation, err := scanConversation(row)
	switch {
	case err == nil:
		return conversation, nil
	case pgCode(err) == pgForeignKeyViolation:
		return nil, errors.InvalidArgument("Unknown participant", err)
	case !isNoRows(err):
		return nil, mapPgError(err, "Conversation")
	}

	existing, err := r.FindByPair(ctx, low, high)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.Internal("Conversation vanished after conflict", nil)
	}
	return existing, nil
}

func (r *postgresConversationRepository) IncrementUnseen(ctx context.Context, id int64) (*entity.Conversation, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE conversations SET unseen_count = unseen_count + 1, updated_at = now()
		 WHERE id = $1 RETURNING `+conversationColumns, id)

	conversation, err := scanConversation(row)
	if err != nil {
		return nil, mapPgError(err, "Conversation")
	}
	return conversation, nil
}

func (r *postgresConversationRepository) ResetUnseen(ctx context.Context, id int64) (*entity.Conversation, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE conversations SET unseen_count = 0, updated_at = now()
		 WHERE id = $1 RETURNING `+conversationColumns, id)

	conversation, err := scanConversation(row)
	if err != nil {
		return nil, mapPgError(err, "Conversation")
	}
	return conversation, nil
}

// SetWatermark only touches the column owned by participantID. GREATEST
// ignores NULL so the first write always lands and later ones never regress.
func (r *postgresConversationRepository) SetWatermark(ctx context.Context, id, participantID, messageID int64) (*entity.Conversation, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE conversations SET
			low_last_read  = CASE WHEN user_low  = $2 THEN GREATEST(low_last_read, $3)  ELSE low_last_read  END,
			high_last_read = CASE WHEN user_high = $2 THEN GREATEST(high_last_read, $3) ELSE high_last_read END,
			updated_at = now()
		 WHERE id = $1 AND (user_low = $2 OR user_high = $2)
		 RETURNING `+conversationColumns, id, participantID, messageID)

	conversation, err := scanConversation(row)
	if err == nil {
		return conversation, nil
	}
	if !isNoRows(err) {
		return nil, mapPgError(err, "Conversation")
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, errors.Forbidden("User is not a participant in this conversation", nil)
}
