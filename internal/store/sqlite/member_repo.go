package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chatcore/internal/domain"
)

type MemberRepo struct {
	db *sql.DB
}

func NewMemberRepo(db *sql.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

var _ domain.MemberRepository = (*MemberRepo)(nil)

// ListMemberIDs returns member user IDs in join order.
func (r *MemberRepo) ListMemberIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id
		FROM conversation_members
		WHERE conversation_id = ?
		ORDER BY joined_at ASC, user_id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MemberRepo) Get(ctx context.Context, conversationID, userID int64) (*domain.ConversationMember, error) {
	m := &domain.ConversationMember{}
	err := r.db.QueryRowContext(ctx, `
		SELECT conversation_id, user_id, is_pinned, is_archived, is_dnd,
		       last_read_message_id, last_acceptable_message_id
		FROM conversation_members
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID).Scan(
		&m.ConversationID,
		&m.UserID,
		&m.IsPinned,
		&m.IsArchived,
		&m.IsDnd,
		&m.LastReadMessageID,
		&m.LastAcceptableMessageID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *MemberRepo) SetPinned(ctx context.Context, conversationID, userID int64, value bool) error {
	return r.setFlag(ctx, "is_pinned", conversationID, userID, value)
}

func (r *MemberRepo) SetArchived(ctx context.Context, conversationID, userID int64, value bool) error {
	return r.setFlag(ctx, "is_archived", conversationID, userID, value)
}

func (r *MemberRepo) SetDnd(ctx context.Context, conversationID, userID int64, value bool) error {
	return r.setFlag(ctx, "is_dnd", conversationID, userID, value)
}

func (r *MemberRepo) setFlag(ctx context.Context, column string, conversationID, userID int64, value bool) error {
	// column is one of the fixed flag names above, never caller input.
	query := fmt.Sprintf(`
		UPDATE conversation_members SET %s = ?
		WHERE conversation_id = ? AND user_id = ?
	`, column)
	if _, err := r.db.ExecContext(ctx, query, value, conversationID, userID); err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return nil
}

func (r *MemberRepo) SetBlockCutoff(ctx context.Context, conversationID, userID int64, cutoff *int64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE conversation_members SET last_acceptable_message_id = ?
		WHERE conversation_id = ? AND user_id = ?
	`, cutoff, conversationID, userID); err != nil {
		return fmt.Errorf("set block cutoff: %w", err)
	}
	return nil
}

// Add exists for wiring and tests.
func (r *MemberRepo) Add(ctx context.Context, conversationID, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO conversation_members (conversation_id, user_id, joined_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, conversationID, userID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}
