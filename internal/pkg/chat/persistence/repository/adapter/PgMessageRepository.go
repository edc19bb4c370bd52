package adapter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
)

// PgMessageRepository is the append-only message log. Rows never change after
// insert except for unread_marker, which only ever counts down.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

var _ repository.MessageRepository = (*PgMessageRepository)(nil)

const messageColumns = `
	id::text, room_code, seq, sender_role, sender_id, sender_name, content,
	unread_marker, sent_at`

func (r *PgMessageRepository) Insert(ctx context.Context, m *chat.Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat.message (
			id, room_code, seq, sender_role, sender_id, sender_name,
			content, unread_marker, sent_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ID, string(m.RoomCode), m.Seq, string(m.SenderRole), m.SenderID,
		m.SenderName, m.Content, m.UnreadMarker, m.SentAt)
	if err != nil {
		return fmt.Errorf("%w: insert message: %v", chat.ErrDependency, err)
	}
	return nil
}

func (r *PgMessageRepository) ListByRoom(ctx context.Context, code chat.RoomCode, page, size int) ([]chat.Message, int64, error) {
	if size <= 0 {
		size = 50
	}
	if page < 0 {
		page = 0
	}
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM chat.message WHERE room_code = $1`, string(code)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count messages: %v", chat.ErrDependency, err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT`+messageColumns+`
		 FROM chat.message
		 WHERE room_code = $1
		 ORDER BY seq DESC
		 LIMIT $2 OFFSET $3`, string(code), size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list messages: %v", chat.ErrDependency, err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *PgMessageRepository) RecentHistory(ctx context.Context, code chat.RoomCode, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM (
		     SELECT`+messageColumns+`
		     FROM chat.message
		     WHERE room_code = $1
		     ORDER BY seq DESC
		     LIMIT $2
		 ) recent ORDER BY seq ASC`, string(code), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent history: %v", chat.ErrDependency, err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *PgMessageRepository) CountBySenderAfter(ctx context.Context, code chat.RoomCode, sender chat.SenderRole, afterSeq int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM chat.message
		WHERE room_code = $1 AND sender_role = $2 AND seq > $3
	`, string(code), string(sender), afterSeq).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count unread: %v", chat.ErrDependency, err)
	}
	return n, nil
}

func (r *PgMessageRepository) DecrementUnreadMarkers(ctx context.Context, code chat.RoomCode, readerSender chat.SenderRole, fromSeq, uptoSeq int64) (int64, error) {
	// unread_marker > 0 keeps the decrement idempotent for repeated marks of
	// the same range.
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.message
		SET unread_marker = unread_marker - 1
		WHERE room_code = $1
		  AND sender_role <> $2
		  AND unread_marker > 0
		  AND seq > $3 AND seq <= $4
	`, string(code), string(readerSender), fromSeq, uptoSeq)
	if err != nil {
		return 0, fmt.Errorf("%w: decrement unread markers: %v", chat.ErrDependency, err)
	}
	return ct.RowsAffected(), nil
}

func scanMessages(rows pgx.Rows) ([]chat.Message, error) {
	var msgs []chat.Message
	for rows.Next() {
		var (
			m          chat.Message
			code, role string
		)
		if err := rows.Scan(&m.ID, &code, &m.Seq, &role, &m.SenderID,
			&m.SenderName, &m.Content, &m.UnreadMarker, &m.SentAt); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", chat.ErrDependency, err)
		}
		m.RoomCode = chat.RoomCode(code)
		m.SenderRole = chat.SenderRole(role)
		msgs = append(msgs, m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%w: scan messages: %v", chat.ErrDependency, rows.Err())
	}
	return msgs, nil
}

// PgSequenceAllocator hands out the global message seq from a Postgres
// sequence: durable, strictly increasing, never reused, shared by all rooms.
type PgSequenceAllocator struct {
	pool *pgxpool.Pool
}

func NewPgSequenceAllocator(pool *pgxpool.Pool) *PgSequenceAllocator {
	return &PgSequenceAllocator{pool: pool}
}

var _ repository.SequenceAllocator = (*PgSequenceAllocator)(nil)

func (a *PgSequenceAllocator) Next(ctx context.Context) (int64, error) {
	var seq int64
	if err := a.pool.QueryRow(ctx, `SELECT nextval('chat.message_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("%w: allocate seq: %v", chat.ErrDependency, err)
	}
	return seq, nil
}
