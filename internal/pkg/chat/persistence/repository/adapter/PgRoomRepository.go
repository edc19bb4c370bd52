package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
)

// PgRoomRepository persists rooms in Postgres. The admin assignment is a
// single conditional UPDATE so two concurrent accepts can never both win.
type PgRoomRepository struct {
	pool *pgxpool.Pool
}

func NewPgRoomRepository(pool *pgxpool.Pool) *PgRoomRepository {
	return &PgRoomRepository{pool: pool}
}

var _ repository.RoomRepository = (*PgRoomRepository)(nil)

const roomColumns = `
	room_code, member_id, member_name, expo_id, room_title, state,
	assigned_admin, admin_display_name, last_admin_activity_at,
	handoff_requested_at, watermarks, last_message_preview, last_message_at,
	is_active, created_at, updated_at`

func (r *PgRoomRepository) FindByCode(ctx context.Context, code chat.RoomCode) (*chat.Room, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+roomColumns+` FROM chat.room WHERE room_code = $1`, string(code))
	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find room: %v", chat.ErrDependency, err)
	}
	return room, nil
}

func (r *PgRoomRepository) Create(ctx context.Context, room *chat.Room) error {
	wm, err := json.Marshal(room.Watermarks)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO chat.room (
			room_code, member_id, member_name, expo_id, room_title, state,
			assigned_admin, admin_display_name, watermarks,
			last_message_preview, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, '', '', $7, '', $8, $9, $9)
	`, string(room.RoomCode), room.MemberID, room.MemberName, room.ExpoID,
		room.RoomTitle, string(room.State), wm, room.IsActive, room.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: create room: %v", chat.ErrDependency, err)
	}
	return nil
}

func (r *PgRoomRepository) TransitionState(ctx context.Context, code chat.RoomCode, from, to chat.RoomState, handoffAt *time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.room
		SET state = $3, handoff_requested_at = $4, updated_at = now()
		WHERE room_code = $1 AND state = $2
	`, string(code), string(from), string(to), handoffAt)
	if err != nil {
		return false, fmt.Errorf("%w: transition state: %v", chat.ErrDependency, err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PgRoomRepository) AssignAdmin(ctx context.Context, code chat.RoomCode, adminCode, displayName string) (bool, error) {
	// The WHERE clause is the whole exclusivity protocol: empty means free,
	// same admin re-asserting is a heartbeat, anyone else loses.
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.room
		SET assigned_admin = $2,
		    admin_display_name = $3,
		    last_admin_activity_at = now(),
		    state = $4,
		    handoff_requested_at = NULL,
		    updated_at = now()
		WHERE room_code = $1 AND (assigned_admin = '' OR assigned_admin = $2)
	`, string(code), adminCode, displayName, string(chat.StateAdminActive))
	if err != nil {
		return false, fmt.Errorf("%w: assign admin: %v", chat.ErrDependency, err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PgRoomRepository) TouchAdminActivity(ctx context.Context, code chat.RoomCode, adminCode string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chat.room
		SET last_admin_activity_at = now(), updated_at = now()
		WHERE room_code = $1 AND assigned_admin = $2
	`, string(code), adminCode)
	if err != nil {
		return fmt.Errorf("%w: touch admin activity: %v", chat.ErrDependency, err)
	}
	return nil
}

func (r *PgRoomRepository) ReleaseAdmin(ctx context.Context, code chat.RoomCode, to chat.RoomState) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chat.room
		SET assigned_admin = '',
		    admin_display_name = '',
		    last_admin_activity_at = NULL,
		    handoff_requested_at = NULL,
		    state = $2,
		    updated_at = now()
		WHERE room_code = $1
	`, string(code), string(to))
	if err != nil {
		return fmt.Errorf("%w: release admin: %v", chat.ErrDependency, err)
	}
	return nil
}

func (r *PgRoomRepository) AdvanceWatermark(ctx context.Context, code chat.RoomCode, reader chat.ReaderRole, seq int64) (int64, error) {
	var prev int64
	err := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT COALESCE((watermarks->>$2)::bigint, 0) AS seq
			FROM chat.room WHERE room_code = $1
		)
		UPDATE chat.room r
		SET watermarks = jsonb_set(
		        COALESCE(r.watermarks, '{}'::jsonb), ARRAY[$2],
		        to_jsonb(GREATEST(COALESCE((r.watermarks->>$2)::bigint, 0), $3::bigint)), true),
		    updated_at = now()
		FROM prev
		WHERE r.room_code = $1
		RETURNING prev.seq
	`, string(code), string(reader), seq).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, chat.ErrRoomNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: advance watermark: %v", chat.ErrDependency, err)
	}
	return prev, nil
}

func (r *PgRoomRepository) RecordLastMessage(ctx context.Context, code chat.RoomCode, preview string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chat.room
		SET last_message_preview = $2, last_message_at = $3, updated_at = now()
		WHERE room_code = $1
	`, string(code), preview, at)
	if err != nil {
		return fmt.Errorf("%w: record last message: %v", chat.ErrDependency, err)
	}
	return nil
}

func (r *PgRoomRepository) FindIdleAssigned(ctx context.Context, threshold time.Time) ([]*chat.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+roomColumns+`
		 FROM chat.room
		 WHERE assigned_admin <> '' AND last_admin_activity_at < $1`, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: find idle rooms: %v", chat.ErrDependency, err)
	}
	defer rows.Close()

	var rooms []*chat.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan idle room: %v", chat.ErrDependency, err)
		}
		rooms = append(rooms, room)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%w: find idle rooms: %v", chat.ErrDependency, rows.Err())
	}
	return rooms, nil
}

func (r *PgRoomRepository) FindActiveByMember(ctx context.Context, memberID int64) ([]*chat.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+roomColumns+`
		 FROM chat.room
		 WHERE member_id = $1 AND is_active
		 ORDER BY last_message_at DESC NULLS LAST`, memberID)
	if err != nil {
		return nil, fmt.Errorf("%w: find member rooms: %v", chat.ErrDependency, err)
	}
	defer rows.Close()

	var rooms []*chat.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan member room: %v", chat.ErrDependency, err)
		}
		rooms = append(rooms, room)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%w: find member rooms: %v", chat.ErrDependency, rows.Err())
	}
	return rooms, nil
}

func (r *PgRoomRepository) SetActive(ctx context.Context, code chat.RoomCode, active bool) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.room SET is_active = $2, updated_at = now() WHERE room_code = $1
	`, string(code), active)
	if err != nil {
		return fmt.Errorf("%w: set active: %v", chat.ErrDependency, err)
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrRoomNotFound
	}
	return nil
}

func scanRoom(row pgx.Row) (*chat.Room, error) {
	var (
		room               chat.Room
		code, state        string
		wmRaw              []byte
		lastAdminActivity  *time.Time
		handoffRequestedAt *time.Time
		lastMessageAt      *time.Time
	)
	err := row.Scan(&code, &room.MemberID, &room.MemberName, &room.ExpoID,
		&room.RoomTitle, &state, &room.AssignedAdmin, &room.AdminDisplayName,
		&lastAdminActivity, &handoffRequestedAt, &wmRaw,
		&room.LastMessagePreview, &lastMessageAt, &room.IsActive,
		&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	room.RoomCode = chat.RoomCode(code)
	room.State = chat.RoomState(state)
	room.Watermarks = make(map[chat.ReaderRole]int64)
	if len(wmRaw) > 0 {
		if err := json.Unmarshal(wmRaw, &room.Watermarks); err != nil {
			return nil, err
		}
	}
	if lastAdminActivity != nil {
		room.LastAdminActivityAt = *lastAdminActivity
	}
	if handoffRequestedAt != nil {
		room.HandoffRequestedAt = *handoffRequestedAt
	}
	if lastMessageAt != nil {
		room.LastMessageAt = *lastMessageAt
	}
	return &room, nil
}
