package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
)

// PgDirectory reads display data from the platform's member and expo tables.
// Missing rows degrade to placeholders so a deleted member never blocks a
// chat operation.
type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func (d *PgDirectory) MemberName(ctx context.Context, memberID int64) (string, error) {
	var name string
	err := d.pool.QueryRow(ctx,
		`SELECT display_name FROM directory.member WHERE member_id = $1`, memberID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Sprintf("Member %d", memberID), nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: look up member name: %v", chat.ErrDependency, err)
	}
	return name, nil
}

func (d *PgDirectory) ExpoTitle(ctx context.Context, expoID int64) (string, error) {
	var title string
	err := d.pool.QueryRow(ctx,
		`SELECT title FROM directory.expo WHERE expo_id = $1`, expoID).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Sprintf("Expo %d", expoID), nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: look up expo title: %v", chat.ErrDependency, err)
	}
	return title, nil
}

func (d *PgDirectory) AdminDisplayName(ctx context.Context, adminCode string) (string, error) {
	var name string
	err := d.pool.QueryRow(ctx,
		`SELECT display_name FROM directory.admin WHERE admin_code = $1`, adminCode).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return adminCode, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: look up admin name: %v", chat.ErrDependency, err)
	}
	return name, nil
}
