package port

import "context"

// AdminGroupViewerID is the shared cache bucket for the whole admin side of a
// room: admins read interchangeably, so they share one unread counter.
const AdminGroupViewerID int64 = -1

// CounterCache is the fast, strictly advisory unread accounting layer. The
// durable per-message markers and watermarks are ground truth; every value
// here must be recomputable from them, and callers treat failures as a
// degraded experience, never a correctness problem.
//
// Implementations must be concurrency-safe and context-aware.
type CounterCache interface {
	// IncrementUnread bumps the per-(room, viewer) unread counter and
	// returns the new value.
	IncrementUnread(ctx context.Context, roomCode string, viewerID int64, delta int64) (int64, error)

	// GetUnread returns the cached counter or ErrMiss when absent.
	GetUnread(ctx context.Context, roomCode string, viewerID int64) (int64, error)

	// SetUnread repopulates the counter after a recomputation from the
	// durable store.
	SetUnread(ctx context.Context, roomCode string, viewerID int64, n int64) error

	// ResetUnread zeroes the counter, typically on mark-read.
	ResetUnread(ctx context.Context, roomCode string, viewerID int64) error

	// IncrementBadge bumps the viewer's cross-room aggregate.
	IncrementBadge(ctx context.Context, viewerID int64) (int64, error)

	// GetBadge returns the aggregate or ErrMiss when absent.
	GetBadge(ctx context.Context, viewerID int64) (int64, error)

	// RecalculateBadge rebuilds the aggregate as the sum of the viewer's
	// per-room counters over their active rooms and returns it.
	RecalculateBadge(ctx context.Context, viewerID int64, roomCodes []string) (int64, error)

	// AddActiveRoom records a room in the viewer's active-room set, the
	// basis for badge recalculation.
	AddActiveRoom(ctx context.Context, viewerID int64, roomCode string) error

	// ActiveRooms lists the viewer's active rooms.
	ActiveRooms(ctx context.Context, viewerID int64) ([]string, error)

	// InvalidateRoom drops every cache entry scoped to the room, forcing
	// the next reader through the durable store.
	InvalidateRoom(ctx context.Context, roomCode string) error

	// Ping verifies connectivity with the cache backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// ErrMiss signals a cache miss in a typed way so callers can distinguish
// misses from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
