package realtime

import (
	"encoding/json"
	"log"
	"sync"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
)

// Hub fans typed envelopes out to every subscriber of a room topic, plus a
// separate feed for platform admins watching handoff requests. Delivery is
// best-effort and non-blocking: a failed or missing subscriber is skipped,
// never retried, because clients recover state by pulling history.
type Hub struct {
	mu             sync.RWMutex
	sessions       map[string]*Connection            // sessionID -> connection
	memberSessions map[int64]string                  // memberID -> sessionID
	rooms          map[chat.RoomCode]map[string]*Connection // roomCode -> sessionID -> connection
	sessionRooms   map[string]map[chat.RoomCode]struct{}    // sessionID -> subscribed rooms
	adminFeed      map[string]*Connection            // sessions on the handoff feed
}

// NewHub constructs an initialized Hub.
func NewHub() *Hub {
	return &Hub{
		sessions:       make(map[string]*Connection),
		memberSessions: make(map[int64]string),
		rooms:          make(map[chat.RoomCode]map[string]*Connection),
		sessionRooms:   make(map[string]map[chat.RoomCode]struct{}),
		adminFeed:      make(map[string]*Connection),
	}
}

// Attach registers a connection for a viewer. An older session of the same
// member is closed after the swap: one active socket per member.
func (h *Hub) Attach(conn *Connection) {
	var previous *Connection

	h.mu.Lock()
	if existingID, ok := h.memberSessions[conn.MemberID]; ok {
		if existing := h.sessions[existingID]; existing != nil {
			previous = existing
			h.detachLocked(existingID)
		}
	}
	h.sessions[conn.ID] = conn
	h.memberSessions[conn.MemberID] = conn.ID
	h.sessionRooms[conn.ID] = make(map[chat.RoomCode]struct{})
	h.mu.Unlock()

	conn.Start()

	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes a connection if it is still tracked.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// Join subscribes the connection to a room topic.
func (h *Hub) Join(code chat.RoomCode, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[conn.ID]; !ok {
		return
	}
	room := h.rooms[code]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[code] = room
	}
	room[conn.ID] = conn
	h.sessionRooms[conn.ID][code] = struct{}{}
}

// Leave unsubscribes the connection from a room topic.
func (h *Hub) Leave(code chat.RoomCode, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(code, conn.ID)
	h.mu.Unlock()
}

// SubscribeAdminFeed adds an admin-side session to the platform handoff
// notification feed.
func (h *Hub) SubscribeAdminFeed(conn *Connection) {
	if !conn.AdminSide {
		return
	}
	h.mu.Lock()
	if _, ok := h.sessions[conn.ID]; ok {
		h.adminFeed[conn.ID] = conn
	}
	h.mu.Unlock()
}

// Publish sends an envelope to every subscriber of the room topic. Marshal or
// delivery failures are logged and swallowed; they are not part of the
// correctness contract.
func (h *Hub) Publish(code chat.RoomCode, env chat.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("[realtime] drop %s for %s: marshal: %v", env.Type, code, err)
		return
	}

	h.mu.RLock()
	room := h.rooms[code]
	delivered := 0
	for _, conn := range room {
		if conn.Send(payload) == nil {
			delivered++
		}
	}
	h.mu.RUnlock()

	if len(room) > 0 && delivered < len(room) {
		log.Printf("[realtime] %s for %s reached %d/%d subscribers", env.Type, code, delivered, len(room))
	}
}

// NotifyAdmins pushes an envelope to the admin handoff feed.
func (h *Hub) NotifyAdmins(env chat.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("[realtime] drop %s for admin feed: marshal: %v", env.Type, err)
		return
	}
	h.mu.RLock()
	for _, conn := range h.adminFeed {
		_ = conn.Send(payload)
	}
	h.mu.RUnlock()
}

// NotifyMember delivers an envelope to one member's current session, used for
// badge updates outside any room topic.
func (h *Hub) NotifyMember(memberID int64, env chat.Envelope) bool {
	payload, err := json.Marshal(env)
	if err != nil {
		return false
	}
	h.mu.RLock()
	sessionID, ok := h.memberSessions[memberID]
	conn := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok || conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

// RoomSize reports how many sessions are subscribed to a room topic.
func (h *Hub) RoomSize(code chat.RoomCode) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// AdminFeedSize reports how many sessions are on the admin handoff feed.
func (h *Hub) AdminFeedSize() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.adminFeed)
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.memberSessions = make(map[int64]string)
	h.rooms = make(map[chat.RoomCode]map[string]*Connection)
	h.sessionRooms = make(map[string]map[chat.RoomCode]struct{})
	h.adminFeed = make(map[string]*Connection)
	h.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "hub shutdown")
	}
}

func (h *Hub) detachLocked(sessionID string) {
	conn, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)
	delete(h.adminFeed, sessionID)

	if current, ok := h.memberSessions[conn.MemberID]; ok && current == sessionID {
		delete(h.memberSessions, conn.MemberID)
	}
	for code := range h.sessionRooms[sessionID] {
		h.leaveLocked(code, sessionID)
	}
	delete(h.sessionRooms, sessionID)
}

func (h *Hub) leaveLocked(code chat.RoomCode, sessionID string) {
	room := h.rooms[code]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.rooms, code)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, code)
	}
}
