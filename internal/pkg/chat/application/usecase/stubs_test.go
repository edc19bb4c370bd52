package usecase_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"

	cache "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/port"
)

// memRooms is an in-memory RoomRepository whose conditional writes mirror the
// SQL adapter: assignment and transition decide under one lock.
type memRooms struct {
	mu    sync.Mutex
	rooms map[chat.RoomCode]*chat.Room
}

func newMemRooms(rooms ...*chat.Room) *memRooms {
	m := &memRooms{rooms: make(map[chat.RoomCode]*chat.Room)}
	for _, r := range rooms {
		m.rooms[r.RoomCode] = r
	}
	return m
}

func (m *memRooms) get(code chat.RoomCode) *chat.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[code]
}

func (m *memRooms) FindByCode(_ context.Context, code chat.RoomCode) (*chat.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return nil, chat.ErrRoomNotFound
	}
	copied := *room
	copied.Watermarks = make(map[chat.ReaderRole]int64, len(room.Watermarks))
	for k, v := range room.Watermarks {
		copied.Watermarks[k] = v
	}
	return &copied, nil
}

func (m *memRooms) Create(_ context.Context, room *chat.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.RoomCode]; ok {
		return errors.New("duplicate room")
	}
	m.rooms[room.RoomCode] = room
	return nil
}

func (m *memRooms) TransitionState(_ context.Context, code chat.RoomCode, from, to chat.RoomState, handoffAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return false, chat.ErrRoomNotFound
	}
	if room.State != from {
		return false, nil
	}
	room.State = to
	if handoffAt != nil {
		room.HandoffRequestedAt = *handoffAt
	} else {
		room.HandoffRequestedAt = time.Time{}
	}
	return true, nil
}

func (m *memRooms) AssignAdmin(_ context.Context, code chat.RoomCode, adminCode, displayName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return false, chat.ErrRoomNotFound
	}
	if room.AssignedAdmin != "" && room.AssignedAdmin != adminCode {
		return false, nil
	}
	room.AssignedAdmin = adminCode
	room.AdminDisplayName = displayName
	room.LastAdminActivityAt = time.Now()
	return true, nil
}

func (m *memRooms) TouchAdminActivity(_ context.Context, code chat.RoomCode, adminCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[code]; ok && room.AssignedAdmin == adminCode {
		room.LastAdminActivityAt = time.Now()
	}
	return nil
}

func (m *memRooms) ReleaseAdmin(_ context.Context, code chat.RoomCode, to chat.RoomState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return chat.ErrRoomNotFound
	}
	room.AssignedAdmin = ""
	room.AdminDisplayName = ""
	room.State = to
	room.LastAdminActivityAt = time.Time{}
	return nil
}

func (m *memRooms) AdvanceWatermark(_ context.Context, code chat.RoomCode, reader chat.ReaderRole, seq int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return 0, chat.ErrRoomNotFound
	}
	return room.AdvanceWatermark(reader, seq), nil
}

func (m *memRooms) RecordLastMessage(_ context.Context, code chat.RoomCode, preview string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[code]; ok {
		room.LastMessagePreview = preview
		room.LastMessageAt = at
	}
	return nil
}

func (m *memRooms) FindIdleAssigned(_ context.Context, threshold time.Time) ([]*chat.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var idle []*chat.Room
	for _, room := range m.rooms {
		if room.State == chat.StateAdminActive && room.AssignedAdmin != "" && room.LastAdminActivityAt.Before(threshold) {
			copied := *room
			idle = append(idle, &copied)
		}
	}
	return idle, nil
}

func (m *memRooms) FindActiveByMember(_ context.Context, memberID int64) ([]*chat.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*chat.Room
	for _, room := range m.rooms {
		if room.MemberID == memberID && room.IsActive {
			copied := *room
			copied.Watermarks = make(map[chat.ReaderRole]int64, len(room.Watermarks))
			for k, v := range room.Watermarks {
				copied.Watermarks[k] = v
			}
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memRooms) SetActive(_ context.Context, code chat.RoomCode, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[code]; ok {
		room.IsActive = active
	}
	return nil
}

// memMessages is an in-memory append-only MessageRepository.
type memMessages struct {
	mu   sync.Mutex
	msgs []*chat.Message

	insertErr error
}

func (m *memMessages) all(code chat.RoomCode) []*chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*chat.Message
	for _, msg := range m.msgs {
		if msg.RoomCode == code {
			out = append(out, msg)
		}
	}
	return out
}

func (m *memMessages) Insert(_ context.Context, msg *chat.Message) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *msg
	m.msgs = append(m.msgs, &copied)
	return nil
}

func (m *memMessages) ListByRoom(_ context.Context, code chat.RoomCode, page, size int) ([]chat.Message, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inRoom []chat.Message
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].RoomCode == code {
			inRoom = append(inRoom, *m.msgs[i])
		}
	}
	total := int64(len(inRoom))
	start := page * size
	if start >= len(inRoom) {
		return nil, total, nil
	}
	end := start + size
	if end > len(inRoom) {
		end = len(inRoom)
	}
	return inRoom[start:end], total, nil
}

func (m *memMessages) RecentHistory(_ context.Context, code chat.RoomCode, limit int) ([]chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inRoom []chat.Message
	for _, msg := range m.msgs {
		if msg.RoomCode == code {
			inRoom = append(inRoom, *msg)
		}
	}
	if len(inRoom) > limit {
		inRoom = inRoom[len(inRoom)-limit:]
	}
	return inRoom, nil
}

func (m *memMessages) CountBySenderAfter(_ context.Context, code chat.RoomCode, sender chat.SenderRole, afterSeq int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.msgs {
		if msg.RoomCode == code && msg.SenderRole == sender && msg.Seq > afterSeq {
			n++
		}
	}
	return n, nil
}

func (m *memMessages) DecrementUnreadMarkers(_ context.Context, code chat.RoomCode, readerSender chat.SenderRole, fromSeq, uptoSeq int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.msgs {
		if msg.RoomCode != code || msg.SenderRole == readerSender || msg.UnreadMarker <= 0 {
			continue
		}
		if msg.Seq > fromSeq && msg.Seq <= uptoSeq {
			msg.UnreadMarker--
			n++
		}
	}
	return n, nil
}

// memSeq allocates seqs from an atomic counter.
type memSeq struct {
	last atomic.Int64
	err  error
}

func (s *memSeq) Next(context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.last.Add(1), nil
}

// memCache is an in-memory CounterCache with switchable failure.
type memCache struct {
	mu      sync.Mutex
	unread  map[string]int64 // "roomCode/viewerID"
	badges  map[int64]int64
	active  map[int64]map[string]bool
	failAll error
}

func newMemCache() *memCache {
	return &memCache{
		unread: make(map[string]int64),
		badges: make(map[int64]int64),
		active: make(map[int64]map[string]bool),
	}
}

func unreadStubKey(roomCode string, viewerID int64) string {
	return roomCode + "/" + strconv.FormatInt(viewerID, 10)
}

func (c *memCache) IncrementUnread(_ context.Context, roomCode string, viewerID int64, delta int64) (int64, error) {
	if c.failAll != nil {
		return 0, c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := unreadStubKey(roomCode, viewerID)
	c.unread[key] += delta
	return c.unread[key], nil
}

func (c *memCache) GetUnread(_ context.Context, roomCode string, viewerID int64) (int64, error) {
	if c.failAll != nil {
		return 0, c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.unread[unreadStubKey(roomCode, viewerID)]
	if !ok {
		return 0, cache.ErrMiss
	}
	return n, nil
}

func (c *memCache) SetUnread(_ context.Context, roomCode string, viewerID int64, n int64) error {
	if c.failAll != nil {
		return c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unread[unreadStubKey(roomCode, viewerID)] = n
	return nil
}

func (c *memCache) ResetUnread(_ context.Context, roomCode string, viewerID int64) error {
	if c.failAll != nil {
		return c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unread[unreadStubKey(roomCode, viewerID)] = 0
	return nil
}

func (c *memCache) IncrementBadge(_ context.Context, viewerID int64) (int64, error) {
	if c.failAll != nil {
		return 0, c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.badges[viewerID]++
	return c.badges[viewerID], nil
}

func (c *memCache) GetBadge(_ context.Context, viewerID int64) (int64, error) {
	if c.failAll != nil {
		return 0, c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.badges[viewerID]
	if !ok {
		return 0, cache.ErrMiss
	}
	return n, nil
}

func (c *memCache) RecalculateBadge(_ context.Context, viewerID int64, roomCodes []string) (int64, error) {
	if c.failAll != nil {
		return 0, c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, code := range roomCodes {
		total += c.unread[unreadStubKey(code, viewerID)]
	}
	c.badges[viewerID] = total
	return total, nil
}

func (c *memCache) AddActiveRoom(_ context.Context, viewerID int64, roomCode string) error {
	if c.failAll != nil {
		return c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[viewerID] == nil {
		c.active[viewerID] = make(map[string]bool)
	}
	c.active[viewerID][roomCode] = true
	return nil
}

func (c *memCache) ActiveRooms(_ context.Context, viewerID int64) ([]string, error) {
	if c.failAll != nil {
		return nil, c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var rooms []string
	for code := range c.active[viewerID] {
		rooms = append(rooms, code)
	}
	return rooms, nil
}

func (c *memCache) InvalidateRoom(_ context.Context, roomCode string) error {
	if c.failAll != nil {
		return c.failAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.unread {
		if len(key) > len(roomCode) && key[:len(roomCode)+1] == roomCode+"/" {
			delete(c.unread, key)
		}
	}
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }
func (c *memCache) Close() error               { return nil }

// recordedEnvelope is one captured broadcast.
type recordedEnvelope struct {
	Room chat.RoomCode
	Env  chat.Envelope
}

// recordedMemberEnvelope is one captured member-directed push.
type recordedMemberEnvelope struct {
	MemberID int64
	Env      chat.Envelope
}

// memBroadcast records every publish in order.
type memBroadcast struct {
	mu     sync.Mutex
	events []recordedEnvelope
	admin  []chat.Envelope
	member []recordedMemberEnvelope
}

func (b *memBroadcast) Publish(code chat.RoomCode, env chat.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEnvelope{Room: code, Env: env})
}

func (b *memBroadcast) NotifyAdmins(env chat.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.admin = append(b.admin, env)
}

func (b *memBroadcast) NotifyMember(memberID int64, env chat.Envelope) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.member = append(b.member, recordedMemberEnvelope{MemberID: memberID, Env: env})
	return true
}

func (b *memBroadcast) memberEvents(memberID int64) []chat.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []chat.Envelope
	for _, e := range b.member {
		if e.MemberID == memberID {
			out = append(out, e.Env)
		}
	}
	return out
}

func (b *memBroadcast) types(code chat.RoomCode) []chat.BroadcastType {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []chat.BroadcastType
	for _, e := range b.events {
		if e.Room == code {
			out = append(out, e.Env.Type)
		}
	}
	return out
}

func (b *memBroadcast) adminEvents() []chat.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]chat.Envelope(nil), b.admin...)
}

// stubAssistant returns canned text and lets tests observe the room at the
// moment each call lands.
type stubAssistant struct {
	reply        string
	summary      string
	generateErr  error
	summarizeErr error
	onSummarize  func()
}

func (a *stubAssistant) Generate(context.Context, string) (string, error) {
	if a.generateErr != nil {
		return "", a.generateErr
	}
	if a.reply == "" {
		return "canned reply", nil
	}
	return a.reply, nil
}

func (a *stubAssistant) Summarize(context.Context, []chat.Message) (string, error) {
	if a.onSummarize != nil {
		a.onSummarize()
	}
	if a.summarizeErr != nil {
		return "", a.summarizeErr
	}
	if a.summary == "" {
		return "canned summary", nil
	}
	return a.summary, nil
}

// stubDirectory resolves fixed display data.
type stubDirectory struct{}

func (stubDirectory) MemberName(_ context.Context, memberID int64) (string, error) {
	return "Member", nil
}

func (stubDirectory) ExpoTitle(_ context.Context, expoID int64) (string, error) {
	return "Expo", nil
}

func (stubDirectory) AdminDisplayName(_ context.Context, adminCode string) (string, error) {
	return "Agent " + adminCode, nil
}
