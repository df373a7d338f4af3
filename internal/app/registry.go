package app

import (
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

// Registry tracks live rooms and which room each user occupies.
// A user id maps to at most one room.
type Registry struct {
	mu       sync.RWMutex
	nextID   int64
	rooms    []*Room
	byID     map[int64]*Room
	byUser   map[int64]*Room
	guests   map[int64]int64
	observer RoomObserver
	now      func() time.Time
	unit     time.Duration
	refresh  time.Duration
}

// NewRegistry builds an empty registry. observer may be nil.
func NewRegistry(observer RoomObserver) *Registry {
	return &Registry{
		nextID:   1,
		byID:     make(map[int64]*Room),
		byUser:   make(map[int64]*Room),
		guests:   make(map[int64]int64),
		observer: observer,
		now:      time.Now,
		unit:     time.Second,
		refresh:  time.Minute,
	}
}

// Create allocates a room hosted by host. It fails with ErrAlreadyInRoom if the
// host already occupies a room.
func (r *Registry) Create(host domain.Identity, conn Conn, name string, filter domain.TaskFilter, timeLimit int) (*Room, error) {
	r.mu.Lock()
	if _, ok := r.byUser[host.ID]; ok {
		r.mu.Unlock()
		return nil, domain.ErrAlreadyInRoom
	}
	room := newRoom(r.nextID, name, host, conn, filter, timeLimit, r.now, r.unit)
	r.nextID++
	r.rooms = append(r.rooms, room)
	r.byID[room.ID] = room
	r.byUser[host.ID] = room
	r.mu.Unlock()

	if r.observer != nil {
		room.mu.Lock()
		room.publishedAt = r.now()
		summary := room.summaryLocked()
		room.mu.Unlock()
		r.observer.RoomOpened(summary)
	}
	return room, nil
}

// publishLocked pushes the room's current summary to the observer. The caller
// holds room.mu.
func (r *Registry) publishLocked(room *Room) {
	if r.observer == nil {
		return
	}
	room.publishedAt = r.now()
	r.observer.RoomUpdated(room.summaryLocked())
}

// refreshLocked republishes a room whose last publication is older than the
// refresh interval, keeping the observer's copy from expiring. The caller
// holds room.mu.
func (r *Registry) refreshLocked(room *Room) {
	if r.observer == nil || r.now().Sub(room.publishedAt) < r.refresh {
		return
	}
	r.publishLocked(room)
}

func (r *Registry) Get(roomID int64) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byID[roomID]
	return room, ok
}

func (r *Registry) ByUser(userID int64) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byUser[userID]
	return room, ok
}

// Rooms returns the live rooms in creation order.
func (r *Registry) Rooms() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Room, len(r.rooms))
	copy(out, r.rooms)
	return out
}

// Join seats user as the room's occupant. The caller holds room.mu and has
// checked that the slot is empty and user is not the host.
func (r *Registry) Join(user domain.Identity, room *Room, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[user.ID]; ok {
		return domain.ErrAlreadyInRoom
	}
	if _, ok := r.byID[room.ID]; !ok {
		return domain.ErrRoomNotFound
	}
	room.guest = newPlayerStats(user, conn)
	r.byUser[user.ID] = room
	r.guests[room.ID] = user.ID
	return nil
}

// Vacate empties the occupant slot. The caller holds room.mu.
func (r *Registry) Vacate(userID int64, room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.guests[room.ID] == userID {
		delete(r.guests, room.ID)
	}
	if r.byUser[userID] == room {
		delete(r.byUser, userID)
	}
	if room.guest != nil && room.guest.UserID == userID {
		room.guest = nil
	}
}

// Remove drops the room along with its host and occupant mappings. Removing a
// room that is already gone is a no-op.
func (r *Registry) Remove(room *Room) {
	r.mu.Lock()
	if _, ok := r.byID[room.ID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byID, room.ID)
	for i, candidate := range r.rooms {
		if candidate == room {
			r.rooms = append(r.rooms[:i], r.rooms[i+1:]...)
			break
		}
	}
	if r.byUser[room.HostID] == room {
		delete(r.byUser, room.HostID)
	}
	if guestID, ok := r.guests[room.ID]; ok {
		if r.byUser[guestID] == room {
			delete(r.byUser, guestID)
		}
		delete(r.guests, room.ID)
	}
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.RoomClosed(room.ID)
	}
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
