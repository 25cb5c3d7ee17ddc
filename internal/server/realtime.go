package server

import (
	"context"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
)

const (
	RealtimeEventNoteChanged = "note-change"
	realtimeEventHeartbeat   = "heartbeat"
	realtimeEventReady       = "ready"
	realtimeSourceBackend    = "zenotes"

	defaultHeartbeatInterval = 25 * time.Second
)

// RealtimeMessage is one entry of the change stream.
type RealtimeMessage struct {
	EventType string
	Kind      notes.ChangeKind
	NoteIDs   []string
	Timestamp time.Time
}

// RealtimeDispatcher fans messages out to stream subscribers. Slow subscribers
// miss messages instead of blocking publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[int64]*realtimeSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream that stays open until ctx is done or cleanup is called.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context) (<-chan RealtimeMessage, func()) {
	subscriber := &realtimeSubscriber{
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.mu.Lock()
	d.nextID++
	subscriber.id = d.nextID
	d.subscribers[subscriber.id] = subscriber
	d.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, subscriber.id)
			d.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.EventType == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*realtimeSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SubscriberCount reports how many streams are registered.
func (d *RealtimeDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// BridgeRepository publishes every committed repository change and returns a
// function that stops doing so.
func BridgeRepository(repository *notes.Repository, dispatcher *RealtimeDispatcher) func() {
	return repository.Subscribe(func(event notes.ChangeEvent) {
		dispatcher.Publish(RealtimeMessage{
			EventType: RealtimeEventNoteChanged,
			Kind:      event.Kind,
			NoteIDs:   []string{event.NoteID},
			Timestamp: event.At,
		})
	})
}
