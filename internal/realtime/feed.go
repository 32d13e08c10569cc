package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Feed tails the Postgres NOTIFY channel carrying table change events
// and fans them out to the hub and any in-process consumers.
type Feed struct {
	listener *pq.Listener
	hub      *Hub
	logger   *zap.Logger

	mu        sync.RWMutex
	consumers []func(Event)
}

// NewFeed creates a change feed over a Postgres LISTEN/NOTIFY channel
func NewFeed(databaseURL, channel string, minReconnect, maxReconnect time.Duration, hub *Hub, logger *zap.Logger) (*Feed, error) {
	listener := pq.NewListener(databaseURL, minReconnect, maxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("realtime listener event", zap.Int("event", int(ev)), zap.Error(err))
			}
		})

	if err := listener.Listen(channel); err != nil {
		return nil, err
	}

	return &Feed{
		listener: listener,
		hub:      hub,
		logger:   logger,
	}, nil
}

// OnEvent registers an in-process consumer (e.g. cache invalidation)
func (f *Feed) OnEvent(consumer func(Event)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumers = append(f.consumers, consumer)
}

// Run pumps notifications until the context is cancelled
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			f.listener.Close()
			return
		case notification := <-f.listener.Notify:
			if notification == nil {
				// nil arrives after a reconnect; nothing to deliver
				continue
			}
			f.dispatch(notification.Extra)
		case <-time.After(90 * time.Second):
			go f.listener.Ping()
		}
	}
}

func (f *Feed) dispatch(payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		f.logger.Warn("malformed change event payload", zap.Error(err))
		return
	}

	f.hub.Broadcast(event)

	f.mu.RLock()
	consumers := f.consumers
	f.mu.RUnlock()
	for _, consumer := range consumers {
		consumer(event)
	}
}
