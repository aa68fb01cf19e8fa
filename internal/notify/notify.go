// Package notify relays PostgreSQL change notifications between instances.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	gormdb "github.com/thebtf/sitelog/internal/db/gorm"
)

const (
	minReconnect = 2 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
)

// Handler receives decoded change events.
type Handler func(gormdb.Event)

// Listener subscribes to the store's notification channel.
type Listener struct {
	listener *pq.Listener
	handler  Handler
}

// New connects a listener on dsn for gormdb.NotifyChannel.
func New(dsn string, handler Handler) (*Listener, error) {
	l := pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			log.Warn().Err(err).Msg("Notification listener connection lost")
		case pq.ListenerEventReconnected:
			log.Info().Msg("Notification listener reconnected")
		}
	})
	if err := l.Listen(gormdb.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("listen %s: %w", gormdb.NotifyChannel, err)
	}
	return &Listener{listener: l, handler: handler}, nil
}

// Run delivers notifications until ctx is done.
func (l *Listener) Run(ctx context.Context) {
	dispatch(ctx, l.listener.Notify, l.handler, func() error { return l.listener.Ping() })
}

// Close disconnects the listener.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// Decode parses a notification payload.
func Decode(payload string) (gormdb.Event, error) {
	var ev gormdb.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("decode notification: %w", err)
	}
	if ev.Type == "" {
		return ev, fmt.Errorf("decode notification: missing type")
	}
	return ev, nil
}

func dispatch(ctx context.Context, ch <-chan *pq.Notification, handler Handler, ping func() error) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			// nil after a reconnect; events sent while disconnected are lost
			if n == nil {
				continue
			}
			ev, err := Decode(n.Extra)
			if err != nil {
				log.Warn().Err(err).Str("channel", n.Channel).Msg("Ignoring malformed notification")
				continue
			}
			handler(ev)
		case <-ticker.C:
			if ping != nil {
				if err := ping(); err != nil {
					log.Warn().Err(err).Msg("Notification listener ping failed")
				}
			}
		}
	}
}
