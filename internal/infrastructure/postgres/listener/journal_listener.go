// Package listener follows journal inserts made by any process sharing the
// database, so a write confirmed by bankctl reaches open browser sessions.
package listener

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/lib/pq"

	"gdbank/internal/domain/bank"
)

const (
	channelName       = "bank_journal"
	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
)

// Notification is the payload sent by the bank_journal trigger.
type Notification struct {
	Account string             `json:"account"`
	Kind    bank.WriteKind     `json:"kind"`
	Status  bank.JournalStatus `json:"status"`
	TxHash  string             `json:"tx_hash"`
}

// Handler receives every settled write.
type Handler func(ctx context.Context, n Notification)

// JournalListener listens on the bank_journal channel and reconnects when
// the connection drops.
type JournalListener struct {
	connStr    string
	handle     Handler
	shutdownCh chan struct{}
	done       chan struct{}
}

func NewJournalListener(connStr string, handle Handler) *JournalListener {
	return &JournalListener{
		connStr:    connStr,
		handle:     handle,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins listening in a background goroutine.
func (l *JournalListener) Start(ctx context.Context) {
	go l.listen(ctx)
	log.Println("Journal listener started")
}

// Stop shuts the listener down and waits for it to exit.
func (l *JournalListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	log.Println("Journal listener stopped")
}

func (l *JournalListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			log.Println("Reconnecting to PostgreSQL for journal notifications...")
		}
	}
}

func (l *JournalListener) connectAndListen(ctx context.Context) {
	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Println("Connected to PostgreSQL notification channel")
		case pq.ListenerEventDisconnected:
			log.Printf("Disconnected from PostgreSQL notification channel: %v", err)
		case pq.ListenerEventReconnected:
			log.Println("Reconnected to PostgreSQL notification channel")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("Connection attempt failed: %v", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(channelName); err != nil {
		log.Printf("Failed to listen on channel %s: %v", channelName, err)
		return
	}
	log.Printf("Listening on channel: %s", channelName)

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case notification := <-listener.Notify:
			if notification == nil {
				// Connection lost; pq reconnects and we re-listen.
				return
			}
			l.dispatch(ctx, notification.Extra)
		case <-ping.C:
			go func() {
				if err := listener.Ping(); err != nil {
					log.Printf("Listener ping failed: %v", err)
				}
			}()
		}
	}
}

func (l *JournalListener) dispatch(ctx context.Context, payload string) {
	n, err := ParseNotification(payload)
	if err != nil {
		log.Printf("Failed to parse journal notification: %v", err)
		return
	}
	l.handle(ctx, n)
}

// ParseNotification decodes a trigger payload.
func ParseNotification(payload string) (Notification, error) {
	var n Notification
	err := json.Unmarshal([]byte(payload), &n)
	return n, err
}
