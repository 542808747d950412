// Package events provides the in-process event bus the admin websocket
// feed and audit logging subscribe to.
package events

import (
	"sync"
	"time"
)

// Type represents the kinds of events the platform emits
type Type string

const (
	EventUserRegistered      Type = "USER_REGISTERED"
	EventDepositRequested    Type = "DEPOSIT_REQUESTED"
	EventWithdrawRequested   Type = "WITHDRAW_REQUESTED"
	EventTransactionApproved Type = "TRANSACTION_APPROVED"
	EventTransactionRejected Type = "TRANSACTION_REJECTED"
	EventTransactionExpired  Type = "TRANSACTION_EXPIRED"
	EventInvestmentOpened    Type = "INVESTMENT_OPENED"
	EventInvestmentSettled   Type = "INVESTMENT_SETTLED"
)

// Event is a single system event
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Subscriber handles events
type Subscriber func(Event)

// Bus fans events out to subscribers
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates an event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[Type][]Subscriber),
	}
}

// Subscribe registers a subscriber for one event type
func (b *Bus) Subscribe(t Type, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], sub)
}

// SubscribeAll registers a subscriber for every event
func (b *Bus) SubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, sub)
}

// Publish sends an event to all matching subscribers. Subscribers run in
// their own goroutines so a slow consumer cannot block a publisher.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range b.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishTransaction publishes a transaction workflow event
func (b *Bus) PublishTransaction(t Type, txID, userID, kind string, amount int64) {
	b.Publish(Event{
		Type: t,
		Data: map[string]any{
			"transaction_id": txID,
			"user_id":        userID,
			"kind":           kind,
			"amount":         amount,
		},
	})
}

// PublishInvestmentOpened publishes a new subscription event
func (b *Bus) PublishInvestmentOpened(investmentID, userID string, amount int64, endDate time.Time) {
	b.Publish(Event{
		Type: EventInvestmentOpened,
		Data: map[string]any{
			"investment_id": investmentID,
			"user_id":       userID,
			"amount":        amount,
			"end_date":      endDate,
		},
	})
}

// PublishInvestmentSettled publishes a maturity settlement event
func (b *Bus) PublishInvestmentSettled(investmentID, userID string, principal, payout int64) {
	b.Publish(Event{
		Type: EventInvestmentSettled,
		Data: map[string]any{
			"investment_id": investmentID,
			"user_id":       userID,
			"principal":     principal,
			"payout":        payout,
		},
	})
}
