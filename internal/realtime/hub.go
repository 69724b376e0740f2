package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campusmarket/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	TableWalletTransactions = "wallet_transactions"
	TableTransactions       = "transactions"

	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
)

// Event tells a subscriber that one of its rows changed. It carries no
// balances; subscribers refetch whatever they display.
type Event struct {
	Table         string    `json:"table"`
	Op            string    `json:"op"`
	TransactionID string    `json:"transaction_id,omitempty"`
	At            time.Time `json:"at"`
}

// Hub fans wallet events out to the sessions of one user over Redis pub/sub,
// so every API instance sees changes made by the others.
type Hub struct {
	rdb *redis.Client
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{rdb: rdb}
}

func Channel(userID string) string {
	return "wallet:" + userID
}

func (h *Hub) Publish(ctx context.Context, userID string, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := h.rdb.Publish(ctx, Channel(userID), data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", Channel(userID), err)
	}
	return nil
}

// Subscribe listens on the user's channel until ctx is done. The returned
// channel is closed once the subscription ends.
func (h *Hub) Subscribe(ctx context.Context, userID string) (<-chan Event, error) {
	ps := h.rdb.Subscribe(ctx, Channel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", Channel(userID), err)
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := Decode(msg.Payload)
				if err != nil {
					logger.Warn("dropping malformed wallet event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func Decode(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
