package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification channels written by the triggers in schema.sql.
const (
	ChannelMessages = "messages_inserted"
	ChannelPrices   = "price_recorded"
)

const (
	minRetryDelay = 500 * time.Millisecond
	maxRetryDelay = 30 * time.Second
)

type messageRef struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
}

func decodeMessageNotification(payload string) (messageRef, error) {
	var ref messageRef
	if err := json.Unmarshal([]byte(payload), &ref); err != nil {
		return ref, fmt.Errorf("decoding message notification: %w", err)
	}
	if ref.ID == uuid.Nil || ref.ConversationID == uuid.Nil {
		return ref, errors.New("message notification without ids")
	}
	return ref, nil
}

func decodePriceNotification(payload string) (models.PriceHistory, error) {
	var h models.PriceHistory
	if err := json.Unmarshal([]byte(payload), &h); err != nil {
		return h, fmt.Errorf("decoding price notification: %w", err)
	}
	if h.ID == uuid.Nil || h.ProductLinkID == uuid.Nil {
		return h, errors.New("price notification without ids")
	}
	return h, nil
}

type messageGetter interface {
	GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
}

// Listener turns LISTEN/NOTIFY traffic into message and price events.
// Inserts committed while the connection is down are not replayed. Instead onResync
// runs once LISTEN is back, and whenever a notified message cannot be loaded, so
// subscribers can reload what they missed.
type Listener struct {
	pool      *pgxpool.Pool
	store     messageGetter
	onMessage func(models.Message)
	onPrice   func(models.PriceHistory)
	onResync  func()
	listenFn  func(ctx context.Context, ready func()) error
	minDelay  time.Duration
	maxDelay  time.Duration
	log       *slog.Logger
}

func NewListener(pool *pgxpool.Pool, s *PostgresStore, onMessage func(models.Message), onPrice func(models.PriceHistory), onResync func()) *Listener {
	l := &Listener{
		pool:      pool,
		store:     s,
		onMessage: onMessage,
		onPrice:   onPrice,
		onResync:  onResync,
		minDelay:  minRetryDelay,
		maxDelay:  maxRetryDelay,
		log:       slog.Default().With("component", "pg_listener"),
	}
	l.listenFn = l.listen
	return l
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff.
func (l *Listener) Run(ctx context.Context) error {
	delay := l.minDelay
	for attempt := 1; ; attempt++ {
		started := time.Now()
		err := l.listenFn(ctx, func() {
			// The first attempt starts with nothing to catch up on.
			if attempt > 1 {
				l.log.Info("Notification listener reconnected, resyncing subscribers")
				l.resync()
			}
		})
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > l.maxDelay {
			delay = l.minDelay
		}
		l.log.Warn("Notification listener disconnected, retrying", "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, l.maxDelay)
	}
}

func (l *Listener) resync() {
	if l.onResync != nil {
		l.onResync()
	}
}

func (l *Listener) listen(ctx context.Context, ready func()) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring listener connection: %w", err)
	}
	defer conn.Release()

	for _, channel := range []string{ChannelMessages, ChannelPrices} {
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("listen %s: %w", channel, err)
		}
	}
	l.log.Info("Listening for notifications", "channels", []string{ChannelMessages, ChannelPrices})
	ready()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(ctx, n)
	}
}

func (l *Listener) dispatch(ctx context.Context, n *pgconn.Notification) {
	switch n.Channel {
	case ChannelMessages:
		ref, err := decodeMessageNotification(n.Payload)
		if err != nil {
			l.log.Error("Bad message notification", "payload", n.Payload, "error", err)
			return
		}
		msg, err := l.store.GetMessageByID(ctx, ref.ID)
		if errors.Is(err, store.ErrNotFound) {
			// The conversation was deleted in the meantime.
			l.log.Debug("Notified message is gone", "message_id", ref.ID)
			return
		}
		if err != nil {
			l.log.Warn("Failed to load notified message, resyncing subscribers", "message_id", ref.ID, "error", err)
			l.resync()
			return
		}
		if l.onMessage != nil {
			l.onMessage(*msg)
		}
	case ChannelPrices:
		h, err := decodePriceNotification(n.Payload)
		if err != nil {
			l.log.Error("Bad price notification", "payload", n.Payload, "error", err)
			return
		}
		if l.onPrice != nil {
			l.onPrice(h)
		}
	default:
		l.log.Debug("Ignoring notification", "channel", n.Channel)
	}
}
