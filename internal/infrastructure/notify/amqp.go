package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/domain"
	"github.com/paydeskhq/paydesk/internal/domain/interfaces"
	"github.com/paydeskhq/paydesk/pkg/config"
)

// Message is the wire format consumed by the chat transport worker.
type Message struct {
	ID        string          `json:"id"`
	Recipient string          `json:"recipient"`
	Admin     bool            `json:"admin"`
	Text      string          `json:"text"`
	Buttons   []domain.Button `json:"buttons,omitempty"`
}

// AMQPNotifier publishes outbound user/admin messages to a queue. Delivery to
// the chat network is the consumer's problem; publishing either succeeds or
// fails fast.
type AMQPNotifier struct {
	conn   *amqp.Connection
	queue  string
	logger zerolog.Logger
}

func New(cfg config.AMQPConfig, logger zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
	}
	return &AMQPNotifier{
		conn:   conn,
		queue:  cfg.Queue,
		logger: logger,
	}, nil
}

var _ interfaces.Notifier = (*AMQPNotifier)(nil)

func (n *AMQPNotifier) NotifyUser(ctx context.Context, userID int64, text string, buttons ...domain.Button) error {
	return n.publish(ctx, Message{
		ID:        uuid.NewString(),
		Recipient: strconv.FormatInt(userID, 10),
		Text:      text,
		Buttons:   buttons,
	})
}

func (n *AMQPNotifier) NotifyAdmin(ctx context.Context, text string, buttons ...domain.Button) error {
	return n.publish(ctx, Message{
		ID:      uuid.NewString(),
		Admin:   true,
		Text:    text,
		Buttons: buttons,
	})
}

func (n *AMQPNotifier) publish(ctx context.Context, msg Message) error {
	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open amqp channel: %w", err)
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = ch.PublishWithContext(
		ctx,
		"",
		n.queue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   msg.ID,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	n.logger.Debug().
		Str("message_id", msg.ID).
		Str("recipient", msg.Recipient).
		Bool("admin", msg.Admin).
		Msg("Notification published")
	return nil
}

func (n *AMQPNotifier) Close() error {
	return n.conn.Close()
}
