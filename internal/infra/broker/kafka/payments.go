package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"

	"carrental/internal/app/commands"
	apppayment "carrental/internal/app/handlers/payment"
)

// paymentMessage is the broker-side shape of a processor notification. The
// broker channel is trusted; signature checks only apply to HTTP webhooks.
type paymentMessage struct {
	BookingID int64  `json:"booking_id"`
	IntentID  string `json:"intent_id"`
	Status    string `json:"status"`
}

// PaymentConsumer feeds processor notifications from Kafka into the
// reconciler. Ack policy: undecodable or incomplete messages are marked and
// dropped, messages whose reconciliation fails stay unmarked so the group
// redelivers them.
type PaymentConsumer struct {
	group  sarama.ConsumerGroup
	bus    commands.Bus
	logger *slog.Logger
}

func NewPaymentConsumer(brokers []string, groupID string, cfg *sarama.Config, bus commands.Bus, logger *slog.Logger) (*PaymentConsumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &PaymentConsumer{group: g, bus: bus, logger: logger}, nil
}

func (c *PaymentConsumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, claimHandler{consumer: c}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *PaymentConsumer) Close() error {
	return c.group.Close()
}

// handle applies one notification. A nil return means the message may be
// marked consumed, either because it reconciled or because it never will.
func (c *PaymentConsumer) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var pm paymentMessage
	if err := json.Unmarshal(msg.Value, &pm); err != nil {
		c.warn("undecodable payment notification dropped", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if pm.BookingID == 0 {
		c.warn("payment notification missing booking id", "topic", msg.Topic, "offset", msg.Offset)
		return nil
	}
	cmd := apppayment.NotificationCommand{
		BookingID: pm.BookingID,
		IntentID:  pm.IntentID,
		Succeeded: pm.Status == "succeeded",
	}
	if _, err := commands.Dispatch[apppayment.NotificationCommand, *apppayment.ReconcileOutcome](ctx, c.bus, cmd); err != nil {
		if c.logger != nil {
			c.logger.Error("payment notification reconcile failed", "booking_id", pm.BookingID, "error", err)
		}
		return err
	}
	return nil
}

func (c *PaymentConsumer) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

type claimHandler struct {
	consumer *PaymentConsumer
}

func (claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.consumer.handle(sess.Context(), message); err != nil {
			// offset stays unmarked so the message comes back
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}
