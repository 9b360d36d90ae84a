package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/config"
)

const rejoinBackoff = 2 * time.Second

// SessionRevocationConsumer signs the local session out when the revoked user owns it.
type SessionRevocationConsumer struct {
	revoker port.LocalSessionRevoker
	logger  *zap.Logger
}

// NewSessionRevocationConsumer constructs a consumer for session revocation events.
func NewSessionRevocationConsumer(revoker port.LocalSessionRevoker, logger *zap.Logger) *SessionRevocationConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRevocationConsumer{revoker: revoker, logger: logger}
}

// HandleMessage decodes a Kafka message prior to processing.
func (c *SessionRevocationConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var event domain.SessionRevokedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode session revoked event: %w", err)
	}

	return c.HandleEvent(ctx, event)
}

// HandleEvent drops the local session of event.UserID, if any.
func (c *SessionRevocationConsumer) HandleEvent(ctx context.Context, event domain.SessionRevokedEvent) error {
	userID := strings.TrimSpace(event.UserID)
	if c.revoker == nil || userID == "" {
		return nil
	}

	dropped, err := c.revoker.SignOutLocal(ctx, userID)
	if err != nil {
		return fmt.Errorf("sign out revoked session: %w", err)
	}
	if dropped {
		c.logger.Info("local session revoked remotely",
			zap.String("user_id", userID),
			zap.String("reason", event.Reason),
			zap.String("event_id", event.EventID),
		)
	}
	return nil
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *SessionRevocationConsumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *SessionRevocationConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim implements sarama.ConsumerGroupHandler. Undecodable messages are logged and skipped.
func (c *SessionRevocationConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.HandleMessage(session.Context(), msg); err != nil {
				c.logger.Warn("session revocation message skipped",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

var _ sarama.ConsumerGroupHandler = (*SessionRevocationConsumer)(nil)

// RevocationListener runs a consumer group on the revocation topic.
type RevocationListener struct {
	group   sarama.ConsumerGroup
	topic   string
	handler sarama.ConsumerGroupHandler
	logger  *zap.Logger
}

// NewRevocationListener joins the configured consumer group.
func NewRevocationListener(cfg config.KafkaSettings, clientID string, handler sarama.ConsumerGroupHandler, logger *zap.Logger) (*RevocationListener, error) {
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, NewSaramaConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}
	return newRevocationListener(group, cfg.RevocationTopic, handler, logger), nil
}

func newRevocationListener(group sarama.ConsumerGroup, topic string, handler sarama.ConsumerGroupHandler, logger *zap.Logger) *RevocationListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationListener{group: group, topic: topic, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled, rejoining the group after every rebalance.
func (l *RevocationListener) Run(ctx context.Context) {
	go func() {
		for err := range l.group.Errors() {
			l.logger.Warn("revocation consumer error", zap.Error(err))
		}
	}()

	l.logger.Info("revocation consumer started", zap.String("topic", l.topic))
	for {
		if err := l.group.Consume(ctx, []string{l.topic}, l.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			l.logger.Warn("revocation consumer session ended", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(rejoinBackoff):
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Close leaves the consumer group.
func (l *RevocationListener) Close() error {
	if err := l.group.Close(); err != nil {
		return fmt.Errorf("close kafka consumer group: %w", err)
	}
	return nil
}
