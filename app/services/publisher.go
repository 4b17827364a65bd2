package services

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

// getRequestIDFromContext extracts request ID from context (avoiding import cycle)
func getRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value("request_id").(string); ok {
		return requestID
	}
	return ""
}

// EventPublisher defines the minimal interface AuthService needs to publish events.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, userID string, email string) error
	PublishUserSignedIn(ctx context.Context, userID string, email string) error
}

// RabbitMQPublisher is a concrete implementation using RabbitMQ.
type RabbitMQPublisher struct {
	ch *amqp.Channel
}

func NewRabbitMQPublisher(ch *amqp.Channel) *RabbitMQPublisher {
	return &RabbitMQPublisher{ch: ch}
}

type authEventMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// PublishUserRegistered publishes a user.registered event to the auth.events exchange.
func (p *RabbitMQPublisher) PublishUserRegistered(ctx context.Context, userID string, email string) error {
	return p.publish(ctx, "user.registered", authEventMessage{
		Type:   "user_registered",
		UserID: userID,
		Email:  email,
	})
}

// PublishUserSignedIn publishes a user.signed_in event to the auth.events exchange.
func (p *RabbitMQPublisher) PublishUserSignedIn(ctx context.Context, userID string, email string) error {
	return p.publish(ctx, "user.signed_in", authEventMessage{
		Type:   "user_signed_in",
		UserID: userID,
		Email:  email,
	})
}

func (p *RabbitMQPublisher) publish(ctx context.Context, routingKey string, msg authEventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// Propagate request ID for distributed tracing
	headers := make(amqp.Table)
	if requestID := getRequestIDFromContext(ctx); requestID != "" {
		headers["X-Request-ID"] = requestID
	}

	return p.ch.PublishWithContext(
		ctx,
		"auth.events", // exchange
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Headers:     headers,
		},
	)
}
