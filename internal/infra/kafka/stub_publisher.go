package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
)

// StubPublisher logs events instead of producing them. It stands in for the
// Kafka publisher when no brokers are configured, so development environments
// run without a cluster while keeping the event flow observable.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a log-only event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// logEvent records the full typed event so log output tracks the event
// structs without a hand-maintained field list per method.
func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, event any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("event published to stub",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("event", event),
	)
}

func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent("auth.user.registered", event.UserID, event.RegisteredAt, event)
	return nil
}

func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("auth.user.password.changed", event.UserID, event.ChangedAt, event)
	return nil
}

func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.logEvent("auth.user.password.reset_requested", event.UserID, event.RequestedAt, event)
	return nil
}

func (p *StubPublisher) PublishRolesAssigned(_ context.Context, event domain.RolesAssignedEvent) error {
	p.logEvent("auth.user.roles.assigned", event.UserID, event.AssignedAt, event)
	return nil
}

func (p *StubPublisher) PublishRolesRevoked(_ context.Context, event domain.RolesRevokedEvent) error {
	p.logEvent("auth.user.roles.revoked", event.UserID, event.RevokedAt, event)
	return nil
}

func (p *StubPublisher) PublishSessionsRevoked(_ context.Context, event domain.SessionsRevokedEvent) error {
	p.logEvent("auth.sessions.revoked", event.UserID, event.RevokedAt, event)
	return nil
}

func (p *StubPublisher) PublishTokenRevoked(_ context.Context, event domain.TokenRevokedEvent) error {
	p.logEvent("auth.token.revoked", event.SubjectID, event.RevokedAt, event)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
