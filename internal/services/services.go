// Package services implements the workspace operations: authorization,
// persistence, notification fanout and realtime broadcast for teams,
// channels, messages, read state, tasks and meetings.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"collab-service/internal/apperr"
	"collab-service/internal/logging"
	"collab-service/internal/observability"
	"collab-service/internal/repositories"
)

// Broadcaster delivers an event to every subscriber of topic.
type Broadcaster interface {
	Publish(topic, event string, payload any) error
}

// EventMirror forwards domain events to the message bus.
type EventMirror interface {
	PublishEvent(ctx context.Context, routingKey, eventName string, payload any) error
}

var tracer = otel.Tracer("collab-service/services")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

var validate = validator.New()

// validateStruct runs struct tags and folds failures into one InvalidInput error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.InvalidInput, "invalid input", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return apperr.New(apperr.InvalidInput, strings.Join(msgs, ", "))
}

var notFoundCodes = []struct {
	err  error
	code apperr.Code
	msg  string
}{
	{repositories.ErrTeamNotFound, apperr.TeamNotFound, "team not found"},
	{repositories.ErrChannelNotFound, apperr.ChannelNotFound, "channel not found"},
	{repositories.ErrMessageNotFound, apperr.MessageNotFound, "message not found"},
	{repositories.ErrNotificationNotFound, apperr.NotificationNotFound, "notification not found"},
	{repositories.ErrUserNotFound, apperr.UserNotFound, "user not found"},
	{repositories.ErrTaskNotFound, apperr.TaskNotFound, "task not found"},
	{repositories.ErrMeetingNotFound, apperr.MeetingNotFound, "meeting not found"},
	{repositories.ErrDuplicateChannelName, apperr.DuplicateChannelName, "a channel with this name already exists in the team"},
	{repositories.ErrAlreadyMember, apperr.AlreadyMember, "already a member"},
	{repositories.ErrDuplicateUser, apperr.InvalidInput, "username or email already taken"},
	{repositories.ErrStateConflict, apperr.InvalidState, "not allowed in the current state"},
}

// classify converts a repository error into an apperr. Already classified
// errors pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	for _, c := range notFoundCodes {
		if errors.Is(err, c.err) {
			return apperr.Wrap(c.code, c.msg, err)
		}
	}
	return apperr.Store(op, err)
}

// publisher wraps a Broadcaster so failures are logged and never returned.
type publisher struct {
	b   Broadcaster
	log *zap.Logger
}

func (p publisher) publish(topic, event string, payload any) {
	if p.b == nil {
		return
	}
	if err := p.b.Publish(topic, event, payload); err != nil {
		observability.IncBroadcastError(event)
		logging.ReportSideEffect(p.log, "broadcast", err, zap.String("topic", topic), zap.String("event", event))
	}
}

// without returns ids minus exclude, keeping order and dropping duplicates.
func without(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		if id == exclude || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
