package services

import (
	"context"
	"errors"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/clock"
	"collab-service/internal/logging"
	"collab-service/internal/models"
	"collab-service/internal/observability"
	"collab-service/internal/repositories"
)

const (
	excerptLength            = 50
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ParseMentions returns the distinct usernames mentioned in content, in
// order of first appearance.
func ParseMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	names := make([]string, 0, len(matches))
	seen := map[string]struct{}{}
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Excerpt truncates content to n runes, appending "..." when it was cut.
func Excerpt(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	runes := []rune(content)
	return string(runes[:n]) + "..."
}

// NotificationService creates inbox entries as side effects of other
// operations and serves the recipient's inbox.
type NotificationService struct {
	repo       repositories.NotificationRepository
	users      repositories.UserRepository
	pub        publisher
	mirror     EventMirror
	routingKey string
	clock      clock.Clock
	log        *zap.Logger
}

// NewNotificationService wires the fanout. mirror may be nil.
func NewNotificationService(repo repositories.NotificationRepository, users repositories.UserRepository,
	broadcaster Broadcaster, mirror EventMirror, routingKey string, clk clock.Clock, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		users:      users,
		pub:        publisher{b: broadcaster, log: logger},
		mirror:     mirror,
		routingKey: routingKey,
		clock:      clk,
		log:        logger,
	}
}

// Notify creates a copy of tmpl for each recipient. Failures are logged per
// recipient and never abort the caller. It returns how many were created.
func (s *NotificationService) Notify(ctx context.Context, recipients []string, tmpl models.Notification) int {
	created := 0
	for _, recipientID := range recipients {
		n := tmpl
		n.ID = ""
		n.RecipientID = recipientID
		n.CreatedAt = s.clock.Now()
		saved, err := s.repo.CreateNotification(ctx, n)
		if err != nil {
			logging.ReportSideEffect(s.log, "create notification", err,
				zap.String("user_id", recipientID), zap.String("type", string(tmpl.Type)))
			continue
		}
		created++
		observability.IncNotification(string(saved.Type))
		s.pub.publish(models.UserTopic(recipientID), models.EventNotification, saved)
		if s.mirror != nil {
			if err := s.mirror.PublishEvent(ctx, s.routingKey, models.EventNotification, saved); err != nil {
				logging.ReportSideEffect(s.log, "mirror notification", err, zap.String("notification_id", saved.ID))
			}
		}
	}
	return created
}

// FanoutMentions notifies every team member mentioned in msg other than
// its sender.
func (s *NotificationService) FanoutMentions(ctx context.Context, team models.Team, msg models.Message) int {
	names := ParseMentions(msg.Content)
	if len(names) == 0 {
		return 0
	}
	ctx, span := startSpan(ctx, "NotificationService.FanoutMentions",
		attribute.String("message.id", msg.ID), attribute.Int("mentions", len(names)))
	defer span.End()

	var recipients []string
	for _, name := range names {
		user, err := s.users.GetUserByUsername(ctx, name)
		if err != nil {
			if !errors.Is(err, repositories.ErrUserNotFound) {
				logging.ReportSideEffect(s.log, "resolve mention", err, zap.String("username", name))
			}
			continue
		}
		if user.ID == msg.SenderID() || !access.IsTeamMember(team, user.ID) {
			continue
		}
		recipients = append(recipients, user.ID)
	}
	recipients = without(recipients, msg.SenderID())
	if len(recipients) == 0 {
		return 0
	}

	title := "You were mentioned"
	if sender, ok := msg.Sender.Get(); ok && sender.Username != "" {
		title = sender.Username + " mentioned you"
	}
	related := msg.ID
	return s.Notify(ctx, recipients, models.Notification{
		Type:      models.NotifyMention,
		Title:     title,
		Body:      Excerpt(msg.Content, excerptLength),
		RelatedID: &related,
	})
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	list, err := s.repo.ListNotifications(ctx, userID, unreadOnly, limit)
	return list, classify("list notifications", err)
}

// UnreadCount counts the caller's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnreadNotifications(ctx, userID)
	return count, classify("count notifications", err)
}

// MarkRead flags one notification. Only its recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	return classify("mark notification read", s.repo.MarkNotificationRead(ctx, notificationID, userID))
}

// MarkAllRead flags every unread notification of userID.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllNotificationsRead(ctx, userID)
	return count, classify("mark all notifications read", err)
}

// Delete removes one notification. Only its recipient may do so.
func (s *NotificationService) Delete(ctx context.Context, notificationID, userID string) error {
	return classify("delete notification", s.repo.DeleteNotification(ctx, notificationID, userID))
}
