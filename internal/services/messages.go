package services

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/apperr"
	"collab-service/internal/clock"
	"collab-service/internal/logging"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 100
	maxContentLength    = 10000
	maxEmojiLength      = 64
)

// ClassifyAttachment maps an uploaded file's media type to a message type.
func ClassifyAttachment(mediaType string) models.MessageType {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/") {
		return models.MessageImage
	}
	return models.MessageFile
}

// MessageService manages channel messages and reactions.
type MessageService struct {
	messages repositories.MessageRepository
	resolver *access.Resolver
	reads    *ReadTracker
	notifier *NotificationService
	pub      publisher
	clock    clock.Clock
	log      *zap.Logger

	fanout sync.WaitGroup
}

// NewMessageService constructs a MessageService.
func NewMessageService(messages repositories.MessageRepository, resolver *access.Resolver, reads *ReadTracker,
	notifier *NotificationService, broadcaster Broadcaster, clk clock.Clock, logger *zap.Logger) *MessageService {
	return &MessageService{
		messages: messages,
		resolver: resolver,
		reads:    reads,
		notifier: notifier,
		pub:      publisher{b: broadcaster, log: logger},
		clock:    clk,
		log:      logger,
	}
}

// Create posts a message. Mention notifications are created in the
// background and never affect the result.
func (s *MessageService) Create(ctx context.Context, in models.NewMessage) (models.Message, error) {
	ctx, span := startSpan(ctx, "MessageService.Create", attribute.String("channel.id", in.ChannelID))
	defer span.End()

	if err := validateStruct(in); err != nil {
		return models.Message{}, err
	}
	if strings.TrimSpace(in.Content) == "" && in.File == nil {
		return models.Message{}, apperr.New(apperr.InvalidInput, "content or file is required")
	}
	scope, err := s.resolver.Channel(ctx, in.ChannelID, in.SenderID, access.RequireChannelAccess)
	if err != nil {
		return models.Message{}, err
	}

	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageText
		if in.File != nil {
			msgType = ClassifyAttachment(in.MediaType)
		}
	}
	if in.ReplyTo != nil {
		parent, err := s.messages.GetMessage(ctx, *in.ReplyTo)
		if err != nil {
			return models.Message{}, classify("load reply target", err)
		}
		if parent.ChannelID != in.ChannelID {
			return models.Message{}, apperr.New(apperr.InvalidInput, "reply target belongs to another channel")
		}
	}

	msg, err := s.messages.CreateMessage(ctx, models.Message{
		ChannelID: in.ChannelID,
		Sender:    models.Unresolved[models.User](in.SenderID),
		Content:   in.Content,
		Type:      msgType,
		File:      in.File,
		ReplyTo:   in.ReplyTo,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return models.Message{}, classify("create message", err)
	}

	s.pub.publish(models.ChannelTopic(msg.ChannelID), models.EventMessageNew, msg)

	team := scope.Team
	s.fanout.Add(1)
	go func(ctx context.Context) {
		defer s.fanout.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("mention fanout panicked", zap.Any("panic", r), zap.String("message_id", msg.ID))
			}
		}()
		s.notifier.FanoutMentions(ctx, team, msg)
	}(context.WithoutCancel(ctx))

	return msg, nil
}

// Wait blocks until every background mention fanout has finished.
func (s *MessageService) Wait() {
	s.fanout.Wait()
}

// List returns a page of messages in chronological order. Without beforeID
// it is the newest page; with it, the page just older than beforeID.
// Viewing a channel marks it read for the requester.
func (s *MessageService) List(ctx context.Context, channelID, requesterID string, limit int, beforeID string) ([]models.Message, error) {
	ctx, span := startSpan(ctx, "MessageService.List", attribute.String("channel.id", channelID))
	defer span.End()

	if _, err := s.resolver.Channel(ctx, channelID, requesterID, access.RequireChannelAccess); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	if beforeID != "" {
		if _, err := uuid.Parse(beforeID); err != nil {
			return nil, apperr.New(apperr.InvalidInput, "invalid cursor")
		}
	}
	// The watermark is the fetch time, so a message posted after the page
	// was read stays unread.
	seenAt := s.clock.Now()
	page, err := s.messages.ListMessages(ctx, channelID, limit, beforeID)
	if err != nil {
		return nil, classify("list messages", err)
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}

	if _, err := s.reads.markReadAt(ctx, requesterID, channelID, seenAt); err != nil {
		logging.ReportSideEffect(s.log, "mark read on list", err,
			zap.String("user_id", requesterID), zap.String("channel_id", channelID))
	}
	return page, nil
}

// Search returns messages in the channel whose content contains query.
func (s *MessageService) Search(ctx context.Context, channelID, requesterID, query string, limit int) ([]models.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.InvalidInput, "query is required")
	}
	if _, err := s.resolver.Channel(ctx, channelID, requesterID, access.RequireChannelAccess); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	found, err := s.messages.SearchMessages(ctx, channelID, query, limit)
	return found, classify("search messages", err)
}

// load fetches a message and authorizes the requester on its channel.
func (s *MessageService) load(ctx context.Context, messageID, requesterID string) (models.Message, access.Scope, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, access.Scope{}, classify("load message", err)
	}
	scope, err := s.resolver.Channel(ctx, msg.ChannelID, requesterID, access.RequireChannelAccess)
	if err != nil {
		return models.Message{}, access.Scope{}, err
	}
	return msg, scope, nil
}

// Get returns a single message.
func (s *MessageService) Get(ctx context.Context, messageID, requesterID string) (models.Message, error) {
	msg, _, err := s.load(ctx, messageID, requesterID)
	return msg, err
}

// Update replaces the content. Only the sender may edit.
func (s *MessageService) Update(ctx context.Context, messageID, requesterID, content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, apperr.New(apperr.InvalidInput, "content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return models.Message{}, apperr.New(apperr.InvalidInput, "content is too long")
	}
	msg, _, err := s.load(ctx, messageID, requesterID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID() != requesterID {
		return models.Message{}, apperr.New(apperr.InsufficientRole, "only the sender can edit this message")
	}
	updated, err := s.messages.UpdateMessageContent(ctx, messageID, content, s.clock.Now())
	if err != nil {
		return models.Message{}, classify("update message", err)
	}
	s.pub.publish(models.ChannelTopic(updated.ChannelID), models.EventMessageUpdated, updated)
	return updated, nil
}

// Delete removes a message. Allowed for its sender and for team owners and admins.
func (s *MessageService) Delete(ctx context.Context, messageID, requesterID string) error {
	msg, scope, err := s.load(ctx, messageID, requesterID)
	if err != nil {
		return err
	}
	if msg.SenderID() != requesterID && !access.CanAdminister(scope.Team, requesterID) {
		return apperr.New(apperr.InsufficientRole, "not allowed to delete this message")
	}
	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		return classify("delete message", err)
	}
	s.pub.publish(models.ChannelTopic(msg.ChannelID), models.EventMessageDeleted,
		models.MessageDeleted{MessageID: messageID, ChannelID: msg.ChannelID})
	return nil
}

// AddReaction sets the requester's reaction, replacing any previous one.
func (s *MessageService) AddReaction(ctx context.Context, messageID, requesterID, emoji string) (models.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > maxEmojiLength {
		return models.Message{}, apperr.New(apperr.InvalidInput, "emoji is required")
	}
	if _, _, err := s.load(ctx, messageID, requesterID); err != nil {
		return models.Message{}, err
	}
	if err := s.messages.SetReaction(ctx, messageID, requesterID, emoji, s.clock.Now()); err != nil {
		return models.Message{}, classify("set reaction", err)
	}
	return s.afterReaction(ctx, messageID)
}

// RemoveReaction drops the requester's reaction matching emoji, or all of
// the requester's reactions when emoji is empty.
func (s *MessageService) RemoveReaction(ctx context.Context, messageID, requesterID, emoji string) (models.Message, error) {
	if _, _, err := s.load(ctx, messageID, requesterID); err != nil {
		return models.Message{}, err
	}
	if err := s.messages.RemoveReactions(ctx, messageID, requesterID, strings.TrimSpace(emoji)); err != nil {
		return models.Message{}, classify("remove reaction", err)
	}
	return s.afterReaction(ctx, messageID)
}

func (s *MessageService) afterReaction(ctx context.Context, messageID string) (models.Message, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, classify("load message", err)
	}
	s.pub.publish(models.ChannelTopic(msg.ChannelID), models.EventMessageReaction, msg)
	return msg, nil
}
