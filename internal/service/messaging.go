package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/tasks"
)

// MessagingService delivers point-to-point messages: durable copy first,
// then fan-out to the recipient's identity room. The sender gets a direct
// acknowledgment on their own connection only, so other sender tabs do not
// double-render.
type MessagingService struct {
	messages repository.MessageRepository
	bridge   repository.EventBridge
	queue    TaskEnqueuer
	log      *logrus.Entry
}

func NewMessagingService(messages repository.MessageRepository, bridge repository.EventBridge, queue TaskEnqueuer) *MessagingService {
	if messages == nil || bridge == nil || queue == nil {
		panic("all dependencies must be non-nil for MessagingService")
	}
	return &MessagingService{
		messages: messages,
		bridge:   bridge,
		queue:    queue,
		log:      logrus.WithField("component", "messaging"),
	}
}

// Send persists the message, then broadcasts message.new to the recipient's
// identity room. A recipient with zero connections still gets the durable
// copy and catches up through History on reconnect.
func (s *MessagingService) Send(ctx context.Context, sender domain.Identity, p domain.SendMessagePayload) (*domain.Message, error) {
	if sender.Anonymous {
		return nil, ErrNotAuthorized
	}
	logCtx := s.log.WithFields(logrus.Fields{"sender": sender.ID, "recipient": p.To})

	msg := &domain.Message{
		SenderID:    sender.ID,
		RecipientID: p.To,
		Content:     p.Content,
		Attachments: p.Attachments,
		SentAt:      time.Now().UTC(),
	}
	if err := s.messages.Save(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Failed to persist message")
		return nil, ErrInternalServer
	}

	ev := domain.MustEvent(domain.EvMessageNew, msg)
	recipientRoom := domain.RoomKey{Kind: domain.RoomUser, ID: p.To}
	if err := s.bridge.Publish(ctx, recipientRoom, domain.Envelope{Event: ev}); err != nil {
		// The durable copy exists; live delivery degrades, history recovers.
		logCtx.WithError(err).Warn("Failed to publish message.new")
	}

	task, err := tasks.NewNotificationTask(p.To, domain.EvMessageNew, msg)
	if err == nil {
		err = s.queue.Enqueue(ctx, task)
	}
	if err != nil {
		logCtx.WithError(err).Warn("Failed to enqueue message notification")
	}

	logCtx.WithField("message_id", msg.ID).Info("Message sent")
	return msg, nil
}

// MarkRead stamps the read time and notifies the original sender's identity
// room.
func (s *MessagingService) MarkRead(ctx context.Context, reader domain.Identity, messageID uint) (*domain.Message, error) {
	if reader.Anonymous {
		return nil, ErrNotAuthorized
	}
	msg, err := s.messages.MarkRead(ctx, messageID, reader.ID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		s.log.WithError(err).WithField("message_id", messageID).Error("Failed to mark message read")
		return nil, ErrInternalServer
	}

	readAt := ""
	if msg.ReadAt != nil {
		readAt = msg.ReadAt.Format(time.RFC3339Nano)
	}
	ev := domain.MustEvent(domain.EvMessageReadNotice, domain.ReadNoticePayload{
		MessageID: msg.ID,
		Reader:    reader.ID,
		ReadAt:    readAt,
	})
	senderRoom := domain.RoomKey{Kind: domain.RoomUser, ID: msg.SenderID}
	if err := s.bridge.Publish(ctx, senderRoom, domain.Envelope{Event: ev}); err != nil {
		s.log.WithError(err).WithField("message_id", messageID).Warn("Failed to publish read notice")
	}
	return msg, nil
}

// Typing relays a transient typing indicator. No durable copy, no queue.
func (s *MessagingService) Typing(ctx context.Context, sender domain.Identity, p domain.TypingPayload) error {
	if sender.Anonymous {
		return ErrNotAuthorized
	}
	ev := domain.MustEvent(domain.EvMessageTypingOut, domain.TypingNoticePayload{
		From:   sender.ID,
		Typing: p.Typing,
	})
	recipientRoom := domain.RoomKey{Kind: domain.RoomUser, ID: p.To}
	if err := s.bridge.Publish(ctx, recipientRoom, domain.Envelope{Event: ev}); err != nil {
		s.log.WithError(err).Warn("Failed to publish typing indicator")
		return ErrInternalServer
	}
	return nil
}

// History returns the recent conversation between the caller and a peer,
// newest last. This is the catch-up path for reconnecting clients.
func (s *MessagingService) History(ctx context.Context, caller domain.Identity, peer string, limit int) ([]domain.Message, error) {
	if caller.Anonymous {
		return nil, ErrNotAuthorized
	}
	msgs, err := s.messages.ListConversation(ctx, caller.ID, peer, limit)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"caller": caller.ID, "peer": peer}).Error("Failed to load conversation")
		return nil, ErrInternalServer
	}
	return msgs, nil
}
