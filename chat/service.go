package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gamehive/server/model"
	"github.com/gamehive/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultMaxMessageLen bounds message content when no limit is configured.
const DefaultMaxMessageLen = 500

// BlockChecker is the slice of the social service the chat layer needs.
type BlockChecker interface {
	IsBlockedBy(ctx context.Context, userID, blocker int64) (bool, error)
}

// Service implements private message storage, read tracking and the
// per-user conversation summary.
type Service struct {
	db     *gorm.DB
	blocks BlockChecker
	maxLen int
	logger *zap.Logger
}

// NewService creates a chat Service. maxLen <= 0 falls back to
// DefaultMaxMessageLen.
func NewService(db *gorm.DB, blocks BlockChecker, maxLen int, logger *zap.Logger) *Service {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLen
	}
	return &Service{db: db, blocks: blocks, maxLen: maxLen, logger: logger}
}

// SendMessage persists a message from sender to receiver. Content is
// trimmed and must be 1..maxLen characters. Fails Forbidden when the
// receiver has blocked the sender; the reverse direction is not checked,
// blocks only silence the blocked side.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*model.PrivateMessage, error) {
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot message yourself", social.ErrInvalidArgument)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty message", social.ErrInvalidArgument)
	}
	if len([]rune(content)) > s.maxLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", social.ErrInvalidArgument, s.maxLen)
	}

	blocked, err := s.blocks.IsBlockedBy(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("%w: receiver has blocked you", social.ErrForbidden)
	}

	msg := model.PrivateMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     false,
		SentAt:     time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}

	s.logger.Debug("message sent",
		zap.Int64("message_id", msg.ID),
		zap.Int64("sender_id", senderID),
		zap.Int64("receiver_id", receiverID),
	)
	return &msg, nil
}

// GetMessage fetches a single message by id.
func (s *Service) GetMessage(ctx context.Context, messageID int64) (*model.PrivateMessage, error) {
	var msg model.PrivateMessage
	if err := s.db.WithContext(ctx).First(&msg, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message %d", social.ErrNotFound, messageID)
		}
		return nil, err
	}
	return &msg, nil
}

// DeleteMessage hard-deletes a message. Only the sender may delete; no
// retraction notice is produced.
func (s *Service) DeleteMessage(ctx context.Context, messageID, actingUserID int64) error {
	msg, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actingUserID {
		return fmt.Errorf("%w: only the sender may delete a message", social.ErrForbidden)
	}
	return s.db.WithContext(ctx).Delete(&model.PrivateMessage{}, msg.ID).Error
}

// GetThread returns every message between the two users, oldest first.
// The id tiebreak keeps the order stable for equal timestamps, which chat
// rendering depends on.
func (s *Service) GetThread(ctx context.Context, userA, userB int64) ([]model.PrivateMessage, error) {
	var msgs []model.PrivateMessage
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Order("sent_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// MarkThreadRead flags every unread message from counterpart to owner as
// read and returns the number of messages affected. The REST layer calls
// this whenever it serves a thread to its owner; it stays independently
// callable.
func (s *Service) MarkThreadRead(ctx context.Context, counterpartID, ownerID int64) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&model.PrivateMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", counterpartID, ownerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// Conversation is the derived per-counterpart summary. It is recomputed on
// every call, never stored.
type Conversation struct {
	CounterpartID   int64     `json:"counterpart_id"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

// ListConversations scans the owner's messages, groups them by the other
// participant and orders the summaries by last activity, newest first.
// Blocked or since-departed counterparts are not filtered; history stays
// visible.
func (s *Service) ListConversations(ctx context.Context, ownerID int64) ([]Conversation, error) {
	var msgs []model.PrivateMessage
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", ownerID, ownerID).
		Order("sent_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	byCounterpart := make(map[int64]*Conversation)
	for _, m := range msgs {
		other := m.SenderID
		if other == ownerID {
			other = m.ReceiverID
		}
		conv, ok := byCounterpart[other]
		if !ok {
			conv = &Conversation{CounterpartID: other}
			byCounterpart[other] = conv
		}
		if m.SentAt.After(conv.LastMessageTime) {
			conv.LastMessageTime = m.SentAt
		}
		if m.ReceiverID == ownerID && !m.IsRead {
			conv.UnreadCount++
		}
	}

	result := make([]Conversation, 0, len(byCounterpart))
	for _, conv := range byCounterpart {
		result = append(result, *conv)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastMessageTime.Equal(result[j].LastMessageTime) {
			return result[i].CounterpartID < result[j].CounterpartID
		}
		return result[i].LastMessageTime.After(result[j].LastMessageTime)
	})
	return result, nil
}
