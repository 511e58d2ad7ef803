package model

import "time"

// PrivateMessage is a direct message between two users. Immutable once
// sent except for the read flag; deletable by the sender only.
type PrivateMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64     `gorm:"index:idx_msg_sender;not null" json:"sender_id"`
	ReceiverID int64     `gorm:"index:idx_msg_receiver;not null" json:"receiver_id"`
	Content    string    `gorm:"size:500;not null" json:"content"`
	IsRead     bool      `gorm:"default:false" json:"is_read"`
	SentAt     time.Time `gorm:"index;autoCreateTime" json:"sent_at"`
}
