package domain

import "time"

// Message is a durable point-to-point communication. Immutable once created
// except for the read timestamp.
type Message struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SenderID    string     `gorm:"size:64;index:idx_msg_pair" json:"sender_id"`
	RecipientID string     `gorm:"size:64;index:idx_msg_pair;index" json:"recipient_id"`
	Content     string     `gorm:"type:text" json:"content"`
	Attachments string     `gorm:"type:text" json:"attachments,omitempty"`
	SentAt      time.Time  `gorm:"index" json:"sent_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

func (Message) TableName() string { return "rt_messages" }
