package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageContentType 定义了消息内容的类型。
type MessageContentType string

const (
	TextContent  MessageContentType = "text"
	FileContent  MessageContentType = "file"
	ImageContent MessageContentType = "image"
)

// ChatMessage 代表一条聊天消息，按 cgid 归属到唯一的会话。
// Messages are persisted to the durable store keyed by their client gid.
type ChatMessage struct {
	// GID is the client-assigned message id; it exists before the server has
	// acknowledged the message.
	GID string `gorm:"primaryKey;column:gid;type:varchar(64)" json:"gid"`

	// ID is the server-assigned id. Zero means the message is local-only and
	// has not been acknowledged by the server.
	ID uint64 `gorm:"column:id;index" json:"id,omitempty"`

	// CGID is the gid of the owning chat.
	CGID string `gorm:"column:cgid;index;type:varchar(64);not null" json:"cgid"`

	// User is the sender's member id.
	User int64 `gorm:"column:user;index" json:"user"`

	Date        time.Time          `gorm:"column:date;index" json:"date"`
	Type        string             `gorm:"column:type;type:varchar(20)" json:"type,omitempty"`
	ContentType MessageContentType `gorm:"column:content_type;type:varchar(20);index" json:"contentType"`
	Content     string             `gorm:"column:content;type:text" json:"content,omitempty"`
}

// TableName 指定 ChatMessage 模型的表名。
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Normalize fills the canonical defaults of a raw message: a fresh client gid
// when none is set, the current time when the date is missing, and a text
// content type when unspecified. It returns the message for chaining.
func (m *ChatMessage) Normalize() *ChatMessage {
	if m.GID == "" {
		m.GID = uuid.NewString()
	}
	if m.Date.IsZero() {
		m.Date = time.Now()
	}
	if m.ContentType == "" {
		m.ContentType = TextContent
	}
	return m
}

// IsLocal reports whether the message has no server-assigned id yet. Only
// local messages may be deleted from the client side.
func (m *ChatMessage) IsLocal() bool {
	return m.ID == 0
}

// FileAttachment is the file payload carried by a message with content type
// "file". Send is true once the upload was confirmed; ID is the server-side
// file id, zero for failed or pending uploads.
type FileAttachment struct {
	ID   uint64 `json:"id,omitempty"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	Send bool   `json:"send,omitempty"`
	Type string `json:"type,omitempty"`
}

// IsSent reports whether the attachment was confirmed sent and carries a
// server id.
func (f *FileAttachment) IsSent() bool {
	return f.Send && f.ID != 0
}

// FileAttachment 解析文件消息的内容负载。
func (m *ChatMessage) FileAttachment() (*FileAttachment, error) {
	if m.ContentType != FileContent {
		return nil, fmt.Errorf("message %s: content type %q carries no file payload", m.GID, m.ContentType)
	}
	var attachment FileAttachment
	if err := json.Unmarshal([]byte(m.Content), &attachment); err != nil {
		return nil, fmt.Errorf("message %s: decode file payload: %w", m.GID, err)
	}
	return &attachment, nil
}
