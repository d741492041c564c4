// Package domain defines the persistence models for chats, messages, and
// reference documents. These types are mapped with GORM and form the core
// data layer of the assistant backend.
package domain

import (
	"time"
)

// Message sender roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat represents a conversation owned by a user. Each chat has a title, a
// flag stating whether the assistant may complement the reference documents
// with external knowledge, and one or more messages.
//
// Chats are hard-deleted; removing a chat cascades to its messages.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the chat owner; indexed for efficient retrieval.
//   - AllowExternal: when true the assistant may augment answers with
//     knowledge beyond the stored reference documents.
//   - Title: human-readable chat title (auto-generated if not provided).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - LastMessageAt: bumped whenever a turn completes with an assistant reply.
type Chat struct {
	ID            string     `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID        string     `json:"user_id"         gorm:"type:varchar(64);not null;index:idx_user_chats"`
	AllowExternal bool       `json:"allow_external"  gorm:"not null;default:false"`
	Title         string     `json:"title"           gorm:"type:varchar(255);not null;default:'New Chat'"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastMessageAt *time.Time `json:"last_message_at"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message represents a single utterance within a chat, authored either by
// the "user" or the "assistant". User messages may carry attachment
// references (stored file names); the text content may be empty when
// attachments are present. Messages are immutable once created and are
// removed only by the cascading hard delete of their chat.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ChatID: foreign key to the owning chat (indexed).
//   - Role: "user" or "assistant" (enforced by DB constraint).
//   - Content: text content of the message (may be empty).
//   - Attachments: stored file names of uploaded blueprint files, or nil.
//   - CreatedAt: post time, part of the chronological ordering index.
type Message struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ChatID      string    `json:"chat_id"     gorm:"type:char(36);not null;index:idx_chat_msgs,priority:1"`
	Role        string    `json:"role"        gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content     string    `json:"content"     gorm:"type:text"`
	Attachments []string  `json:"attachments,omitempty" gorm:"type:text;serializer:json"`
	CreatedAt   time.Time `json:"created_at"  gorm:"index:idx_chat_msgs,priority:2"`

	// Chat is the parent conversation. Messages are cascade-deleted
	// if their chat is removed.
	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Document represents an administrator-managed reference document (a Code of
// Practice) whose extracted text grounds assistant answers. Documents are
// soft-deleted: the row survives for audit, but the chat pipeline only reads
// rows with Deleted=false.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Name: display name shown to users and quoted in assistant context.
//   - ContentRef: stored file name of the extracted text; cleared on delete.
//   - UploaderID / EditorID: user ids of the original uploader and the most
//     recent editor (the uploader is the first editor).
//   - CreatedAt / UpdatedAt: upload and last-edit timestamps.
//   - Deleted: soft-delete flag checked by every read path.
type Document struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Name       string    `json:"name"        gorm:"type:varchar(255);not null"`
	ContentRef string    `json:"content_ref" gorm:"type:varchar(255)"`
	UploaderID string    `json:"uploader_id" gorm:"type:varchar(64);not null"`
	EditorID   string    `json:"editor_id"   gorm:"type:varchar(64);not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Deleted    bool      `json:"-"           gorm:"not null;default:false;index"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }
