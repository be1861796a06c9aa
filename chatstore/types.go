// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package chatstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one persisted chat exchange row. AudioURL points at the
// stored voice artifact when the message carried audio; the cleanup
// scheduler purges aged rows with a non-null reference.
type Message struct {
	Id          string     `json:"id" gorm:"type:varchar(36);primaryKey;<-:create"`
	SessionKey  string     `json:"sessionKey" gorm:"column:session_key;type:varchar(120);not null;index"`
	Role        string     `json:"role" gorm:"column:role;type:varchar(20);not null"`
	Content     string     `json:"content" gorm:"column:content;type:text;not null;default:''"`
	AudioURL    *string    `json:"audioUrl" gorm:"column:audio_url;type:text;default:null"`
	Language    string     `json:"language" gorm:"column:language;type:varchar(5);not null;default:'fr'"`
	CreatedDate time.Time  `json:"createdDate" gorm:"column:created_date;type:timestamp;not null;index;<-:create"`
	UpdatedDate *time.Time `json:"updatedDate" gorm:"column:updated_date;type:timestamp;default:null"`
}

func (Message) TableName() string {
	return "chat_messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.Id == "" {
		m.Id = uuid.New().String()
	}
	if m.CreatedDate.IsZero() {
		m.CreatedDate = time.Now()
	}
	return nil
}

// HasAudio reports whether the row references a stored audio artifact.
func (m *Message) HasAudio() bool {
	return m.AudioURL != nil && *m.AudioURL != ""
}
