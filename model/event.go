package model

import (
	"time"

	"gorm.io/datatypes"
)

// RankedEvent is one scored competition window.
type RankedEvent struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SlotKey     string         `gorm:"uniqueIndex;size:32;not null" json:"slot_key"`
	Name        string         `gorm:"size:128" json:"name"`
	SubjectID   *string        `gorm:"size:64" json:"subject_id"`
	StartsAt    time.Time      `gorm:"index;not null" json:"starts_at"`
	EndsAt      time.Time      `gorm:"index;not null" json:"ends_at"`
	RewardTiers datatypes.JSON `json:"reward_tiers"`
	FinalizedAt *time.Time     `json:"finalized_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

// EventParticipant is created once per (event, character) by joining.
type EventParticipant struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID        int64     `gorm:"uniqueIndex:idx_event_char;not null" json:"event_id"`
	CharID         int64     `gorm:"uniqueIndex:idx_event_char;not null" json:"char_id"`
	Score          int       `gorm:"not null" json:"score"`
	Rank           *int      `json:"rank"`
	RewardsClaimed bool      `gorm:"not null" json:"rewards_claimed"`
	CreatedAt      time.Time `json:"created_at"`
}
