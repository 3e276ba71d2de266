package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Character is a player's student. Characters are never deleted, only reset.
type Character struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string          `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Level             int             `gorm:"not null" json:"level"`
	TotalXP           decimal.Decimal `gorm:"type:decimal(38,0);not null;default:0" json:"total_xp"`
	Cash              decimal.Decimal `gorm:"type:decimal(38,0);not null;default:0" json:"cash"`
	StudyEnergy       int             `gorm:"not null" json:"study_energy"`
	StudyEnergyMax    int             `gorm:"not null" json:"study_energy_max"`
	StudyRegenAt      time.Time       `gorm:"not null" json:"study_regen_at"`
	OlympiadEnergy    int             `gorm:"not null" json:"olympiad_energy"`
	OlympiadEnergyMax int             `gorm:"not null" json:"olympiad_energy_max"`
	OlympiadRegenAt   time.Time       `gorm:"not null" json:"olympiad_regen_at"`
	LocationID        string          `gorm:"size:64;not null" json:"location_id"`
	ClassID           *string         `gorm:"size:64" json:"class_id"`
	SpecializationID  *string         `gorm:"size:64" json:"specialization_id"`
	TotalStudyClicks  int64           `gorm:"not null" json:"total_study_clicks"`
	ClassStudyClicks  int             `gorm:"not null" json:"class_study_clicks"`
	DailyStreak       int             `gorm:"not null" json:"daily_streak"`
	LastDailyAt       *time.Time      `json:"last_daily_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubjectProgress is the per-subject level track of a character.
type SubjectProgress struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID    int64     `gorm:"uniqueIndex:idx_char_subject;not null" json:"char_id"`
	SubjectID string    `gorm:"uniqueIndex:idx_char_subject;size:64;not null" json:"subject_id"`
	Level     int       `gorm:"not null" json:"level"`
	CurrentXP int64     `gorm:"not null" json:"current_xp"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Grade is an immutable assessment result.
type Grade struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID    int64     `gorm:"index:idx_grade_char_class;not null" json:"char_id"`
	ClassID   string    `gorm:"index:idx_grade_char_class;size:64;not null" json:"class_id"`
	SubjectID string    `gorm:"size:64;not null" json:"subject_id"`
	Score     int       `gorm:"not null" json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// LocationProgress is the cached completion snapshot written when a class
// inside the location is completed.
type LocationProgress struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID            int64     `gorm:"uniqueIndex:idx_char_location;not null" json:"char_id"`
	LocationID        string    `gorm:"uniqueIndex:idx_char_location;size:64;not null" json:"location_id"`
	CompletionPercent float64   `gorm:"not null" json:"completion_percent"`
	IsCompleted       bool      `gorm:"not null" json:"is_completed"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// QuestCooldown records when a character may run a quest again.
type QuestCooldown struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID      int64     `gorm:"uniqueIndex:idx_char_quest;not null" json:"char_id"`
	QuestID     string    `gorm:"uniqueIndex:idx_char_quest;size:64;not null" json:"quest_id"`
	AvailableAt time.Time `gorm:"not null" json:"available_at"`
}

func (g Grade) GradeSubject() string { return g.SubjectID }
func (g Grade) GradeScore() int      { return g.Score }
