package models

import (
	"database/sql"
	"time"
)

// MoodEntry represents a daily mood log entry
type MoodEntry struct {
	ID        string         `gorm:"type:uuid;primaryKey;column:id"`
	UserID    string         `gorm:"type:uuid;not null;index;column:user_id"`
	Emoji     string         `gorm:"type:varchar(16);not null;column:emoji"`
	Label     string         `gorm:"type:varchar(32);not null;column:label"`
	Score     int16          `gorm:"type:smallint;not null;column:score"`
	Note      string         `gorm:"type:text;not null;default:'';column:note"`
	Insight   sql.NullString `gorm:"type:text;column:insight"`
	CreatedAt time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for MoodEntry
func (MoodEntry) TableName() string {
	return "mood_entries"
}

// Mood score bounds
const (
	MoodScoreMin int16 = 1
	MoodScoreMax int16 = 5
)

// JournalEntry represents a free-form journal entry
type JournalEntry struct {
	ID                string         `gorm:"type:uuid;primaryKey;column:id"`
	UserID            string         `gorm:"type:uuid;not null;index;column:user_id"`
	Content           string         `gorm:"type:text;not null;column:content"`
	SharedAnonymously bool           `gorm:"not null;default:false;column:shared_anonymously"`
	Summary           sql.NullString `gorm:"type:text;column:summary"`
	CreatedAt         time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for JournalEntry
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// ThoughtRecord represents a CBT thought record
type ThoughtRecord struct {
	ID               string         `gorm:"type:uuid;primaryKey;column:id"`
	UserID           string         `gorm:"type:uuid;not null;index;column:user_id"`
	Situation        string         `gorm:"type:text;not null;default:'';column:situation"`
	AutomaticThought string         `gorm:"type:text;not null;column:automatic_thought"`
	Emotion          string         `gorm:"type:varchar(64);not null;default:'';column:emotion"`
	Distortion       string         `gorm:"type:varchar(64);not null;default:'';column:distortion"`
	Reframe          sql.NullString `gorm:"type:text;column:reframe"`
	CreatedAt        time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for ThoughtRecord
func (ThoughtRecord) TableName() string {
	return "thought_records"
}

// Habit represents a tracked habit
type Habit struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id"`
	UserID    string    `gorm:"type:uuid;not null;index;column:user_id"`
	Name      string    `gorm:"type:varchar(120);not null;column:name"`
	Streak    int       `gorm:"not null;default:0;column:streak"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Completions []HabitCompletion `gorm:"foreignKey:HabitID;references:ID"`
}

// TableName specifies the table name for Habit
func (Habit) TableName() string {
	return "habits"
}

// HabitCompletion marks a habit done on a given day.
// One completion per habit per day.
type HabitCompletion struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id"`
	HabitID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_habit_day;column:habit_id"`
	Day       string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_habit_day;column:day"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for HabitCompletion
func (HabitCompletion) TableName() string {
	return "habit_completions"
}
