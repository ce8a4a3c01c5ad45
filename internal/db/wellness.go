package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serene-app/serene-backend/internal/models"
)

// MoodRepository provides mood entry database operations
type MoodRepository struct {
	*Repository
}

// NewMoodRepository creates a new mood repository
func NewMoodRepository(repo *Repository) *MoodRepository {
	return &MoodRepository{Repository: repo}
}

// ListByUser retrieves a user's mood entries, newest first
func (r *MoodRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.MoodEntry, error) {
	var entries []*models.MoodEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Create creates a new mood entry
func (r *MoodRepository) Create(ctx context.Context, entry *models.MoodEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// JournalRepository provides journal entry database operations
type JournalRepository struct {
	*Repository
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(repo *Repository) *JournalRepository {
	return &JournalRepository{Repository: repo}
}

// ListByUser retrieves a user's journal entries, newest first
func (r *JournalRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.JournalEntry, error) {
	var entries []*models.JournalEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Create creates a new journal entry
func (r *JournalRepository) Create(ctx context.Context, entry *models.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ThoughtRepository provides CBT thought record database operations
type ThoughtRepository struct {
	*Repository
}

// NewThoughtRepository creates a new thought record repository
func NewThoughtRepository(repo *Repository) *ThoughtRepository {
	return &ThoughtRepository{Repository: repo}
}

// ListByUser retrieves a user's thought records, newest first
func (r *ThoughtRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ThoughtRecord, error) {
	var records []*models.ThoughtRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Create creates a new thought record
func (r *ThoughtRepository) Create(ctx context.Context, record *models.ThoughtRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// HabitRepository provides habit tracker database operations
type HabitRepository struct {
	*Repository
}

// NewHabitRepository creates a new habit repository
func NewHabitRepository(repo *Repository) *HabitRepository {
	return &HabitRepository{Repository: repo}
}

// GetByID retrieves a habit by ID
func (r *HabitRepository) GetByID(ctx context.Context, id string) (*models.Habit, error) {
	var habit models.Habit
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &habit, nil
}

// ListByUser retrieves a user's habits with recent completions loaded
func (r *HabitRepository) ListByUser(ctx context.Context, userID string) ([]*models.Habit, error) {
	var habits []*models.Habit
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Preload("Completions", func(db *gorm.DB) *gorm.DB {
			return db.Order("day DESC")
		}).
		Find(&habits).Error; err != nil {
		return nil, err
	}
	return habits, nil
}

// ListAll retrieves every habit with completions, for the worker
func (r *HabitRepository) ListAll(ctx context.Context) ([]*models.Habit, error) {
	var habits []*models.Habit
	if err := r.db.WithContext(ctx).
		Preload("Completions", func(db *gorm.DB) *gorm.DB {
			return db.Order("day DESC")
		}).
		Find(&habits).Error; err != nil {
		return nil, err
	}
	return habits, nil
}

// Create creates a new habit
func (r *HabitRepository) Create(ctx context.Context, habit *models.Habit) error {
	if habit.ID == "" {
		habit.ID = uuid.NewString()
	}
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(habit).Error
}

// Complete records a completion for the habit on the given day.
// Completing the same day twice is treated as success.
func (r *HabitRepository) Complete(ctx context.Context, habitID, day string) error {
	completion := &models.HabitCompletion{
		ID:        uuid.NewString(),
		HabitID:   habitID,
		Day:       day,
		CreatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Create(completion).Error
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}

// SetStreak updates the cached streak value for a habit
func (r *HabitRepository) SetStreak(ctx context.Context, habitID string, streak int) error {
	return r.db.WithContext(ctx).
		Model(&models.Habit{}).
		Where("id = ?", habitID).
		Update("streak", streak).Error
}
