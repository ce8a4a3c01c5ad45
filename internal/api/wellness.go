package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/internal/ai"
	"github.com/serene-app/serene-backend/internal/db"
	"github.com/serene-app/serene-backend/internal/models"
	"github.com/serene-app/serene-backend/pkg/logging"
)

// defaultHistoryLimit bounds list endpoints for personal entries
const defaultHistoryLimit = 100

// WellnessAPI serves mood logs, journal entries, CBT thought records
// and the habit tracker. AI enrichment is best-effort: a failed
// insight never fails the save.
type WellnessAPI struct {
	moods    *db.MoodRepository
	journal  *db.JournalRepository
	thoughts *db.ThoughtRepository
	habits   *db.HabitRepository
	insights *ai.Insights
	logger   *zap.Logger
}

// NewWellnessAPI creates a new wellness API. insights may be nil when
// no AI credential is configured.
func NewWellnessAPI(repo *db.Repository, insights *ai.Insights) *WellnessAPI {
	return &WellnessAPI{
		moods:    db.NewMoodRepository(repo),
		journal:  db.NewJournalRepository(repo),
		thoughts: db.NewThoughtRepository(repo),
		habits:   db.NewHabitRepository(repo),
		insights: insights,
		logger:   logging.WithComponent("wellness-api"),
	}
}

type createMoodRequest struct {
	Emoji       string `json:"emoji" binding:"required"`
	Label       string `json:"label" binding:"required"`
	Score       int16  `json:"score" binding:"required"`
	Note        string `json:"note"`
	WithInsight bool   `json:"with_insight"`
}

// CreateMood handles POST /api/moods
func (a *WellnessAPI) CreateMood(c *gin.Context) {
	var req createMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Score < models.MoodScoreMin || req.Score > models.MoodScoreMax {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "score must be between 1 and 5"})
		return
	}

	entry := &models.MoodEntry{
		UserID: ViewerID(c),
		Emoji:  req.Emoji,
		Label:  req.Label,
		Score:  req.Score,
		Note:   req.Note,
	}

	if req.WithInsight && a.insights != nil {
		insight, err := a.insights.MoodInsight(c.Request.Context(), req.Note, req.Emoji)
		if err != nil {
			a.logger.Warn("Mood insight unavailable", zap.Error(err))
		} else {
			entry.Insight = sql.NullString{String: insight, Valid: true}
		}
	}

	if err := a.moods.Create(c.Request.Context(), entry); err != nil {
		a.logger.Error("Failed to save mood entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save mood"})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListMoods handles GET /api/moods
func (a *WellnessAPI) ListMoods(c *gin.Context) {
	entries, err := a.moods.ListByUser(c.Request.Context(), ViewerID(c), defaultHistoryLimit)
	if err != nil {
		a.logger.Error("Failed to list mood entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load moods"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"moods": entries})
}

type createJournalRequest struct {
	Content           string `json:"content" binding:"required"`
	SharedAnonymously bool   `json:"shared_anonymously"`
	WithSummary       bool   `json:"with_summary"`
}

// CreateJournal handles POST /api/journal
func (a *WellnessAPI) CreateJournal(c *gin.Context) {
	var req createJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry := &models.JournalEntry{
		UserID:            ViewerID(c),
		Content:           req.Content,
		SharedAnonymously: req.SharedAnonymously,
	}

	if req.WithSummary && a.insights != nil {
		summary, err := a.insights.MoodInsight(c.Request.Context(), req.Content, "")
		if err != nil {
			a.logger.Warn("Journal summary unavailable", zap.Error(err))
		} else {
			entry.Summary = sql.NullString{String: summary, Valid: true}
		}
	}

	if err := a.journal.Create(c.Request.Context(), entry); err != nil {
		a.logger.Error("Failed to save journal entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save entry"})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListJournal handles GET /api/journal
func (a *WellnessAPI) ListJournal(c *gin.Context) {
	entries, err := a.journal.ListByUser(c.Request.Context(), ViewerID(c), defaultHistoryLimit)
	if err != nil {
		a.logger.Error("Failed to list journal entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type createThoughtRequest struct {
	Situation        string `json:"situation"`
	AutomaticThought string `json:"automaticThought" binding:"required"`
	Emotion          string `json:"emotion"`
	Distortion       string `json:"distortion"`
	WithReframe      bool   `json:"with_reframe"`
}

// CreateThought handles POST /api/thoughts
func (a *WellnessAPI) CreateThought(c *gin.Context) {
	var req createThoughtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record := &models.ThoughtRecord{
		UserID:           ViewerID(c),
		Situation:        req.Situation,
		AutomaticThought: req.AutomaticThought,
		Emotion:          req.Emotion,
		Distortion:       req.Distortion,
	}

	if req.WithReframe && a.insights != nil {
		reframe, err := a.insights.CoachSuggestion(c.Request.Context(),
			req.Situation, req.AutomaticThought, req.Emotion, req.Distortion)
		if err != nil {
			a.logger.Warn("Coach reframe unavailable", zap.Error(err))
		} else {
			record.Reframe = sql.NullString{String: reframe, Valid: true}
		}
	}

	if err := a.thoughts.Create(c.Request.Context(), record); err != nil {
		a.logger.Error("Failed to save thought record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save thought record"})
		return
	}
	c.JSON(http.StatusCreated, record)
}

// ListThoughts handles GET /api/thoughts
func (a *WellnessAPI) ListThoughts(c *gin.Context) {
	records, err := a.thoughts.ListByUser(c.Request.Context(), ViewerID(c), defaultHistoryLimit)
	if err != nil {
		a.logger.Error("Failed to list thought records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load thought records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

type createHabitRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateHabit handles POST /api/habits
func (a *WellnessAPI) CreateHabit(c *gin.Context) {
	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	habit := &models.Habit{
		UserID: ViewerID(c),
		Name:   req.Name,
	}
	if err := a.habits.Create(c.Request.Context(), habit); err != nil {
		a.logger.Error("Failed to create habit", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create habit"})
		return
	}
	c.JSON(http.StatusCreated, habit)
}

// ListHabits handles GET /api/habits
func (a *WellnessAPI) ListHabits(c *gin.Context) {
	habits, err := a.habits.ListByUser(c.Request.Context(), ViewerID(c))
	if err != nil {
		a.logger.Error("Failed to list habits", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load habits"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

type completeHabitRequest struct {
	Day string `json:"day"`
}

// CompleteHabit handles POST /api/habits/:id/complete. Completing the
// same day twice is a no-op.
func (a *WellnessAPI) CompleteHabit(c *gin.Context) {
	var req completeHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	day := req.Day
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "day must be YYYY-MM-DD"})
		return
	}

	habitID := c.Param("id")
	habit, err := a.habits.GetByID(c.Request.Context(), habitID)
	if err != nil {
		a.logger.Error("Failed to load habit", zap.String("habit_id", habitID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete habit"})
		return
	}
	if habit == nil || habit.UserID != ViewerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
		return
	}

	if err := a.habits.Complete(c.Request.Context(), habitID, day); err != nil {
		a.logger.Error("Failed to complete habit", zap.String("habit_id", habitID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete habit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit_id": habitID, "day": day})
}
