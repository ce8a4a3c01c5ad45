// Package worker runs the background reconciliation loop: it refreshes
// cached feed counters and recomputes habit streaks on a fixed
// interval.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/serene-app/serene-backend/internal/cache"
	"github.com/serene-app/serene-backend/internal/db"
	"github.com/serene-app/serene-backend/pkg/config"
	"github.com/serene-app/serene-backend/pkg/logging"
	"github.com/serene-app/serene-backend/pkg/telemetry"
)

// counterTTL keeps cached counters fresh across two passes
const counterTTL = 5 * time.Minute

// Reconciler periodically recounts post likes and comments into the
// cache and recomputes habit streaks from completion history
type Reconciler struct {
	config   *config.Config
	posts    *db.PostRepository
	likes    *db.LikeRepository
	comments *db.CommentRepository
	habits   *db.HabitRepository
	cache    *cache.Cache
	logger   *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(cfg *config.Config, database *db.DB, redisCache *cache.Cache) *Reconciler {
	repo := db.NewRepository(database.DB)
	return &Reconciler{
		config:   cfg,
		posts:    db.NewPostRepository(repo),
		likes:    db.NewLikeRepository(repo),
		comments: db.NewCommentRepository(repo),
		habits:   db.NewHabitRepository(repo),
		cache:    redisCache,
		logger:   logging.GetLogger().With(zap.String("component", "reconciler")),
	}
}

// Run starts the reconciliation loop and blocks until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context) error {
	interval := time.Duration(r.config.Worker.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	r.logger.Info("Starting reconciler", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := r.runOnce(ctx); err != nil {
				r.logger.Error("Reconciliation pass failed", zap.Error(err))
			}
			r.wait(ctx, interval)
		}
	}
}

// runOnce runs the counter and streak passes in parallel
func (r *Reconciler) runOnce(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "reconciler.run_once")
	defer span.End()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return r.reconcileCounters(ctx) })
	group.Go(func() error { return r.reconcileStreaks(ctx) })
	return group.Wait()
}

// reconcileCounters recounts likes and comments for every anonymous
// post into the cache
func (r *Reconciler) reconcileCounters(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}

	postIDs, err := r.posts.ListAnonymousIDs(ctx)
	if err != nil {
		return err
	}

	for _, postID := range postIDs {
		likeCount, err := r.likes.CountByPost(ctx, postID)
		if err != nil {
			return err
		}
		commentCount, err := r.comments.CountByPost(ctx, postID)
		if err != nil {
			return err
		}

		if err := r.cache.Set(cache.HashKey("post", postID, "likes"), likeCount, counterTTL); err != nil {
			r.logger.Warn("Failed to cache like count",
				zap.String("post_id", postID), zap.Error(err))
		}
		if err := r.cache.Set(cache.HashKey("post", postID, "comments"), commentCount, counterTTL); err != nil {
			r.logger.Warn("Failed to cache comment count",
				zap.String("post_id", postID), zap.Error(err))
		}
	}

	r.logger.Debug("Reconciled feed counters", zap.Int("posts", len(postIDs)))
	return nil
}

// reconcileStreaks recomputes every habit's current streak from its
// completion history and persists changed values
func (r *Reconciler) reconcileStreaks(ctx context.Context) error {
	habits, err := r.habits.ListAll(ctx)
	if err != nil {
		return err
	}

	today := time.Now().UTC()
	window := r.config.Worker.StreakWindow
	updated := 0

	for _, habit := range habits {
		days := make([]string, 0, len(habit.Completions))
		for _, completion := range habit.Completions {
			days = append(days, completion.Day)
		}
		if window > 0 && len(days) > window {
			days = days[:window]
		}

		streak := CurrentStreak(days, today)
		if streak == habit.Streak {
			continue
		}
		if err := r.habits.SetStreak(ctx, habit.ID, streak); err != nil {
			return err
		}
		updated++
	}

	r.logger.Debug("Reconciled habit streaks",
		zap.Int("habits", len(habits)), zap.Int("updated", updated))
	return nil
}

// wait sleeps for the given duration or until ctx is cancelled
func (r *Reconciler) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
