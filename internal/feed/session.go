package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/internal/realtime"
	"github.com/serene-app/serene-backend/pkg/logging"
)

var (
	// ErrSignInRequired is returned when a write needs a viewer identity
	// and none is present. No network call is made.
	ErrSignInRequired = errors.New("sign in required")

	// ErrUnknownPost is returned when a mutation targets a post that is
	// not in the local feed
	ErrUnknownPost = errors.New("post not in feed")
)

// Store is the remote backing a Session reads and writes through
type Store interface {
	// FetchFeed returns the annotated anonymous feed, newest first
	FetchFeed(ctx context.Context) ([]Item, error)

	// InsertLike records the viewer's like on a post
	InsertLike(ctx context.Context, postID string) error

	// DeleteLike removes the viewer's like from a post
	DeleteLike(ctx context.Context, postID string) error

	// FetchComments returns a post's comments, oldest first
	FetchComments(ctx context.Context, postID string) ([]Comment, error)

	// InsertComment stores a comment and returns the created row
	InsertComment(ctx context.Context, postID, content string) (*Comment, error)

	// Subscribe opens the push channel of post-insert events
	Subscribe(ctx context.Context) (<-chan realtime.PostEvent, func(), error)
}

// Notice is a transient, dismissable user-facing message. Failures are
// surfaced here and are never fatal to the session.
type Notice struct {
	Message string
}

type opState int

const (
	opApplied opState = iota
	opConfirmed
	opRolledBack
)

// likeOp records one optimistic like mutation through its lifecycle
type likeOp struct {
	postID    string
	prevLiked bool
	state     opState
}

// SessionOptions tunes the subscriber and reconciliation behavior
type SessionOptions struct {
	// ReconnectMinBackoff is the first retry delay after a dropped
	// subscription channel
	ReconnectMinBackoff time.Duration

	// ReconnectMaxBackoff caps the exponential retry delay
	ReconnectMaxBackoff time.Duration

	// ReconcileInterval is how often the full feed is refetched to
	// bound staleness. Zero disables periodic reconciliation.
	ReconcileInterval time.Duration
}

// DefaultSessionOptions returns the standard session tuning
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		ReconnectMinBackoff: time.Second,
		ReconnectMaxBackoff: 30 * time.Second,
		ReconcileInterval:   2 * time.Minute,
	}
}

// Session holds one viewer's live view of the anonymous feed: the
// ordered post list, per-post comment caches, and the expanded set.
// All mutations are optimistic with deterministic rollback on remote
// failure, so local state never drifts past one reconcile interval.
type Session struct {
	store    Store
	viewerID string
	opts     SessionOptions
	logger   *zap.Logger

	mu       sync.Mutex
	items    []Item
	seen     map[string]bool
	pushed   map[string]bool
	comments map[string][]Comment
	expanded map[string]bool
	loading  map[string]bool
	ops      []likeOp

	notices chan Notice
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSession creates a session for the given viewer. An empty viewerID
// is allowed; write operations are then rejected locally.
func NewSession(store Store, viewerID string, opts SessionOptions) *Session {
	if opts.ReconnectMinBackoff <= 0 {
		opts.ReconnectMinBackoff = time.Second
	}
	if opts.ReconnectMaxBackoff < opts.ReconnectMinBackoff {
		opts.ReconnectMaxBackoff = opts.ReconnectMinBackoff
	}
	return &Session{
		store:    store,
		viewerID: viewerID,
		opts:     opts,
		logger:   logging.WithComponent("feed-session"),
		seen:     make(map[string]bool),
		pushed:   make(map[string]bool),
		comments: make(map[string][]Comment),
		expanded: make(map[string]bool),
		loading:  make(map[string]bool),
		notices:  make(chan Notice, 16),
	}
}

// Load seeds the feed with a bulk fetch. On failure the feed is left
// as it was (empty on first load) and a notice is raised; there is no
// automatic retry beyond the periodic reconciliation.
func (s *Session) Load(ctx context.Context) error {
	items, err := s.store.FetchFeed(ctx)
	if err != nil {
		s.notify("Failed to load posts")
		return err
	}
	s.applyFeed(items)
	return nil
}

// applyFeed replaces the feed store with a fetched snapshot, keeping
// any pushed posts the snapshot does not contain yet at the head so a
// push racing the fetch still appears exactly once.
func (s *Session) applyFeed(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fetched := make(map[string]bool, len(items))
	for _, item := range items {
		fetched[item.ID] = true
	}

	var head []Item
	stillPushed := make(map[string]bool)
	for _, item := range s.items {
		if s.pushed[item.ID] && !fetched[item.ID] {
			head = append(head, item)
			stillPushed[item.ID] = true
		}
	}

	s.items = append(head, items...)
	s.pushed = stillPushed
	s.seen = fetched
	for id := range stillPushed {
		s.seen[id] = true
	}
}

// Start launches the push subscriber and the periodic reconciliation
// loop. Stop with Close.
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.subscribeLoop(ctx)

	if s.opts.ReconcileInterval > 0 {
		s.wg.Add(1)
		go s.reconcileLoop(ctx)
	}
}

// Close tears the session down: the subscription is cancelled and the
// background goroutines drained
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// subscribeLoop keeps exactly one push subscription open, reconnecting
// with capped exponential backoff when the channel drops
func (s *Session) subscribeLoop(ctx context.Context) {
	defer s.wg.Done()

	backoff := s.opts.ReconnectMinBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		events, unsubscribe, err := s.store.Subscribe(ctx)
		if err != nil {
			s.logger.Warn("Feed subscription failed, retrying",
				zap.Duration("backoff", backoff), zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.opts.ReconnectMaxBackoff)
			continue
		}
		backoff = s.opts.ReconnectMinBackoff

		if !s.consume(ctx, events) {
			unsubscribe()
			return
		}
		unsubscribe()

		// Channel dropped; resubscribe after a delay
		s.logger.Warn("Feed subscription dropped, reconnecting")
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, s.opts.ReconnectMaxBackoff)
	}
}

// consume drains events until the channel closes (returns true) or the
// context is cancelled (returns false)
func (s *Session) consume(ctx context.Context, events <-chan realtime.PostEvent) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return true
			}
			s.handlePush(event)
		}
	}
}

// handlePush prepends a pushed post. Duplicates (already fetched or
// already pushed) are ignored so a post appears at the head exactly once.
func (s *Session) handlePush(event realtime.PostEvent) {
	if !event.IsAnonymous {
		return
	}

	s.mu.Lock()
	if s.seen[event.ID] {
		s.mu.Unlock()
		return
	}
	item := itemFromEvent(event)
	s.items = append([]Item{item}, s.items...)
	s.seen[event.ID] = true
	s.pushed[event.ID] = true
	s.mu.Unlock()

	s.notify("New anonymous post")
}

// reconcileLoop refetches the full feed on an interval so a silently
// dropped channel or a failed optimistic write cannot leave the view
// stale for longer than one interval
func (s *Session) reconcileLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			items, err := s.store.FetchFeed(ctx)
			if err != nil {
				s.logger.Warn("Feed reconciliation failed", zap.Error(err))
				continue
			}
			s.applyFeed(items)
		}
	}
}

// Posts returns a copy of the current feed, newest first
func (s *Session) Posts() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Post returns the current view of a single post
func (s *Session) Post(postID string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if item.ID == postID {
			return item, true
		}
	}
	return Item{}, false
}

// ToggleLike likes or unlikes a post based on the current local state.
// The count and flag move in lockstep and are updated before the
// remote write is issued; if the write fails the exact inverse delta
// is applied, so local state ends consistent either way.
func (s *Session) ToggleLike(ctx context.Context, postID string) error {
	if s.viewerID == "" {
		s.notify("Sign in to like posts")
		return ErrSignInRequired
	}

	s.mu.Lock()
	idx := s.indexOf(postID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrUnknownPost
	}
	prevLiked := s.items[idx].ViewerHasLiked
	if prevLiked {
		s.items[idx].LikeCount--
		s.items[idx].ViewerHasLiked = false
	} else {
		s.items[idx].LikeCount++
		s.items[idx].ViewerHasLiked = true
	}
	opIdx := len(s.ops)
	s.ops = append(s.ops, likeOp{postID: postID, prevLiked: prevLiked, state: opApplied})
	s.mu.Unlock()

	var err error
	if prevLiked {
		err = s.store.DeleteLike(ctx, postID)
	} else {
		err = s.store.InsertLike(ctx, postID)
	}

	s.mu.Lock()
	if err != nil {
		// Roll back with the inverse delta
		if idx := s.indexOf(postID); idx >= 0 {
			if prevLiked {
				s.items[idx].LikeCount++
			} else {
				s.items[idx].LikeCount--
			}
			s.items[idx].ViewerHasLiked = prevLiked
		}
		s.ops[opIdx].state = opRolledBack
		s.mu.Unlock()
		s.notify("Failed to update like")
		return err
	}
	s.ops[opIdx].state = opConfirmed
	s.mu.Unlock()
	return nil
}

// ToggleComments expands or collapses a post's comment panel. The
// first expansion fetches the comments; they are cached for the
// session's lifetime, so repeated expand/collapse never refetches.
// A failed fetch leaves the cache unset so a later expand retries.
func (s *Session) ToggleComments(ctx context.Context, postID string) error {
	s.mu.Lock()
	if s.expanded[postID] {
		delete(s.expanded, postID)
		s.mu.Unlock()
		return nil
	}
	s.expanded[postID] = true

	_, cached := s.comments[postID]
	if cached || s.loading[postID] {
		s.mu.Unlock()
		return nil
	}
	s.loading[postID] = true
	s.mu.Unlock()

	comments, err := s.store.FetchComments(ctx, postID)

	s.mu.Lock()
	delete(s.loading, postID)
	if err != nil {
		s.mu.Unlock()
		s.notify("Failed to load comments")
		return err
	}
	s.comments[postID] = comments
	s.mu.Unlock()
	return nil
}

// IsExpanded reports whether a post's comment panel is open
func (s *Session) IsExpanded(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[postID]
}

// Comments returns the cached comments for a post
func (s *Session) Comments(postID string) ([]Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.comments[postID]
	if !ok {
		return nil, false
	}
	out := make([]Comment, len(cached))
	copy(out, cached)
	return out, true
}

// SubmitComment posts a comment. Blank input is rejected locally
// without a network call. On success the returned row is appended to
// the comment cache (appends keep ascending order) and the post's
// comment count is incremented exactly once; on failure nothing
// local changes.
func (s *Session) SubmitComment(ctx context.Context, postID, text string) (*Comment, error) {
	if s.viewerID == "" {
		s.notify("Sign in to comment")
		return nil, ErrSignInRequired
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}

	comment, err := s.store.InsertComment(ctx, postID, text)
	if err != nil {
		s.notify("Failed to post comment")
		return nil, err
	}

	s.mu.Lock()
	if cached, ok := s.comments[postID]; ok {
		s.comments[postID] = append(cached, *comment)
	}
	if idx := s.indexOf(postID); idx >= 0 {
		s.items[idx].CommentCount++
	}
	s.mu.Unlock()
	return comment, nil
}

// Notices returns the stream of transient user-facing messages
func (s *Session) Notices() <-chan Notice {
	return s.notices
}

// indexOf finds a post in the feed. Caller holds s.mu.
func (s *Session) indexOf(postID string) int {
	for i := range s.items {
		if s.items[i].ID == postID {
			return i
		}
	}
	return -1
}

// notify emits a notice without ever blocking the caller
func (s *Session) notify(message string) {
	select {
	case s.notices <- Notice{Message: message}:
	default:
	}
}

// sleepCtx waits for d or until ctx is cancelled, reporting whether
// the full wait elapsed
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
