package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/serene-app/serene-backend/internal/realtime"
)

// fakeStore is a scriptable Store for session tests
type fakeStore struct {
	mu sync.Mutex

	feed     []Item
	feedErr  error
	comments map[string][]Comment

	likeErr    error
	commentErr error

	fetchFeedCalls     int
	insertLikeCalls    int
	deleteLikeCalls    int
	fetchCommentCalls  int
	insertCommentCalls int

	events chan realtime.PostEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		comments: make(map[string][]Comment),
		events:   make(chan realtime.PostEvent, 16),
	}
}

func (f *fakeStore) FetchFeed(ctx context.Context) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchFeedCalls++
	if f.feedErr != nil {
		return nil, f.feedErr
	}
	out := make([]Item, len(f.feed))
	copy(out, f.feed)
	return out, nil
}

func (f *fakeStore) InsertLike(ctx context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertLikeCalls++
	return f.likeErr
}

func (f *fakeStore) DeleteLike(ctx context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteLikeCalls++
	return f.likeErr
}

func (f *fakeStore) FetchComments(ctx context.Context, postID string) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCommentCalls++
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	return f.comments[postID], nil
}

func (f *fakeStore) InsertComment(ctx context.Context, postID, content string) (*Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCommentCalls++
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	return &Comment{
		ID:        "created",
		PostID:    postID,
		Author:    "Anonymous",
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeStore) Subscribe(ctx context.Context) (<-chan realtime.PostEvent, func(), error) {
	return f.events, func() {}, nil
}

func testItems() []Item {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return []Item{
		{ID: "p2", Content: "newer", IsAnonymous: true, CreatedAt: now, LikeCount: 3},
		{ID: "p1", Content: "older", IsAnonymous: true, CreatedAt: now.Add(-time.Hour), LikeCount: 1, ViewerHasLiked: true},
	}
}

func newTestSession(store Store) *Session {
	opts := DefaultSessionOptions()
	opts.ReconcileInterval = 0
	return NewSession(store, "viewer-1", opts)
}

func TestSessionLoad(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()

	session := newTestSession(store)
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	posts := session.Posts()
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].ID != "p2" || posts[1].ID != "p1" {
		t.Errorf("feed order = [%s %s], want [p2 p1]", posts[0].ID, posts[1].ID)
	}
}

func TestSessionLoadFailureLeavesFeedEmpty(t *testing.T) {
	store := newFakeStore()
	store.feedErr = errors.New("backend down")

	session := newTestSession(store)
	if err := session.Load(context.Background()); err == nil {
		t.Fatal("Load() should propagate the fetch error")
	}

	if got := len(session.Posts()); got != 0 {
		t.Errorf("feed should stay empty after failed load, got %d posts", got)
	}

	select {
	case notice := <-session.Notices():
		if notice.Message != "Failed to load posts" {
			t.Errorf("notice = %q, want load failure notice", notice.Message)
		}
	default:
		t.Error("expected a user-facing notice after failed load")
	}
}

func TestToggleLikeOptimistic(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()

	session := newTestSession(store)
	session.Load(context.Background())

	// p2 is not liked: toggle must set the flag and bump the count in
	// lockstep
	if err := session.ToggleLike(context.Background(), "p2"); err != nil {
		t.Fatalf("ToggleLike() error: %v", err)
	}
	post, _ := session.Post("p2")
	if !post.ViewerHasLiked || post.LikeCount != 4 {
		t.Errorf("after like: liked=%v count=%d, want true 4", post.ViewerHasLiked, post.LikeCount)
	}
	if store.insertLikeCalls != 1 {
		t.Errorf("insertLikeCalls = %d, want 1", store.insertLikeCalls)
	}

	// p1 is already liked: toggle must clear and decrement
	if err := session.ToggleLike(context.Background(), "p1"); err != nil {
		t.Fatalf("ToggleLike() error: %v", err)
	}
	post, _ = session.Post("p1")
	if post.ViewerHasLiked || post.LikeCount != 0 {
		t.Errorf("after unlike: liked=%v count=%d, want false 0", post.ViewerHasLiked, post.LikeCount)
	}
	if store.deleteLikeCalls != 1 {
		t.Errorf("deleteLikeCalls = %d, want 1", store.deleteLikeCalls)
	}
}

func TestToggleLikeRoundTrip(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()

	session := newTestSession(store)
	session.Load(context.Background())

	before, _ := session.Post("p2")
	session.ToggleLike(context.Background(), "p2")
	session.ToggleLike(context.Background(), "p2")
	after, _ := session.Post("p2")

	if after.ViewerHasLiked != before.ViewerHasLiked || after.LikeCount != before.LikeCount {
		t.Errorf("double toggle: liked=%v count=%d, want liked=%v count=%d",
			after.ViewerHasLiked, after.LikeCount, before.ViewerHasLiked, before.LikeCount)
	}
}

func TestToggleLikeRollbackOnFailure(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()
	store.likeErr = errors.New("write failed")

	session := newTestSession(store)
	session.Load(context.Background())

	before, _ := session.Post("p2")
	if err := session.ToggleLike(context.Background(), "p2"); err == nil {
		t.Fatal("ToggleLike() should surface the remote failure")
	}
	after, _ := session.Post("p2")

	// Inverse delta applied: state identical to before the toggle
	if after.ViewerHasLiked != before.ViewerHasLiked || after.LikeCount != before.LikeCount {
		t.Errorf("rollback: liked=%v count=%d, want liked=%v count=%d",
			after.ViewerHasLiked, after.LikeCount, before.ViewerHasLiked, before.LikeCount)
	}
}

func TestToggleLikeRequiresIdentity(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()

	opts := DefaultSessionOptions()
	opts.ReconcileInterval = 0
	session := NewSession(store, "", opts)
	session.Load(context.Background())

	if err := session.ToggleLike(context.Background(), "p2"); !errors.Is(err, ErrSignInRequired) {
		t.Fatalf("ToggleLike() without identity = %v, want ErrSignInRequired", err)
	}
	if store.insertLikeCalls != 0 || store.deleteLikeCalls != 0 {
		t.Error("no network call should be made without a viewer identity")
	}
}

func TestToggleCommentsFetchesOnce(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()
	store.comments["p2"] = []Comment{
		{ID: "c1", PostID: "p2", Author: "Anonymous", Content: "same"},
	}

	session := newTestSession(store)
	session.Load(context.Background())

	// First expand fetches
	if err := session.ToggleComments(context.Background(), "p2"); err != nil {
		t.Fatalf("ToggleComments() error: %v", err)
	}
	if !session.IsExpanded("p2") {
		t.Error("post should be expanded")
	}
	if store.fetchCommentCalls != 1 {
		t.Errorf("fetchCommentCalls = %d, want 1", store.fetchCommentCalls)
	}

	// Collapse, expand again: comment cache must be reused
	session.ToggleComments(context.Background(), "p2")
	if session.IsExpanded("p2") {
		t.Error("post should be collapsed after second toggle")
	}
	session.ToggleComments(context.Background(), "p2")
	if store.fetchCommentCalls != 1 {
		t.Errorf("fetchCommentCalls after re-expand = %d, want 1", store.fetchCommentCalls)
	}

	comments, ok := session.Comments("p2")
	if !ok || len(comments) != 1 {
		t.Errorf("cached comments = %v ok=%v, want one cached comment", comments, ok)
	}
}

func TestToggleCommentsRetriesAfterFailure(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()
	store.commentErr = errors.New("fetch failed")

	session := newTestSession(store)
	session.Load(context.Background())

	if err := session.ToggleComments(context.Background(), "p2"); err == nil {
		t.Fatal("ToggleComments() should surface the fetch error")
	}
	if _, ok := session.Comments("p2"); ok {
		t.Error("cache must stay unset after a failed fetch")
	}

	// Collapse and expand again: the fetch is retried
	store.mu.Lock()
	store.commentErr = nil
	store.mu.Unlock()
	session.ToggleComments(context.Background(), "p2")
	if err := session.ToggleComments(context.Background(), "p2"); err != nil {
		t.Fatalf("retry ToggleComments() error: %v", err)
	}
	if store.fetchCommentCalls != 2 {
		t.Errorf("fetchCommentCalls = %d, want 2", store.fetchCommentCalls)
	}
}

func TestSubmitCommentRejectsBlankInput(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()

	session := newTestSession(store)
	session.Load(context.Background())

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := session.SubmitComment(context.Background(), "p2", text); !errors.Is(err, ErrEmptyContent) {
			t.Errorf("SubmitComment(%q) = %v, want ErrEmptyContent", text, err)
		}
	}
	if store.insertCommentCalls != 0 {
		t.Errorf("insertCommentCalls = %d, want 0 for blank input", store.insertCommentCalls)
	}
}

func TestSubmitCommentIncrementsCountOnce(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()

	session := newTestSession(store)
	session.Load(context.Background())
	session.ToggleComments(context.Background(), "p2")

	before, _ := session.Post("p2")
	comment, err := session.SubmitComment(context.Background(), "p2", "  me too  ")
	if err != nil {
		t.Fatalf("SubmitComment() error: %v", err)
	}
	if comment.Content != "me too" {
		t.Errorf("comment content = %q, want trimmed text", comment.Content)
	}

	after, _ := session.Post("p2")
	if after.CommentCount != before.CommentCount+1 {
		t.Errorf("CommentCount = %d, want %d", after.CommentCount, before.CommentCount+1)
	}

	comments, _ := session.Comments("p2")
	if len(comments) != 1 || comments[len(comments)-1].Content != "me too" {
		t.Errorf("comment cache = %v, want appended row", comments)
	}
}

func TestSubmitCommentFailureMutatesNothing(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()

	session := newTestSession(store)
	session.Load(context.Background())

	store.mu.Lock()
	store.commentErr = errors.New("write failed")
	store.mu.Unlock()

	before, _ := session.Post("p2")
	if _, err := session.SubmitComment(context.Background(), "p2", "hi"); err == nil {
		t.Fatal("SubmitComment() should surface the remote failure")
	}
	after, _ := session.Post("p2")
	if after.CommentCount != before.CommentCount {
		t.Errorf("CommentCount changed on failure: %d -> %d", before.CommentCount, after.CommentCount)
	}
}

func TestPushPrependsExactlyOnce(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()

	session := newTestSession(store)
	session.Load(context.Background())
	session.Start(context.Background())
	defer session.Close()

	event := realtime.PostEvent{
		ID:          "p3",
		Content:     "fresh",
		IsAnonymous: true,
		CreatedAt:   time.Now().UTC(),
	}
	store.events <- event
	store.events <- event // duplicate delivery

	waitFor(t, func() bool {
		posts := session.Posts()
		return len(posts) >= 3 && posts[0].ID == "p3"
	})

	count := 0
	for _, post := range session.Posts() {
		if post.ID == "p3" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("pushed post appears %d times, want exactly 1", count)
	}
}

func TestPushDuringInitialFetchNotDuplicated(t *testing.T) {
	store := newFakeStore()
	items := testItems()
	pushed := Item{ID: "p3", Content: "fresh", IsAnonymous: true, CreatedAt: time.Now().UTC()}

	session := newTestSession(store)
	session.Start(context.Background())
	defer session.Close()

	// Push arrives before the bulk fetch completes
	store.events <- realtime.PostEvent{ID: pushed.ID, Content: pushed.Content, IsAnonymous: true, CreatedAt: pushed.CreatedAt}
	waitFor(t, func() bool { return len(session.Posts()) == 1 })

	// The fetch snapshot already contains the pushed post
	store.mu.Lock()
	store.feed = append([]Item{pushed}, items...)
	store.mu.Unlock()
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	posts := session.Posts()
	count := 0
	for _, post := range posts {
		if post.ID == "p3" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("pushed post appears %d times after load, want exactly 1", count)
	}
	if posts[0].ID != "p3" {
		t.Errorf("pushed post should stay at the head, head is %s", posts[0].ID)
	}
}

func TestNonAnonymousPushIgnored(t *testing.T) {
	store := newFakeStore()
	store.feed = testItems()

	session := newTestSession(store)
	session.Load(context.Background())
	session.Start(context.Background())
	defer session.Close()

	store.events <- realtime.PostEvent{ID: "private", IsAnonymous: false}
	store.events <- realtime.PostEvent{ID: "public", IsAnonymous: true}

	waitFor(t, func() bool {
		posts := session.Posts()
		return len(posts) == 3 && posts[0].ID == "public"
	})

	for _, post := range session.Posts() {
		if post.ID == "private" {
			t.Error("non-anonymous post must not enter the feed")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
