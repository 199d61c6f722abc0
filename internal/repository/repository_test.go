package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/repository"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/google/go-github/v57/github"
)

// fakeRemote counts calls per method. While gate is non-nil every call
// blocks until the gate closes or the call's context is done.
type fakeRemote struct {
	mu    sync.Mutex
	calls map[string]int
	gate  chan struct{}
	err   error

	repoSearch *github.RepositoriesSearchResult
	userSearch *github.UsersSearchResult
	repo       *github.Repository
	user       *github.User
	trending   []*github.User
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{calls: make(map[string]int)}
}

func (f *fakeRemote) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	gate, err := f.gate, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeRemote) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRemote) SearchRepositories(ctx context.Context, query string, page int) (*github.RepositoriesSearchResult, error) {
	if err := f.enter(ctx, "SearchRepositories"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repoSearch, nil
}

func (f *fakeRemote) SearchUsers(ctx context.Context, query string, page int) (*github.UsersSearchResult, error) {
	if err := f.enter(ctx, "SearchUsers"); err != nil {
		return nil, err
	}
	return f.userSearch, nil
}

func (f *fakeRemote) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	if err := f.enter(ctx, "GetRepository"); err != nil {
		return nil, err
	}
	return f.repo, nil
}

func (f *fakeRemote) GetUser(ctx context.Context, username string) (*github.User, error) {
	if err := f.enter(ctx, "GetUser"); err != nil {
		return nil, err
	}
	return f.user, nil
}

func (f *fakeRemote) TrendingUsers(ctx context.Context) ([]*github.User, error) {
	if err := f.enter(ctx, "TrendingUsers"); err != nil {
		return nil, err
	}
	return f.trending, nil
}

// fakeStore is an in-memory LocalStore
type fakeStore struct {
	mu          sync.Mutex
	favorites   []int64
	repos       map[int64]models.Repository
	snapshots   map[string][]byte
	subscribers map[chan models.FavoriteSet]struct{}
	failReads   bool
	failWrites  bool
}

func newFakeStore(favorites ...int64) *fakeStore {
	return &fakeStore{
		favorites:   favorites,
		repos:       make(map[int64]models.Repository),
		snapshots:   make(map[string][]byte),
		subscribers: make(map[chan models.FavoriteSet]struct{}),
	}
}

func (s *fakeStore) setLocked() models.FavoriteSet {
	return models.NewFavoriteSet(s.favorites...)
}

func (s *fakeStore) FavoriteIDs(ctx context.Context) (models.FavoriteSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, errors.New("disk I/O error")
	}
	return s.setLocked(), nil
}

func (s *fakeStore) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errors.New("database is locked")
	}

	kept := s.favorites[:0:0]
	for _, existing := range s.favorites {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if favorite {
		kept = append(kept, id)
	}
	s.favorites = kept

	set := s.setLocked()
	for ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- set
	}
	return nil
}

func (s *fakeStore) ObserveFavorites(ctx context.Context) <-chan models.FavoriteSet {
	ch := make(chan models.FavoriteSet, 1)

	s.mu.Lock()
	ch <- s.setLocked()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *fakeStore) SaveRepositories(ctx context.Context, repos []models.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, repo := range repos {
		s.repos[repo.ID] = repo
	}
	return nil
}

func (s *fakeStore) FavoriteRepositories(ctx context.Context) ([]models.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repos := []models.Repository{}
	for i := len(s.favorites) - 1; i >= 0; i-- {
		if repo, ok := s.repos[s.favorites[i]]; ok {
			repos = append(repos, repo.WithFavorite(true))
		}
	}
	return repos, nil
}

func (s *fakeStore) LoadSnapshot(ctx context.Context, key string, maxAge time.Duration, v any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.snapshots[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(payload, v)
}

func (s *fakeStore) SaveSnapshot(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[key] = payload
	return nil
}

func next[T any](t *testing.T, ch <-chan resource.Resource[T]) resource.Resource[T] {
	t.Helper()
	select {
	case res, ok := <-ch:
		if !ok {
			t.Fatal("stream closed before the expected value")
		}
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the stream")
	}
	panic("unreachable")
}

func expectClosed[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("expected the stream to close, got %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not closed")
	}
}

func expectQuiet[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v, ok := <-ch:
		t.Fatalf("unexpected emission %v (open=%v)", v, ok)
	case <-time.After(50 * time.Millisecond):
	}
}

func kotlinSearch() *github.RepositoriesSearchResult {
	return &github.RepositoriesSearchResult{
		Total:             github.Int(5000),
		IncompleteResults: github.Bool(true),
		Repositories: []*github.Repository{
			{ID: github.Int64(1), Name: github.String("a"), FullName: github.String("jetbrains/a"), Owner: &github.User{Login: github.String("jetbrains")}},
			{ID: github.Int64(2), Name: github.String("b"), FullName: github.String("square/b"), Owner: &github.User{Login: github.String("square")}},
		},
	}
}

func TestSearchRepositoriesMergesFavorites(t *testing.T) {
	remote := newFakeRemote()
	remote.repoSearch = kotlinSearch()
	store := newFakeStore(1)
	repo := repository.New(remote, store, repository.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	stream := repo.SearchRepositories(ctx, "kotlin", 1)

	if first := next(t, stream); !first.IsLoading() {
		t.Fatalf("first emission = %v, want Loading", first)
	}

	result, ok := next(t, stream).Data()
	if !ok {
		t.Fatal("second emission should be Success")
	}
	if result.TotalCount != 5000 || !result.IncompleteResults {
		t.Errorf("TotalCount/IncompleteResults = %d/%v", result.TotalCount, result.IncompleteResults)
	}
	if len(result.Items) != 2 || result.Items[0].ID != 1 || result.Items[1].ID != 2 {
		t.Fatalf("Items = %+v", result.Items)
	}
	if !result.Items[0].IsFavorite || result.Items[1].IsFavorite {
		t.Errorf("favorite flags = %v, %v; want true, false", result.Items[0].IsFavorite, result.Items[1].IsFavorite)
	}

	// Fetched repositories are kept for offline favorites
	if _, ok := store.repos[2]; !ok {
		t.Error("fetched repositories should be stored")
	}

	expectQuiet(t, stream)
	cancel()
	expectClosed(t, stream)
}

func TestSearchRepositoriesTimeout(t *testing.T) {
	remote := newFakeRemote()
	remote.gate = make(chan struct{})
	defer close(remote.gate)
	repo := repository.New(remote, newFakeStore(), repository.Config{RequestTimeout: 50 * time.Millisecond})

	stream := repo.SearchRepositories(context.Background(), "kotlin", 1)

	if first := next(t, stream); !first.IsLoading() {
		t.Fatalf("first emission = %v, want Loading", first)
	}
	failure := next(t, stream).Failure()
	if failure == nil || failure.Kind != resource.Timeout {
		t.Fatalf("second emission failure = %v, want Timeout", failure)
	}
	expectClosed(t, stream)
}

func TestErrorsAreClassified(t *testing.T) {
	remote := newFakeRemote()
	remote.err = fmt.Errorf("failed to get user: %w", &net.DNSError{Err: "no such host", Name: "api.github.com"})
	repo := repository.New(remote, newFakeStore(), repository.Config{})

	stream := repo.GetUserDetails(context.Background(), "octocat")
	next(t, stream)
	res := next(t, stream)
	if failure := res.Failure(); failure == nil || failure.Kind != resource.NetworkUnavailable {
		t.Fatalf("emission = %v, want NetworkUnavailable", res)
	}
	expectClosed(t, stream)
}

func TestConcurrentQueriesShareOneCall(t *testing.T) {
	remote := newFakeRemote()
	remote.repoSearch = kotlinSearch()
	remote.gate = make(chan struct{})
	repo := repository.New(remote, newFakeStore(), repository.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := repo.SearchRepositories(ctx, "kotlin", 1)
	second := repo.SearchRepositories(ctx, "kotlin", 1)
	next(t, first)
	next(t, second)

	// Let both streams join the fetch before it completes
	time.Sleep(50 * time.Millisecond)
	close(remote.gate)

	for _, stream := range []<-chan resource.Resource[models.SearchResult[models.Repository]]{first, second} {
		if res := next(t, stream); res.State() != resource.StateSuccess {
			t.Errorf("emission = %v, want Success", res)
		}
	}
	if calls := remote.count("SearchRepositories"); calls != 1 {
		t.Errorf("remote calls = %d, want 1", calls)
	}
}

func TestCancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	remote := newFakeRemote()
	remote.user = &github.User{ID: github.Int64(1), Login: github.String("octocat")}
	remote.gate = make(chan struct{})
	repo := repository.New(remote, newFakeStore(), repository.Config{})

	leaving, leave := context.WithCancel(context.Background())
	first := repo.GetUserDetails(leaving, "octocat")
	second := repo.GetUserDetails(context.Background(), "octocat")
	next(t, first)
	next(t, second)

	time.Sleep(50 * time.Millisecond)
	leave()
	expectClosed(t, first)
	close(remote.gate)

	user, ok := next(t, second).Data()
	if !ok || user.Login != "octocat" {
		t.Errorf("remaining caller got %+v, %v", user, ok)
	}
	expectClosed(t, second)
	if calls := remote.count("GetUser"); calls != 1 {
		t.Errorf("remote calls = %d, want 1", calls)
	}
}

func TestFavoriteToggleRefreshesOpenStream(t *testing.T) {
	remote := newFakeRemote()
	remote.repo = &github.Repository{ID: github.Int64(42), FullName: github.String("octo/answer")}
	store := newFakeStore(42)
	repo := repository.New(remote, store, repository.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := repo.GetRepositoryDetails(ctx, "octo", "answer")
	next(t, stream)
	details, ok := next(t, stream).Data()
	if !ok || !details.IsFavorite {
		t.Fatalf("details = %+v, want favorite", details)
	}

	if err := repo.SetFavorite(ctx, 42, false); err != nil {
		t.Fatalf("SetFavorite() error = %v", err)
	}
	refreshed, ok := next(t, stream).Data()
	if !ok || refreshed.IsFavorite {
		t.Fatalf("refreshed = %+v, want not favorite", refreshed)
	}

	// A new query reads the same flag
	again := repo.GetRepositoryDetails(ctx, "octo", "answer")
	next(t, again)
	if requeried, _ := next(t, again).Data(); requeried.IsFavorite {
		t.Error("re-queried repository should not be favorite")
	}
}

func TestFavoriteChangeOutsidePayloadIsIgnored(t *testing.T) {
	remote := newFakeRemote()
	remote.repoSearch = kotlinSearch()
	store := newFakeStore()
	repo := repository.New(remote, store, repository.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := repo.SearchRepositories(ctx, "kotlin", 1)
	next(t, stream)
	next(t, stream)

	if err := repo.SetFavorite(ctx, 999, true); err != nil {
		t.Fatalf("SetFavorite() error = %v", err)
	}
	expectQuiet(t, stream)
}

func TestLocalStoreFailureDefaultsFlags(t *testing.T) {
	remote := newFakeRemote()
	remote.repoSearch = kotlinSearch()
	store := newFakeStore(1, 2)
	store.failReads = true
	repo := repository.New(remote, store, repository.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := repo.SearchRepositories(ctx, "kotlin", 1)
	next(t, stream)
	result, ok := next(t, stream).Data()
	if !ok {
		t.Fatal("a favorite store failure must not fail the query")
	}
	for _, item := range result.Items {
		if item.IsFavorite {
			t.Errorf("repository %d should default to not favorite", item.ID)
		}
	}
}

func TestStaleWhileRevalidate(t *testing.T) {
	remote := newFakeRemote()
	remote.repoSearch = kotlinSearch()
	store := newFakeStore(2)
	repo := repository.New(remote, store, repository.Config{CacheTTL: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	warm := repo.SearchRepositories(ctx, "kotlin", 1)
	next(t, warm)
	next(t, warm)
	cancel()

	updated := kotlinSearch()
	updated.Total = github.Int(5001)
	remote.mu.Lock()
	remote.repoSearch = updated
	remote.mu.Unlock()

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	stream := repo.SearchRepositories(ctx, "kotlin", 1)

	first := next(t, stream)
	cached, ok := first.Data()
	if !ok || !first.IsStale() {
		t.Fatalf("first emission = %v, want the cached Success marked stale", first)
	}
	if cached.TotalCount != 5000 || !cached.Items[1].IsFavorite {
		t.Errorf("cached = %+v, want the stored snapshot with flags", cached)
	}

	second := next(t, stream)
	fresh, ok := second.Data()
	if !ok || second.IsStale() || fresh.TotalCount != 5001 {
		t.Errorf("fresh = %+v, want the revalidated result", fresh)
	}
	if calls := remote.count("SearchRepositories"); calls != 2 {
		t.Errorf("remote calls = %d, want 2", calls)
	}
}

func TestBlankQuery(t *testing.T) {
	remote := newFakeRemote()
	repo := repository.New(remote, newFakeStore(), repository.Config{})

	stream := repo.SearchUsers(context.Background(), "   ", 1)
	if first := next(t, stream); !first.IsLoading() {
		t.Fatalf("first emission = %v, want Loading", first)
	}
	result, ok := next(t, stream).Data()
	if !ok || result.Items == nil || len(result.Items) != 0 {
		t.Errorf("blank query result = %+v, %v", result, ok)
	}
	expectClosed(t, stream)
	if calls := remote.count("SearchUsers"); calls != 0 {
		t.Errorf("remote calls = %d, want 0", calls)
	}
}

func TestSearchUsersClosesAfterSuccess(t *testing.T) {
	remote := newFakeRemote()
	remote.userSearch = &github.UsersSearchResult{
		Total: github.Int(1),
		Users: []*github.User{{ID: github.Int64(7), Login: github.String("octocat")}},
	}
	repo := repository.New(remote, newFakeStore(), repository.Config{})

	stream := repo.SearchUsers(context.Background(), " octo ", 0)
	next(t, stream)
	result, ok := next(t, stream).Data()
	if !ok || result.TotalCount != 1 || len(result.Items) != 1 || result.Items[0].Login != "octocat" {
		t.Errorf("result = %+v, %v", result, ok)
	}
	expectClosed(t, stream)
}

func TestGetUserDetails(t *testing.T) {
	remote := newFakeRemote()
	remote.user = &github.User{ID: github.Int64(7), Login: github.String("octocat"), Followers: github.Int(-3)}
	repo := repository.New(remote, newFakeStore(), repository.Config{})

	stream := repo.GetUserDetails(context.Background(), "octocat")
	if first := next(t, stream); !first.IsLoading() {
		t.Fatalf("first emission = %v, want Loading", first)
	}
	user, ok := next(t, stream).Data()
	if !ok || user.Login != "octocat" || user.Followers != 0 || user.DisplayName() != "octocat" {
		t.Errorf("user = %+v, %v", user, ok)
	}
	expectClosed(t, stream)
}

func TestGetTrendingUsers(t *testing.T) {
	remote := newFakeRemote()
	remote.trending = []*github.User{
		{ID: github.Int64(1), Login: github.String("first")},
		{ID: github.Int64(2), Login: github.String("second")},
	}
	repo := repository.New(remote, newFakeStore(), repository.Config{})

	stream := repo.GetTrendingUsers(context.Background())
	next(t, stream)
	users, ok := next(t, stream).Data()
	if !ok || len(users) != 2 || users[0].Login != "first" {
		t.Errorf("users = %+v", users)
	}
	expectClosed(t, stream)
}

func TestObserveFavoriteRepositories(t *testing.T) {
	store := newFakeStore()
	store.SaveRepositories(context.Background(), []models.Repository{
		{ID: 1, FullName: "a/one", Topics: []string{}},
		{ID: 2, FullName: "b/two", Topics: []string{}},
	})
	remote := newFakeRemote()
	repo := repository.New(remote, store, repository.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	favorites := repo.ObserveFavoriteRepositories(ctx)

	receive := func() []models.Repository {
		t.Helper()
		select {
		case repos := <-favorites:
			return repos
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for favorites")
			return nil
		}
	}

	if initial := receive(); len(initial) != 0 {
		t.Fatalf("initial favorites = %+v, want none", initial)
	}

	if err := repo.SetFavorite(ctx, 2, true); err != nil {
		t.Fatalf("SetFavorite() error = %v", err)
	}
	got := receive()
	if len(got) != 1 || got[0].ID != 2 || !got[0].IsFavorite {
		t.Errorf("favorites = %+v, want repository 2", got)
	}

	cancel()
	expectClosed(t, favorites)
	if len(remote.calls) != 0 {
		t.Errorf("favorites must not call the remote, got %v", remote.calls)
	}
}

func TestSetFavoriteFailure(t *testing.T) {
	store := newFakeStore()
	store.failWrites = true
	repo := repository.New(newFakeRemote(), store, repository.Config{})

	err := repo.SetFavorite(context.Background(), 42, true)
	var failure *resource.Failure
	if !errors.As(err, &failure) || failure.Kind != resource.LocalStoreFailure {
		t.Fatalf("SetFavorite() error = %v, want a LocalStoreFailure", err)
	}
}
