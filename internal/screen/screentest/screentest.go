// Package screentest provides a scriptable screen.Source for screen tests
package screentest

import (
	"context"
	"fmt"
	"sync"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
)

// Source implements screen.Source with per-method stream functions. A nil
// function yields a closed stream. Every call is recorded.
type Source struct {
	SearchRepositoriesFunc          func(ctx context.Context, query string, page int) <-chan resource.Resource[models.SearchResult[models.Repository]]
	SearchUsersFunc                 func(ctx context.Context, query string, page int) <-chan resource.Resource[models.SearchResult[models.User]]
	GetRepositoryDetailsFunc        func(ctx context.Context, owner, name string) <-chan resource.Resource[models.Repository]
	GetUserDetailsFunc              func(ctx context.Context, username string) <-chan resource.Resource[models.User]
	GetTrendingUsersFunc            func(ctx context.Context) <-chan resource.Resource[[]models.User]
	ObserveFavoriteRepositoriesFunc func(ctx context.Context) <-chan []models.Repository
	SetFavoriteErr                  error

	mu        sync.Mutex
	calls     []string
	favorites map[int64]bool
}

// Values streams values in order, then closes the stream. It stops early
// when ctx is done.
func Values[T any](ctx context.Context, values ...T) <-chan T {
	ch := make(chan T)
	go func() {
		defer close(ch)
		for _, v := range values {
			select {
			case ch <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Hold streams values and then keeps the stream open until ctx is done
func Hold[T any](ctx context.Context, values ...T) <-chan T {
	ch := make(chan T)
	go func() {
		defer close(ch)
		for _, v := range values {
			select {
			case ch <- v:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return ch
}

func closed[T any]() <-chan T {
	ch := make(chan T)
	close(ch)
	return ch
}

func (s *Source) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded calls, such as "SearchRepositories(kotlin, 1)"
func (s *Source) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Favorite reports the last flag written for id
func (s *Source) Favorite(id int64) (favorite, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	favorite, ok = s.favorites[id]
	return favorite, ok
}

func (s *Source) SearchRepositories(ctx context.Context, query string, page int) <-chan resource.Resource[models.SearchResult[models.Repository]] {
	s.record("SearchRepositories(%s, %d)", query, page)
	if s.SearchRepositoriesFunc == nil {
		return closed[resource.Resource[models.SearchResult[models.Repository]]]()
	}
	return s.SearchRepositoriesFunc(ctx, query, page)
}

func (s *Source) SearchUsers(ctx context.Context, query string, page int) <-chan resource.Resource[models.SearchResult[models.User]] {
	s.record("SearchUsers(%s, %d)", query, page)
	if s.SearchUsersFunc == nil {
		return closed[resource.Resource[models.SearchResult[models.User]]]()
	}
	return s.SearchUsersFunc(ctx, query, page)
}

func (s *Source) GetRepositoryDetails(ctx context.Context, owner, name string) <-chan resource.Resource[models.Repository] {
	s.record("GetRepositoryDetails(%s, %s)", owner, name)
	if s.GetRepositoryDetailsFunc == nil {
		return closed[resource.Resource[models.Repository]]()
	}
	return s.GetRepositoryDetailsFunc(ctx, owner, name)
}

func (s *Source) GetUserDetails(ctx context.Context, username string) <-chan resource.Resource[models.User] {
	s.record("GetUserDetails(%s)", username)
	if s.GetUserDetailsFunc == nil {
		return closed[resource.Resource[models.User]]()
	}
	return s.GetUserDetailsFunc(ctx, username)
}

func (s *Source) GetTrendingUsers(ctx context.Context) <-chan resource.Resource[[]models.User] {
	s.record("GetTrendingUsers()")
	if s.GetTrendingUsersFunc == nil {
		return closed[resource.Resource[[]models.User]]()
	}
	return s.GetTrendingUsersFunc(ctx)
}

func (s *Source) ObserveFavoriteRepositories(ctx context.Context) <-chan []models.Repository {
	s.record("ObserveFavoriteRepositories()")
	if s.ObserveFavoriteRepositoriesFunc == nil {
		return closed[[]models.Repository]()
	}
	return s.ObserveFavoriteRepositoriesFunc(ctx)
}

func (s *Source) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	s.record("SetFavorite(%d, %v)", id, favorite)
	if s.SetFavoriteErr != nil {
		return s.SetFavoriteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.favorites == nil {
		s.favorites = make(map[int64]bool)
	}
	s.favorites[id] = favorite
	return nil
}
