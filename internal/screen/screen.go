// Package screen holds what the concrete screens share: the data source they
// read from, navigation targets and the helpers that turn repository
// streams into engine effects.
package screen

import (
	"context"
	"strings"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
)

// Source is the data layer used by screens. *repository.Repository
// implements it.
type Source interface {
	SearchRepositories(ctx context.Context, query string, page int) <-chan resource.Resource[models.SearchResult[models.Repository]]
	SearchUsers(ctx context.Context, query string, page int) <-chan resource.Resource[models.SearchResult[models.User]]
	GetRepositoryDetails(ctx context.Context, owner, name string) <-chan resource.Resource[models.Repository]
	GetUserDetails(ctx context.Context, username string) <-chan resource.Resource[models.User]
	GetTrendingUsers(ctx context.Context) <-chan resource.Resource[[]models.User]
	ObserveFavoriteRepositories(ctx context.Context) <-chan []models.Repository
	SetFavorite(ctx context.Context, id int64, favorite bool) error
}

const (
	repositoryPrefix = "repository/"
	userPrefix       = "user/"
)

// RepositoryTarget is the navigation target of a repository screen
func RepositoryTarget(fullName string) string {
	return repositoryPrefix + fullName
}

// UserTarget is the navigation target of a user screen
func UserTarget(login string) string {
	return userPrefix + login
}

// ParseTarget splits a navigation target into the screen kind
// ("repository" or "user") and its argument.
func ParseTarget(target string) (kind, arg string, ok bool) {
	switch {
	case strings.HasPrefix(target, repositoryPrefix):
		return "repository", strings.TrimPrefix(target, repositoryPrefix), true
	case strings.HasPrefix(target, userPrefix):
		return "user", strings.TrimPrefix(target, userPrefix), true
	default:
		return "", "", false
	}
}

// Forward returns an effect body that dispatches every value of the stream
// opened by open, wrapped as an action.
func Forward[T, A any](open func(ctx context.Context) <-chan T, wrap func(T) A) func(context.Context, func(A)) {
	return func(ctx context.Context, dispatch func(A)) {
		for v := range open(ctx) {
			dispatch(wrap(v))
		}
	}
}

// FailureEvents returns the message raised when a resource is an Error
func FailureEvents[T any](res resource.Resource[T]) []engine.Event {
	failure := res.Failure()
	if failure == nil {
		return nil
	}
	return []engine.Event{engine.NewShowMessage(failure.Message, failure.Retryable())}
}

// SetFavorite returns an effect body that writes a favorite flag and
// dispatches the outcome built by done.
func SetFavorite[A any](source Source, id int64, favorite bool, done func(favorite bool, err error) A) func(context.Context, func(A)) {
	return func(ctx context.Context, dispatch func(A)) {
		dispatch(done(favorite, source.SetFavorite(ctx, id, favorite)))
	}
}

// FavoriteEvent reports the outcome of a favorite change
func FavoriteEvent(favorite bool, err error) engine.Event {
	switch {
	case err != nil:
		return engine.NewShowMessage("Could not update favorites", true)
	case favorite:
		return engine.NewShowMessage("Added to favorites", false)
	default:
		return engine.NewShowMessage("Removed from favorites", false)
	}
}
