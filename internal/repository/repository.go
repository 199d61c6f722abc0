package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/api"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// RemoteSource is the GitHub API as seen by the repository.
// *api.GitHubClient implements it.
type RemoteSource interface {
	SearchRepositories(ctx context.Context, query string, page int) (*github.RepositoriesSearchResult, error)
	SearchUsers(ctx context.Context, query string, page int) (*github.UsersSearchResult, error)
	GetRepository(ctx context.Context, owner, name string) (*github.Repository, error)
	GetUser(ctx context.Context, username string) (*github.User, error)
	TrendingUsers(ctx context.Context) ([]*github.User, error)
}

// LocalStore holds favorite flags, offline repositories and query
// snapshots. *db.DB implements it.
type LocalStore interface {
	FavoriteIDs(ctx context.Context) (models.FavoriteSet, error)
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	ObserveFavorites(ctx context.Context) <-chan models.FavoriteSet
	SaveRepositories(ctx context.Context, repos []models.Repository) error
	FavoriteRepositories(ctx context.Context) ([]models.Repository, error)
	LoadSnapshot(ctx context.Context, key string, maxAge time.Duration, v any) (bool, error)
	SaveSnapshot(ctx context.Context, key string, v any) error
}

// Config controls caching and request limits
type Config struct {
	// CacheTTL is how long a query snapshot may be served while the query
	// revalidates. Zero disables snapshots.
	CacheTTL time.Duration
	// RequestTimeout bounds each remote call. Zero means no limit.
	RequestTimeout time.Duration
}

// Repository merges GitHub data with the local favorite store and exposes
// every query as a stream of resources.
//
// Streams carrying repositories stay open after Success and emit a fresh
// Success whenever a favorite flag in the last emitted payload changes.
// Other streams close after their terminal value. Every stream closes when
// its context is done.
type Repository struct {
	remote RemoteSource
	store  LocalStore
	config Config

	inflight singleflight.Group
}

// New creates a repository over the given collaborators
func New(remote RemoteSource, store LocalStore, config Config) *Repository {
	return &Repository{
		remote: remote,
		store:  store,
		config: config,
	}
}

// SearchRepositories streams one page of a repository search
func (r *Repository) SearchRepositories(ctx context.Context, query string, page int) <-chan resource.Resource[models.SearchResult[models.Repository]] {
	query = strings.TrimSpace(query)
	if query == "" {
		return settled(models.SearchResult[models.Repository]{Items: []models.Repository{}})
	}
	page = max(page, 1)

	return stream(ctx, r, request[models.SearchResult[models.Repository]]{
		key: fmt.Sprintf("search/repositories?q=%s&page=%d", query, page),
		fetch: func(ctx context.Context) (models.SearchResult[models.Repository], error) {
			result, err := r.remote.SearchRepositories(ctx, query, page)
			if err != nil {
				return models.SearchResult[models.Repository]{}, err
			}
			return api.ConvertRepositorySearch(result), nil
		},
		repositories: func(result models.SearchResult[models.Repository]) []models.Repository {
			return result.Items
		},
		merge: func(result models.SearchResult[models.Repository], favorites models.FavoriteSet) models.SearchResult[models.Repository] {
			result.Items = mergeFavorites(result.Items, favorites)
			return result
		},
	})
}

// SearchUsers streams one page of a user search
func (r *Repository) SearchUsers(ctx context.Context, query string, page int) <-chan resource.Resource[models.SearchResult[models.User]] {
	query = strings.TrimSpace(query)
	if query == "" {
		return settled(models.SearchResult[models.User]{Items: []models.User{}})
	}
	page = max(page, 1)

	return stream(ctx, r, request[models.SearchResult[models.User]]{
		key: fmt.Sprintf("search/users?q=%s&page=%d", query, page),
		fetch: func(ctx context.Context) (models.SearchResult[models.User], error) {
			result, err := r.remote.SearchUsers(ctx, query, page)
			if err != nil {
				return models.SearchResult[models.User]{}, err
			}
			return api.ConvertUserSearch(result), nil
		},
	})
}

// GetRepositoryDetails streams a single repository
func (r *Repository) GetRepositoryDetails(ctx context.Context, owner, name string) <-chan resource.Resource[models.Repository] {
	return stream(ctx, r, request[models.Repository]{
		key: strings.ToLower(fmt.Sprintf("repos/%s/%s", owner, name)),
		fetch: func(ctx context.Context) (models.Repository, error) {
			repo, err := r.remote.GetRepository(ctx, owner, name)
			if err != nil {
				return models.Repository{}, err
			}
			return api.ConvertRepository(repo), nil
		},
		repositories: func(repo models.Repository) []models.Repository {
			return []models.Repository{repo}
		},
		merge: func(repo models.Repository, favorites models.FavoriteSet) models.Repository {
			return repo.WithFavorite(favorites.Has(repo.ID))
		},
	})
}

// GetUserDetails streams a single user profile
func (r *Repository) GetUserDetails(ctx context.Context, username string) <-chan resource.Resource[models.User] {
	return stream(ctx, r, request[models.User]{
		key: strings.ToLower("users/" + username),
		fetch: func(ctx context.Context) (models.User, error) {
			user, err := r.remote.GetUser(ctx, username)
			if err != nil {
				return models.User{}, err
			}
			return api.ConvertUser(user), nil
		},
	})
}

// GetTrendingUsers streams the most followed recently created accounts
func (r *Repository) GetTrendingUsers(ctx context.Context) <-chan resource.Resource[[]models.User] {
	return stream(ctx, r, request[[]models.User]{
		key: "trending/users",
		fetch: func(ctx context.Context) ([]models.User, error) {
			users, err := r.remote.TrendingUsers(ctx)
			if err != nil {
				return nil, err
			}
			return api.ConvertUsers(users), nil
		},
	})
}

// ObserveFavoriteRepositories streams the stored favorite repositories,
// newest favorite first, whenever the favorite set changes. It never
// touches the network.
func (r *Repository) ObserveFavoriteRepositories(ctx context.Context) <-chan []models.Repository {
	out := make(chan []models.Repository, 1)

	go func() {
		defer close(out)

		var last []models.Repository
		first := true
		for range r.store.ObserveFavorites(ctx) {
			repos, err := r.store.FavoriteRepositories(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logrus.WithError(err).Warn("Failed to load favorite repositories")
				}
				continue
			}
			if !first && reflect.DeepEqual(repos, last) {
				continue
			}
			first = false
			last = repos

			select {
			case out <- repos:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// SetFavorite marks or unmarks a repository as favorite. Open streams that
// hold the repository emit the new flag.
func (r *Repository) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	if err := r.store.SetFavorite(ctx, id, favorite); err != nil {
		return resource.NewFailure(resource.LocalStoreFailure, "failed to update favorite", err)
	}
	return nil
}

// request describes one remote-backed query
type request[T any] struct {
	key   string
	fetch func(ctx context.Context) (T, error)

	// repositories lists the repositories in a payload so they can be
	// stored offline. Nil for payloads without repositories.
	repositories func(T) []models.Repository
	// merge applies favorite flags to a payload. Nil for payloads without
	// repositories.
	merge func(T, models.FavoriteSet) T
}

func stream[T any](ctx context.Context, r *Repository, req request[T]) <-chan resource.Resource[T] {
	out := make(chan resource.Resource[T], 1)
	go func() {
		defer close(out)
		run(ctx, r, req, out)
	}()
	return out
}

// settled streams Loading followed by data
func settled[T any](data T) <-chan resource.Resource[T] {
	out := make(chan resource.Resource[T], 2)
	out <- resource.Loading[T]()
	out <- resource.Success(data)
	close(out)
	return out
}

func run[T any](ctx context.Context, r *Repository, req request[T], out chan<- resource.Resource[T]) {
	emit := func(res resource.Resource[T]) bool {
		select {
		case out <- res:
			return true
		case <-ctx.Done():
			return false
		}
	}
	log := logrus.WithField("query", req.key)

	if cached, ok := loadSnapshot[T](ctx, r, req.key); ok {
		log.Debug("Serving cached snapshot while revalidating")
		if req.merge != nil {
			cached = req.merge(cached, r.favorites(ctx))
		}
		if !emit(resource.Stale(cached)) {
			return
		}
	} else if !emit(resource.Loading[T]()) {
		return
	}

	var (
		payload   T
		favorites models.FavoriteSet
		g         errgroup.Group
	)
	g.Go(func() error {
		var err error
		payload, err = fetchShared(ctx, r, req)
		return err
	})
	if req.merge != nil {
		g.Go(func() error {
			favorites = r.favorites(ctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return
		}
		failure := api.ClassifyError(err)
		log.WithError(err).WithField("kind", failure.Kind).Warn("Query failed")
		emit(resource.Fail[T](failure))
		return
	}

	if req.merge == nil {
		emit(resource.Success(payload))
		return
	}

	last := req.merge(payload, favorites)
	if !emit(resource.Success(last)) {
		return
	}

	// The notification only signals a change; flags are re-read from the store.
	for range r.store.ObserveFavorites(ctx) {
		set, err := r.store.FavoriteIDs(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Warn("Failed to reload favorites")
			}
			continue
		}
		next := req.merge(payload, set)
		if reflect.DeepEqual(next, last) {
			continue
		}
		log.Debug("Favorite flags changed, emitting refreshed result")
		last = next
		if !emit(resource.Success(next)) {
			return
		}
	}
}

// fetchShared joins the in-flight fetch for req.key or starts one. The
// fetch is detached from any single caller so that a caller leaving does
// not fail the others; its result is discarded when nobody waits for it.
func fetchShared[T any](ctx context.Context, r *Repository, req request[T]) (T, error) {
	ch := r.inflight.DoChan(req.key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if r.config.RequestTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, r.config.RequestTimeout)
			defer cancel()
		}

		logrus.WithField("query", req.key).Debug("Fetching from GitHub")
		payload, err := req.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		persist(fetchCtx, r, req, payload)
		return payload, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// persist stores the fetched repositories and the query snapshot. Failures
// only cost offline availability and are logged.
func persist[T any](ctx context.Context, r *Repository, req request[T], payload T) {
	log := logrus.WithField("query", req.key)

	if req.repositories != nil {
		if err := r.store.SaveRepositories(ctx, req.repositories(payload)); err != nil {
			log.WithError(err).Warn("Failed to store repositories")
		}
	}
	if r.config.CacheTTL > 0 {
		if err := r.store.SaveSnapshot(ctx, req.key, payload); err != nil {
			log.WithError(err).Warn("Failed to store snapshot")
		}
	}
}

func loadSnapshot[T any](ctx context.Context, r *Repository, key string) (T, bool) {
	var cached T
	if r.config.CacheTTL <= 0 {
		return cached, false
	}
	ok, err := r.store.LoadSnapshot(ctx, key, r.config.CacheTTL, &cached)
	if err != nil {
		logrus.WithError(err).WithField("query", key).Warn("Failed to load snapshot")
		return cached, false
	}
	return cached, ok
}

// favorites reads the favorite set. A store failure leaves every flag false.
func (r *Repository) favorites(ctx context.Context) models.FavoriteSet {
	set, err := r.store.FavoriteIDs(ctx)
	if err != nil {
		if ctx.Err() == nil {
			failure := resource.NewFailure(resource.LocalStoreFailure, "failed to read favorites", err)
			logrus.WithError(failure).Warn("Favorite flags unavailable, defaulting to false")
		}
		return models.FavoriteSet{}
	}
	return set
}

func mergeFavorites(repos []models.Repository, favorites models.FavoriteSet) []models.Repository {
	merged := make([]models.Repository, len(repos))
	for i, repo := range repos {
		merged[i] = repo.WithFavorite(favorites.Has(repo.ID))
	}
	return merged
}
