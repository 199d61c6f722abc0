// Package search implements the search screen: repositories or users
// matching a query, one page at a time.
package search

import (
	"context"
	"strings"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen"
)

// Mode selects what the screen searches for
type Mode int

const (
	Repositories Mode = iota
	Users
)

func (m Mode) String() string {
	if m == Users {
		return "users"
	}
	return "repositories"
}

// State is the search screen state
type State struct {
	// Query is the text being edited; Submitted is the query last searched.
	Query     string
	Submitted string
	Mode      Mode
	Page      int

	Repositories resource.Resource[models.SearchResult[models.Repository]]
	Users        resource.Resource[models.SearchResult[models.User]]
}

// Initial returns the state of a screen with no search yet
func Initial() State {
	return State{
		Page:         1,
		Repositories: resource.Success(models.SearchResult[models.Repository]{Items: []models.Repository{}}),
		Users:        resource.Success(models.SearchResult[models.User]{Items: []models.User{}}),
	}
}

// Action is anything the search screen reduces
type Action interface {
	searchAction()
}

// QueryChanged updates the query text without searching
type QueryChanged struct{ Query string }

// SubmitSearch searches the current query from the first page
type SubmitSearch struct{}

// SwitchMode changes between repository and user search
type SwitchMode struct{ Mode Mode }

type NextPage struct{}

type PreviousPage struct{}

// Retry repeats the current search
type Retry struct{}

// ToggleFavorite flips the favorite flag of a listed repository
type ToggleFavorite struct{ Repository models.Repository }

type SelectRepository struct{ Repository models.Repository }

type SelectUser struct{ User models.User }

type repositoriesLoaded struct {
	Result resource.Resource[models.SearchResult[models.Repository]]
}

type usersLoaded struct {
	Result resource.Resource[models.SearchResult[models.User]]
}

type favoriteChanged struct {
	Favorite bool
	Err      error
}

func (QueryChanged) searchAction()       {}
func (SubmitSearch) searchAction()       {}
func (SwitchMode) searchAction()         {}
func (NextPage) searchAction()           {}
func (PreviousPage) searchAction()       {}
func (Retry) searchAction()              {}
func (ToggleFavorite) searchAction()     {}
func (SelectRepository) searchAction()   {}
func (SelectUser) searchAction()         {}
func (repositoriesLoaded) searchAction() {}
func (usersLoaded) searchAction()        {}
func (favoriteChanged) searchAction()    {}

// New starts a search screen
func New(source screen.Source, config engine.Config) *engine.Engine[State, Action] {
	if config.Name == "" {
		config.Name = "search"
	}
	return engine.New(Initial(), Reducer(source), config)
}

// Reducer returns the search screen reducer. Source is only captured by
// the effects it returns.
func Reducer(source screen.Source) engine.Reducer[State, Action] {
	return func(state State, action Action) engine.Transition[State, Action] {
		switch a := action.(type) {
		case QueryChanged:
			state.Query = a.Query
			return engine.Transition[State, Action]{State: state}

		case SubmitSearch:
			state.Submitted = strings.TrimSpace(state.Query)
			state.Page = 1
			return search(source, state)

		case SwitchMode:
			if a.Mode == state.Mode {
				return engine.Transition[State, Action]{State: state}
			}
			state.Mode = a.Mode
			state.Page = 1
			return search(source, state)

		case NextPage:
			if !HasNextPage(state) {
				return engine.Transition[State, Action]{State: state}
			}
			state.Page++
			return search(source, state)

		case PreviousPage:
			if state.Page <= 1 {
				return engine.Transition[State, Action]{State: state}
			}
			state.Page--
			return search(source, state)

		case Retry:
			return search(source, state)

		case ToggleFavorite:
			repo := a.Repository
			return engine.Transition[State, Action]{
				State: state,
				Effects: []engine.Effect[Action]{{
					Run: screen.SetFavorite(source, repo.ID, !repo.IsFavorite, func(favorite bool, err error) Action {
						return favoriteChanged{Favorite: favorite, Err: err}
					}),
				}},
			}

		case SelectRepository:
			return engine.Transition[State, Action]{
				State:  state,
				Events: []engine.Event{engine.NewNavigateTo(screen.RepositoryTarget(a.Repository.FullName))},
			}

		case SelectUser:
			return engine.Transition[State, Action]{
				State:  state,
				Events: []engine.Event{engine.NewNavigateTo(screen.UserTarget(a.User.Login))},
			}

		case repositoriesLoaded:
			state.Repositories = a.Result
			return engine.Transition[State, Action]{State: state, Events: screen.FailureEvents(a.Result)}

		case usersLoaded:
			state.Users = a.Result
			return engine.Transition[State, Action]{State: state, Events: screen.FailureEvents(a.Result)}

		case favoriteChanged:
			return engine.Transition[State, Action]{
				State:  state,
				Events: []engine.Event{screen.FavoriteEvent(a.Favorite, a.Err)},
			}
		}
		return engine.Transition[State, Action]{State: state}
	}
}

// search starts the stream for the submitted query, page and mode. It
// replaces the stream of any earlier search.
func search(source screen.Source, state State) engine.Transition[State, Action] {
	query, page := state.Submitted, state.Page

	var run func(context.Context, func(Action))
	if state.Mode == Users {
		state.Users = resource.Loading[models.SearchResult[models.User]]()
		run = screen.Forward(
			func(ctx context.Context) <-chan resource.Resource[models.SearchResult[models.User]] {
				return source.SearchUsers(ctx, query, page)
			},
			func(res resource.Resource[models.SearchResult[models.User]]) Action {
				return usersLoaded{Result: res}
			},
		)
	} else {
		state.Repositories = resource.Loading[models.SearchResult[models.Repository]]()
		run = screen.Forward(
			func(ctx context.Context) <-chan resource.Resource[models.SearchResult[models.Repository]] {
				return source.SearchRepositories(ctx, query, page)
			},
			func(res resource.Resource[models.SearchResult[models.Repository]]) Action {
				return repositoriesLoaded{Result: res}
			},
		)
	}

	return engine.Transition[State, Action]{
		State:   state,
		Effects: []engine.Effect[Action]{{Key: "search", Run: run}},
	}
}

// HasNextPage reports whether the current result has more pages
func HasNextPage(state State) bool {
	if state.Submitted == "" {
		return false
	}
	if state.Mode == Users {
		result, ok := state.Users.Data()
		return ok && len(result.Items) > 0 && state.Page*len(result.Items) < result.TotalCount
	}
	result, ok := state.Repositories.Data()
	return ok && len(result.Items) > 0 && state.Page*len(result.Items) < result.TotalCount
}
