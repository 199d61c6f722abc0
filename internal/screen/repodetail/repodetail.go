// Package repodetail implements the repository detail screen
package repodetail

import (
	"context"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen"
)

// State is the repository detail screen state
type State struct {
	Owner      string
	Name       string
	Repository resource.Resource[models.Repository]
}

// Action is anything the repository detail screen reduces
type Action interface {
	repoDetailAction()
}

// LoadRepository opens the repository owner/name
type LoadRepository struct {
	Owner string
	Name  string
}

// Retry reloads the current repository
type Retry struct{}

// ToggleFavorite flips the favorite flag of the loaded repository
type ToggleFavorite struct{}

// OpenOwner navigates to the owner of the loaded repository
type OpenOwner struct{}

type repositoryLoaded struct {
	Result resource.Resource[models.Repository]
}

type favoriteChanged struct {
	Favorite bool
	Err      error
}

func (LoadRepository) repoDetailAction()   {}
func (Retry) repoDetailAction()            {}
func (ToggleFavorite) repoDetailAction()   {}
func (OpenOwner) repoDetailAction()        {}
func (repositoryLoaded) repoDetailAction() {}
func (favoriteChanged) repoDetailAction()  {}

// New starts a repository detail screen
func New(source screen.Source, config engine.Config) *engine.Engine[State, Action] {
	if config.Name == "" {
		config.Name = "repository"
	}
	return engine.New(State{}, Reducer(source), config)
}

// Reducer returns the repository detail reducer
func Reducer(source screen.Source) engine.Reducer[State, Action] {
	return func(state State, action Action) engine.Transition[State, Action] {
		switch a := action.(type) {
		case LoadRepository:
			state.Owner, state.Name = a.Owner, a.Name
			return load(source, state)

		case Retry:
			if state.Owner == "" {
				break
			}
			return load(source, state)

		case ToggleFavorite:
			repo, ok := state.Repository.Data()
			if !ok {
				break
			}
			return engine.Transition[State, Action]{
				State: state,
				Effects: []engine.Effect[Action]{{
					Run: screen.SetFavorite(source, repo.ID, !repo.IsFavorite, func(favorite bool, err error) Action {
						return favoriteChanged{Favorite: favorite, Err: err}
					}),
				}},
			}

		case OpenOwner:
			repo, ok := state.Repository.Data()
			if !ok || repo.Owner == models.GhostOwner {
				break
			}
			return engine.Transition[State, Action]{
				State:  state,
				Events: []engine.Event{engine.NewNavigateTo(screen.UserTarget(repo.Owner.Login))},
			}

		case repositoryLoaded:
			state.Repository = a.Result
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

func load(source screen.Source, state State) engine.Transition[State, Action] {
	owner, name := state.Owner, state.Name
	state.Repository = resource.Loading[models.Repository]()

	return engine.Transition[State, Action]{
		State: state,
		Effects: []engine.Effect[Action]{{
			Key: "repository",
			Run: screen.Forward(
				func(ctx context.Context) <-chan resource.Resource[models.Repository] {
					return source.GetRepositoryDetails(ctx, owner, name)
				},
				func(res resource.Resource[models.Repository]) Action {
					return repositoryLoaded{Result: res}
				},
			),
		}},
	}
}
