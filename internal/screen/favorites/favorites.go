// Package favorites implements the screen listing favorite repositories.
// It reads the local store only.
package favorites

import (
	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen"
)

// State is the favorites screen state
type State struct {
	Repositories resource.Resource[[]models.Repository]
}

// Action is anything the favorites screen reduces
type Action interface {
	favoritesAction()
}

// ObserveFavorites starts following the favorite list
type ObserveFavorites struct{}

// RemoveFavorite unmarks a repository
type RemoveFavorite struct{ ID int64 }

type SelectRepository struct{ Repository models.Repository }

type favoritesLoaded struct {
	Repositories []models.Repository
}

type favoriteRemoved struct {
	Err error
}

func (ObserveFavorites) favoritesAction() {}
func (RemoveFavorite) favoritesAction()   {}
func (SelectRepository) favoritesAction() {}
func (favoritesLoaded) favoritesAction()  {}
func (favoriteRemoved) favoritesAction()  {}

// New starts a favorites screen
func New(source screen.Source, config engine.Config) *engine.Engine[State, Action] {
	if config.Name == "" {
		config.Name = "favorites"
	}
	return engine.New(State{}, Reducer(source), config)
}

// Reducer returns the favorites screen reducer
func Reducer(source screen.Source) engine.Reducer[State, Action] {
	return func(state State, action Action) engine.Transition[State, Action] {
		switch a := action.(type) {
		case ObserveFavorites:
			if state.Repositories.IsTerminal() {
				// Already observing; the stream keeps the list current.
				break
			}
			return engine.Transition[State, Action]{
				State: state,
				Effects: []engine.Effect[Action]{{
					Key: "favorites",
					Run: screen.Forward(source.ObserveFavoriteRepositories, func(repos []models.Repository) Action {
						return favoritesLoaded{Repositories: repos}
					}),
				}},
			}

		case RemoveFavorite:
			return engine.Transition[State, Action]{
				State: state,
				Effects: []engine.Effect[Action]{{
					Run: screen.SetFavorite(source, a.ID, false, func(_ bool, err error) Action {
						return favoriteRemoved{Err: err}
					}),
				}},
			}

		case SelectRepository:
			return engine.Transition[State, Action]{
				State:  state,
				Events: []engine.Event{engine.NewNavigateTo(screen.RepositoryTarget(a.Repository.FullName))},
			}

		case favoritesLoaded:
			state.Repositories = resource.Success(a.Repositories)

		case favoriteRemoved:
			return engine.Transition[State, Action]{
				State:  state,
				Events: []engine.Event{screen.FavoriteEvent(false, a.Err)},
			}
		}
		return engine.Transition[State, Action]{State: state}
	}
}
