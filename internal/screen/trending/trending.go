// Package trending implements the home screen listing trending users
package trending

import (
	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen"
)

// State is the trending screen state
type State struct {
	Users resource.Resource[[]models.User]
}

// Action is anything the trending screen reduces
type Action interface {
	trendingAction()
}

type LoadTrending struct{}

type Retry struct{}

// SelectUser navigates to a listed user
type SelectUser struct{ User models.User }

type usersLoaded struct {
	Result resource.Resource[[]models.User]
}

func (LoadTrending) trendingAction() {}
func (Retry) trendingAction()        {}
func (SelectUser) trendingAction()   {}
func (usersLoaded) trendingAction()  {}

// New starts a trending screen
func New(source screen.Source, config engine.Config) *engine.Engine[State, Action] {
	if config.Name == "" {
		config.Name = "trending"
	}
	return engine.New(State{}, Reducer(source), config)
}

// Reducer returns the trending screen reducer
func Reducer(source screen.Source) engine.Reducer[State, Action] {
	return func(state State, action Action) engine.Transition[State, Action] {
		switch a := action.(type) {
		case LoadTrending, Retry:
			state.Users = resource.Loading[[]models.User]()
			return engine.Transition[State, Action]{
				State: state,
				Effects: []engine.Effect[Action]{{
					Key: "trending",
					Run: screen.Forward(source.GetTrendingUsers, func(res resource.Resource[[]models.User]) Action {
						return usersLoaded{Result: res}
					}),
				}},
			}
		case SelectUser:
			return engine.Transition[State, Action]{
				State:  state,
				Events: []engine.Event{engine.NewNavigateTo(screen.UserTarget(a.User.Login))},
			}
		case usersLoaded:
			state.Users = a.Result
			return engine.Transition[State, Action]{State: state, Events: screen.FailureEvents(a.Result)}
		}
		return engine.Transition[State, Action]{State: state}
	}
}
