// Package userdetail implements the user profile screen
package userdetail

import (
	"context"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen"
)

// State is the user profile screen state
type State struct {
	Login string
	User  resource.Resource[models.User]
}

// Action is anything the user profile screen reduces
type Action interface {
	userDetailAction()
}

// LoadUser opens the profile of Login
type LoadUser struct{ Login string }

// Retry reloads the current profile
type Retry struct{}

type userLoaded struct {
	Result resource.Resource[models.User]
}

func (LoadUser) userDetailAction()   {}
func (Retry) userDetailAction()      {}
func (userLoaded) userDetailAction() {}

// New starts a user profile screen
func New(source screen.Source, config engine.Config) *engine.Engine[State, Action] {
	if config.Name == "" {
		config.Name = "user"
	}
	return engine.New(State{}, Reducer(source), config)
}

// Reducer returns the user profile reducer
func Reducer(source screen.Source) engine.Reducer[State, Action] {
	return func(state State, action Action) engine.Transition[State, Action] {
		switch a := action.(type) {
		case LoadUser:
			state.Login = a.Login
			return load(source, state)
		case Retry:
			if state.Login != "" {
				return load(source, state)
			}
		case userLoaded:
			state.User = a.Result
			return engine.Transition[State, Action]{State: state, Events: screen.FailureEvents(a.Result)}
		}
		return engine.Transition[State, Action]{State: state}
	}
}

func load(source screen.Source, state State) engine.Transition[State, Action] {
	login := state.Login
	state.User = resource.Loading[models.User]()

	return engine.Transition[State, Action]{
		State: state,
		Effects: []engine.Effect[Action]{{
			Key: "user",
			Run: screen.Forward(
				func(ctx context.Context) <-chan resource.Resource[models.User] {
					return source.GetUserDetails(ctx, login)
				},
				func(res resource.Resource[models.User]) Action {
					return userLoaded{Result: res}
				},
			),
		}},
	}
}
