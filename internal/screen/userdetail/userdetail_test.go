package userdetail_test

import (
	"context"
	"testing"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen/screentest"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen/userdetail"
)

func TestLoadUser(t *testing.T) {
	attempts := 0
	source := &screentest.Source{
		GetUserDetailsFunc: func(ctx context.Context, username string) <-chan resource.Resource[models.User] {
			attempts++
			if attempts == 1 {
				return screentest.Values(ctx,
					resource.Loading[models.User](),
					resource.Fail[models.User](resource.NewFailure(resource.NetworkUnavailable, "network unavailable", nil)),
				)
			}
			return screentest.Values(ctx,
				resource.Loading[models.User](),
				resource.Success(models.User{ID: 1, Login: username, Name: "The Octocat"}),
			)
		},
	}
	e := userdetail.New(source, engine.Config{})
	defer e.Close()

	e.OnAction(userdetail.LoadUser{Login: "octocat"})

	msg, ok := screentest.NextEvent(t, e.Events()).(engine.ShowMessage)
	if !ok || !msg.Retry {
		t.Fatalf("event = %+v, want a retryable message", msg)
	}

	e.OnAction(userdetail.Retry{})
	state := screentest.WaitFor(t, e, func(s userdetail.State) bool {
		return s.User.State() == resource.StateSuccess
	})
	user, _ := state.User.Data()
	if state.Login != "octocat" || user.DisplayName() != "The Octocat" {
		t.Errorf("state = %+v", state)
	}
	screentest.NoEvent(t, e.Events())
}
