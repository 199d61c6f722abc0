package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/JunaidJamshid123/Gitly-sub001/config"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/api"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/db"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/repository"
	"github.com/sirupsen/logrus"
)

// app holds what every command needs
type app struct {
	cfg  *config.Config
	db   *db.DB
	repo *repository.Repository
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(level)

	if cfg.GitHubToken == "" {
		logrus.Warnf("No GitHub token set; requests are anonymous and rate limited (set %s)", config.EnvGithubToken)
	}

	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Initialize(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	pruned, err := database.PruneSnapshots(ctx, time.Duration(cfg.CacheTTL))
	if err != nil {
		logrus.WithError(err).Warn("Failed to prune cached queries")
	} else if pruned > 0 {
		logrus.Debugf("Pruned %d expired cached queries", pruned)
	}

	client, err := api.NewGitHubClient(cfg.GitHubToken,
		api.WithPerPage(cfg.PerPage),
		api.WithTimeout(time.Duration(cfg.RequestTimeout)),
	)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	repo := repository.New(client, database, repository.Config{
		CacheTTL:       time.Duration(cfg.CacheTTL),
		RequestTimeout: time.Duration(cfg.RequestTimeout),
	})

	return &app{cfg: cfg, db: database, repo: repo}, nil
}

func (a *app) engineConfig(name string) engine.Config {
	return engine.Config{Name: name, EventBuffer: a.cfg.EventBuffer}
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close database")
	}
}

// await blocks until the screen reaches a state accepted by done
func await[S, A any](ctx context.Context, e *engine.Engine[S, A], done func(S) bool) (S, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for state := range e.Watch(ctx) {
		if done(state) {
			return state, nil
		}
	}
	var zero S
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, fmt.Errorf("screen closed")
}

// printEvents reports one-shot screen events until the screen closes
func printEvents(events <-chan engine.Event) {
	for event := range events {
		switch e := event.(type) {
		case engine.ShowMessage:
			if e.Retry {
				logrus.Warn(e.Text)
			} else {
				logrus.Info(e.Text)
			}
		case engine.NavigateTo:
			logrus.Debugf("Navigate to %s", e.Target)
		}
	}
}
