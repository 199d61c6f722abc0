package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/JunaidJamshid123/Gitly-sub001/config"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen/favorites"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen/repodetail"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen/search"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen/trending"
	"github.com/JunaidJamshid123/Gitly-sub001/internal/screen/userdetail"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "gitly",
		Short:        "Search GitHub and keep favorite repositories offline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path to configuration file")

	root.AddCommand(
		initCmd(&configPath),
		searchCmd(&configPath),
		repoCmd(&configPath),
		userCmd(&configPath),
		trendingCmd(&configPath),
		favoriteCmd(&configPath),
		favoritesCmd(&configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func initCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file if it doesn't exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateDefaultConfig(*configPath); err != nil {
				return fmt.Errorf("failed to create default configuration: %w", err)
			}
			logrus.Infof("Created default configuration at %s", *configPath)
			fmt.Printf("GitHub token can be provided via the %s environment variable\n", config.EnvGithubToken)
			return nil
		},
	}
}

func searchCmd(configPath *string) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search repositories or users",
	}
	cmd.PersistentFlags().IntVar(&page, "page", 1, "Result page")

	run := func(mode search.Mode) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			screen := search.New(a.repo, a.engineConfig("search"))
			defer screen.Close()
			go printEvents(screen.Events())

			screen.OnAction(search.QueryChanged{Query: args[0]})
			screen.OnAction(search.SwitchMode{Mode: mode})
			screen.OnAction(search.SubmitSearch{})

			settled := func(s search.State) bool {
				if s.Mode == search.Users {
					return s.Submitted != "" && s.Users.IsSettled()
				}
				return s.Submitted != "" && s.Repositories.IsSettled()
			}

			state, err := await(ctx, screen, settled)
			for err == nil && state.Page < page && search.HasNextPage(state) {
				before := state.Page
				screen.OnAction(search.NextPage{})
				state, err = await(ctx, screen, func(s search.State) bool {
					return settled(s) && s.Page > before
				})
			}
			if err != nil {
				return err
			}

			if mode == search.Users {
				return render(state.Users, func(result models.SearchResult[models.User]) {
					printSearchSummary(state.Page, result.TotalCount, result.IncompleteResults)
					printUsers(result.Items)
				})
			}
			return render(state.Repositories, func(result models.SearchResult[models.Repository]) {
				printSearchSummary(state.Page, result.TotalCount, result.IncompleteResults)
				printRepositories(result.Items)
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "repos [query]",
			Short: "Search repositories",
			Args:  cobra.ExactArgs(1),
			RunE:  run(search.Repositories),
		},
		&cobra.Command{
			Use:   "users [query]",
			Short: "Search users",
			Args:  cobra.ExactArgs(1),
			RunE:  run(search.Users),
		},
	)
	return cmd
}

func repoCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "repo [owner/name]",
		Short: "Show a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := models.ParseFullName(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			screen := repodetail.New(a.repo, a.engineConfig("repository"))
			defer screen.Close()
			go printEvents(screen.Events())

			screen.OnAction(repodetail.LoadRepository{Owner: owner, Name: name})
			state, err := await(ctx, screen, func(s repodetail.State) bool { return s.Repository.IsSettled() })
			if err != nil {
				return err
			}
			return render(state.Repository, printRepository)
		},
	}
}

func userCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "user [login]",
		Short: "Show a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			screen := userdetail.New(a.repo, a.engineConfig("user"))
			defer screen.Close()
			go printEvents(screen.Events())

			screen.OnAction(userdetail.LoadUser{Login: args[0]})
			state, err := await(ctx, screen, func(s userdetail.State) bool { return s.User.IsSettled() })
			if err != nil {
				return err
			}
			return render(state.User, printUser)
		},
	}
}

func trendingCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "trending",
		Short: "List the most followed accounts created during the last year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			screen := trending.New(a.repo, a.engineConfig("trending"))
			defer screen.Close()
			go printEvents(screen.Events())

			screen.OnAction(trending.LoadTrending{})
			state, err := await(ctx, screen, func(s trending.State) bool { return s.Users.IsSettled() })
			if err != nil {
				return err
			}
			return render(state.Users, printUsers)
		},
	}
}

func favoriteCmd(configPath *string) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "favorite [owner/name]",
		Short: "Mark a repository as favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := models.ParseFullName(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			screen := repodetail.New(a.repo, a.engineConfig("repository"))
			defer screen.Close()

			screen.OnAction(repodetail.LoadRepository{Owner: owner, Name: name})
			state, err := await(ctx, screen, func(s repodetail.State) bool { return s.Repository.IsSettled() })
			if err != nil {
				return err
			}
			repo, ok := state.Repository.Data()
			if !ok {
				return state.Repository.Failure()
			}

			want := !remove
			stored, err := a.db.IsFavorite(ctx, repo.ID)
			if err != nil {
				return err
			}
			if stored == want {
				fmt.Printf("%s is already %s\n", repo.FullName, favoriteLabel(want))
				return nil
			}

			screen.OnAction(repodetail.ToggleFavorite{})
			select {
			case event := <-screen.Events():
				msg, ok := event.(engine.ShowMessage)
				if !ok {
					return fmt.Errorf("unexpected event %s", event.EventType())
				}
				if msg.Retry {
					return errors.New(msg.Text)
				}
			case <-ctx.Done():
				return ctx.Err()
			}
			fmt.Printf("%s is now %s\n", repo.FullName, favoriteLabel(want))
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the repository from favorites")
	return cmd
}

func favoritesCmd(configPath *string) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List favorite repositories (offline)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			screen := favorites.New(a.repo, a.engineConfig("favorites"))
			defer screen.Close()
			go printEvents(screen.Events())

			screen.OnAction(favorites.ObserveFavorites{})
			if !watch {
				state, err := await(ctx, screen, func(s favorites.State) bool { return s.Repositories.IsTerminal() })
				if err != nil {
					return err
				}
				return render(state.Repositories, printRepositories)
			}

			// Print every change until interrupted
			for state := range screen.Watch(ctx) {
				if repos, ok := state.Repositories.Data(); ok {
					printRepositories(repos)
					fmt.Println()
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep printing the list as it changes")
	return cmd
}

// render prints a successful resource or returns its failure
func render[T any](res resource.Resource[T], show func(T)) error {
	return resource.Fold(res,
		func() error { return fmt.Errorf("no result") },
		func(data T) error {
			show(data)
			return nil
		},
		func(failure *resource.Failure) error { return failure },
	)
}

func favoriteLabel(favorite bool) string {
	if favorite {
		return "a favorite"
	}
	return "not a favorite"
}
