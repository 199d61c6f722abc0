package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
)

const dateFormat = "2006-01-02"

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printSearchSummary(page, total int, incomplete bool) {
	fmt.Printf("Page %d of %d results", page, total)
	if incomplete {
		fmt.Print(" (incomplete)")
	}
	fmt.Println()
}

func printRepositories(repos []models.Repository) {
	if len(repos) == 0 {
		fmt.Println("No repositories")
		return
	}

	w := newTable()
	fmt.Fprintln(w, "\tREPOSITORY\tSTARS\tLANGUAGE\tDESCRIPTION")
	for _, repo := range repos {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			favoriteMark(repo.IsFavorite), repo.FullName, repo.Stars, repo.Language, truncate(repo.Description, 60))
	}
	w.Flush()
}

func printRepository(repo models.Repository) {
	w := newTable()
	fmt.Fprintf(w, "Repository:\t%s %s\n", repo.FullName, favoriteMark(repo.IsFavorite))
	fmt.Fprintf(w, "Description:\t%s\n", repo.Description)
	fmt.Fprintf(w, "URL:\t%s\n", repo.HTMLURL)
	fmt.Fprintf(w, "Language:\t%s\n", repo.Language)
	fmt.Fprintf(w, "License:\t%s\n", repo.License)
	fmt.Fprintf(w, "Stars / Forks / Watchers:\t%d / %d / %d\n", repo.Stars, repo.Forks, repo.Watchers)
	fmt.Fprintf(w, "Open issues:\t%d\n", repo.OpenIssues)
	if len(repo.Topics) > 0 {
		fmt.Fprintf(w, "Topics:\t%s\n", strings.Join(repo.Topics, ", "))
	}
	if repo.IsArchived {
		fmt.Fprintf(w, "Archived:\tyes\n")
	}
	if !repo.PushedAt.IsZero() {
		fmt.Fprintf(w, "Last push:\t%s\n", repo.PushedAt.Format(dateFormat))
	}
	w.Flush()
}

func printUsers(users []models.User) {
	if len(users) == 0 {
		fmt.Println("No users")
		return
	}

	w := newTable()
	fmt.Fprintln(w, "LOGIN\tNAME\tFOLLOWERS\tTYPE")
	for _, user := range users {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", user.Login, user.DisplayName(), user.Followers, user.Type)
	}
	w.Flush()
}

func printUser(user models.User) {
	w := newTable()
	fmt.Fprintf(w, "Login:\t%s\n", user.Login)
	fmt.Fprintf(w, "Name:\t%s\n", user.DisplayName())
	fmt.Fprintf(w, "URL:\t%s\n", user.HTMLURL)
	for _, field := range []struct{ label, value string }{
		{"Bio", user.Bio},
		{"Company", user.Company},
		{"Location", user.Location},
		{"Blog", user.Blog},
		{"Email", user.Email},
		{"Twitter", user.TwitterUsername},
	} {
		if field.value != "" {
			fmt.Fprintf(w, "%s:\t%s\n", field.label, field.value)
		}
	}
	fmt.Fprintf(w, "Followers / Following:\t%d / %d\n", user.Followers, user.Following)
	fmt.Fprintf(w, "Public repos / gists:\t%d / %d\n", user.PublicRepos, user.PublicGists)
	if !user.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Joined:\t%s\n", user.CreatedAt.Format(dateFormat))
	}
	w.Flush()
}

func favoriteMark(favorite bool) string {
	if favorite {
		return "*"
	}
	return ""
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
