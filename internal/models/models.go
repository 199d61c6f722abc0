package models

import (
	"fmt"
	"strings"
	"time"
)

// GhostOwner stands in for a repository owner the API reported as null.
// GitHub itself attributes content of deleted accounts to "ghost".
var GhostOwner = RepositoryOwner{
	Login: "ghost",
	ID:    0,
	Type:  "User",
}

// RepositoryOwner describes the account that owns a repository
type RepositoryOwner struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type"`
}

// Repository represents a GitHub repository
type Repository struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	FullName      string          `json:"full_name"`
	Owner         RepositoryOwner `json:"owner"`
	Description   string          `json:"description"`
	Language      string          `json:"language"`
	HTMLURL       string          `json:"html_url"`
	DefaultBranch string          `json:"default_branch"`
	License       string          `json:"license"`
	Stars         int             `json:"stars"`
	Forks         int             `json:"forks"`
	Watchers      int             `json:"watchers"`
	OpenIssues    int             `json:"open_issues"`
	Topics        []string        `json:"topics"`
	IsFork        bool            `json:"is_fork"`
	IsArchived    bool            `json:"is_archived"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	PushedAt      time.Time       `json:"pushed_at"`

	// IsFavorite comes from the local favorite store, never from the API.
	IsFavorite bool `json:"-"`
}

// WithFavorite returns a copy of the repository with the favorite flag set
func (r Repository) WithFavorite(favorite bool) Repository {
	r.IsFavorite = favorite
	return r
}

// User represents a GitHub user
type User struct {
	ID              int64     `json:"id"`
	Login           string    `json:"login"`
	AvatarURL       string    `json:"avatar_url"`
	HTMLURL         string    `json:"html_url"`
	Type            string    `json:"type"`
	Name            string    `json:"name"`
	Bio             string    `json:"bio"`
	Company         string    `json:"company"`
	Location        string    `json:"location"`
	Blog            string    `json:"blog"`
	Email           string    `json:"email"`
	TwitterUsername string    `json:"twitter_username"`
	Followers       int       `json:"followers"`
	Following       int       `json:"following"`
	PublicRepos     int       `json:"public_repos"`
	PublicGists     int       `json:"public_gists"`
	CreatedAt       time.Time `json:"created_at"`
}

// DisplayName returns the profile name, falling back to the login
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Login
}

// SearchResult is one page of a GitHub search. TotalCount may exceed
// len(Items); Items keep the upstream relevance order.
type SearchResult[T any] struct {
	TotalCount        int  `json:"total_count"`
	IncompleteResults bool `json:"incomplete_results"`
	Items             []T  `json:"items"`
}

// FavoriteSet is the set of repository IDs marked as favorite
type FavoriteSet map[int64]struct{}

// NewFavoriteSet builds a set from the given IDs
func NewFavoriteSet(ids ...int64) FavoriteSet {
	set := make(FavoriteSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is in the set
func (s FavoriteSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Equal reports whether both sets hold the same IDs
func (s FavoriteSet) Equal(other FavoriteSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// ParseFullName parses a repository string in the format "owner/name"
func ParseFullName(fullName string) (string, string, error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", fullName)
	}
	return parts[0], parts[1], nil
}
