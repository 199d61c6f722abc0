package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const (
	// DefaultPerPage is the page size used for search requests
	DefaultPerPage = 30
	// DefaultTimeout bounds a single HTTP round trip
	DefaultTimeout = 30 * time.Second
)

// GitHubClient represents a client for the GitHub API. Search and detail
// lookups go through the REST API; trending users prefer GraphQL when a
// token is available.
type GitHubClient struct {
	client  *github.Client
	graphql *GraphQLClient
	perPage int
	now     func() time.Time
}

// ClientOption customizes a GitHubClient
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL    string
	graphqlURL string
	perPage    int
	timeout    time.Duration
}

// WithBaseURL points the REST client at a different API root
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) { o.baseURL = baseURL }
}

// WithGraphQLURL points the GraphQL client at a different endpoint
func WithGraphQLURL(graphqlURL string) ClientOption {
	return func(o *clientOptions) { o.graphqlURL = graphqlURL }
}

// WithPerPage sets the page size for search requests
func WithPerPage(perPage int) ClientOption {
	return func(o *clientOptions) { o.perPage = perPage }
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = timeout }
}

// NewGitHubClient creates a new GitHub API client. The token is optional;
// without it requests are anonymous and trending users fall back to REST.
func NewGitHubClient(token string, opts ...ClientOption) (*GitHubClient, error) {
	o := clientOptions{perPage: DefaultPerPage, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.perPage < 1 || o.perPage > 100 {
		o.perPage = DefaultPerPage
	}

	var tc *http.Client
	if token != "" {
		// Create an authenticated client if a token is provided
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc = oauth2.NewClient(context.Background(), ts)
	} else {
		tc = &http.Client{}
	}
	tc.Timeout = o.timeout

	client := github.NewClient(tc)
	if o.baseURL != "" {
		baseURL := o.baseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse base URL: %w", err)
		}
		client.BaseURL = u
	}

	c := &GitHubClient{
		client:  client,
		perPage: o.perPage,
		now:     time.Now,
	}
	if token != "" {
		c.graphql = newGraphQLClient(tc, o.graphqlURL)
	}
	return c, nil
}

// SearchRepositories runs a repository search and returns one page of results
func (c *GitHubClient) SearchRepositories(ctx context.Context, query string, page int) (*github.RepositoriesSearchResult, error) {
	result, _, err := c.client.Search.Repositories(ctx, query, c.searchOptions(page, "", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to search repositories: %w", err)
	}
	return result, nil
}

// SearchUsers runs a user search and returns one page of results
func (c *GitHubClient) SearchUsers(ctx context.Context, query string, page int) (*github.UsersSearchResult, error) {
	result, _, err := c.client.Search.Users(ctx, query, c.searchOptions(page, "", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return result, nil
}

// GetRepository gets a repository by owner and name
func (c *GitHubClient) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	repo, _, err := c.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	return repo, nil
}

// GetUser gets a user profile by login
func (c *GitHubClient) GetUser(ctx context.Context, username string) (*github.User, error) {
	user, _, err := c.client.Users.Get(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// TrendingUsers returns the most followed accounts created during the last
// year, most followed first.
func (c *GitHubClient) TrendingUsers(ctx context.Context) ([]*github.User, error) {
	query := TrendingQuery(c.now())
	if c.graphql != nil {
		return c.graphql.SearchUsers(ctx, query, c.perPage)
	}

	result, _, err := c.client.Search.Users(ctx, query, c.searchOptions(1, "followers", "desc"))
	if err != nil {
		return nil, fmt.Errorf("failed to list trending users: %w", err)
	}
	return result.Users, nil
}

// TrendingQuery builds the search query behind TrendingUsers
func TrendingQuery(now time.Time) string {
	since := now.AddDate(-1, 0, 0).Format("2006-01-02")
	return fmt.Sprintf("type:user created:>%s followers:>100 sort:followers-desc", since)
}

func (c *GitHubClient) searchOptions(page int, sort, order string) *github.SearchOptions {
	if page < 1 {
		page = 1
	}
	return &github.SearchOptions{
		Sort:  sort,
		Order: order,
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: c.perPage,
		},
	}
}
