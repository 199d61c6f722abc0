package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
)

// GraphQLClient represents a client for the GitHub GraphQL API
type GraphQLClient struct {
	client *githubv4.Client
}

// newGraphQLClient wraps an already authenticated HTTP client
func newGraphQLClient(httpClient *http.Client, endpoint string) *GraphQLClient {
	if endpoint != "" {
		return &GraphQLClient{client: githubv4.NewEnterpriseClient(endpoint, httpClient)}
	}
	return &GraphQLClient{client: githubv4.NewClient(httpClient)}
}

// userNode is the subset of the GraphQL User object shown in user lists
type userNode struct {
	DatabaseID githubv4.Int
	Login      githubv4.String
	Name       *githubv4.String
	AvatarURL  githubv4.String
	URL        githubv4.String
	Bio        *githubv4.String
	Company    *githubv4.String
	Location   *githubv4.String
	CreatedAt  githubv4.DateTime
	Followers  struct {
		TotalCount githubv4.Int
	}
	Following struct {
		TotalCount githubv4.Int
	}
	Repositories struct {
		TotalCount githubv4.Int
	} `graphql:"repositories(privacy: PUBLIC)"`
}

// SearchUsers runs a USER search and returns the matches as REST user
// objects, so both APIs feed the same converters.
func (c *GraphQLClient) SearchUsers(ctx context.Context, query string, first int) ([]*github.User, error) {
	var q struct {
		RateLimit struct {
			Limit     githubv4.Int
			Remaining githubv4.Int
		}
		Search struct {
			UserCount githubv4.Int
			Nodes     []struct {
				Typename githubv4.String `graphql:"__typename"`
				User     userNode        `graphql:"... on User"`
			}
		} `graphql:"search(query: $query, type: USER, first: $first)"`
	}

	variables := map[string]interface{}{
		"query": githubv4.String(query),
		"first": githubv4.Int(first),
	}

	if err := c.client.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	if remaining := int(q.RateLimit.Remaining); remaining < 100 {
		logrus.WithFields(logrus.Fields{
			"remaining": remaining,
			"limit":     int(q.RateLimit.Limit),
		}).Warn("GraphQL rate limit running low")
	}

	users := make([]*github.User, 0, len(q.Search.Nodes))
	for _, node := range q.Search.Nodes {
		// A USER search also matches organizations
		if node.Typename != "User" {
			continue
		}
		users = append(users, nodeToUser(node.User))
	}
	return users, nil
}

func nodeToUser(n userNode) *github.User {
	user := &github.User{
		ID:          github.Int64(int64(n.DatabaseID)),
		Login:       github.String(string(n.Login)),
		AvatarURL:   github.String(string(n.AvatarURL)),
		HTMLURL:     github.String(string(n.URL)),
		Type:        github.String("User"),
		Name:        optionalString(n.Name),
		Bio:         optionalString(n.Bio),
		Company:     optionalString(n.Company),
		Location:    optionalString(n.Location),
		Followers:   github.Int(int(n.Followers.TotalCount)),
		Following:   github.Int(int(n.Following.TotalCount)),
		PublicRepos: github.Int(int(n.Repositories.TotalCount)),
	}
	if !n.CreatedAt.IsZero() {
		user.CreatedAt = &github.Timestamp{Time: n.CreatedAt.Time}
	}
	return user
}

func optionalString(s *githubv4.String) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
