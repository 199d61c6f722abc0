package api

import (
	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	"github.com/google/go-github/v57/github"
)

// The converters below never fail. Absent API fields map to fixed defaults:
//
//	counts (*int)        -> 0, negative values clamp to 0
//	text (*string)       -> ""
//	flags (*bool)        -> false
//	timestamps           -> zero time.Time
//	topics, result items -> empty slice, never nil
//	owner (null)         -> models.GhostOwner
//
// List converters keep order and length; a nil element becomes a zero
// value rather than being skipped.

// ConvertOwner converts a GitHub repository owner to our model
func ConvertOwner(user *github.User) models.RepositoryOwner {
	if user == nil {
		return models.GhostOwner
	}

	return models.RepositoryOwner{
		Login:     user.GetLogin(),
		ID:        user.GetID(),
		AvatarURL: user.GetAvatarURL(),
		Type:      user.GetType(),
	}
}

// ConvertRepository converts a GitHub repository to our model
func ConvertRepository(repo *github.Repository) models.Repository {
	if repo == nil {
		return models.Repository{Owner: models.GhostOwner, Topics: []string{}}
	}

	license := repo.GetLicense().GetSPDXID()
	if license == "" {
		license = repo.GetLicense().GetName()
	}

	return models.Repository{
		ID:            repo.GetID(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Owner:         ConvertOwner(repo.Owner),
		Description:   repo.GetDescription(),
		Language:      repo.GetLanguage(),
		HTMLURL:       repo.GetHTMLURL(),
		DefaultBranch: repo.GetDefaultBranch(),
		License:       license,
		Stars:         nonNegative(repo.GetStargazersCount()),
		Forks:         nonNegative(repo.GetForksCount()),
		Watchers:      nonNegative(repo.GetWatchersCount()),
		OpenIssues:    nonNegative(repo.GetOpenIssuesCount()),
		Topics:        append([]string{}, repo.Topics...),
		IsFork:        repo.GetFork(),
		IsArchived:    repo.GetArchived(),
		CreatedAt:     repo.GetCreatedAt().Time,
		UpdatedAt:     repo.GetUpdatedAt().Time,
		PushedAt:      repo.GetPushedAt().Time,
	}
}

// ConvertRepositories converts a list of GitHub repositories
func ConvertRepositories(repos []*github.Repository) []models.Repository {
	result := make([]models.Repository, len(repos))
	for i, repo := range repos {
		result[i] = ConvertRepository(repo)
	}
	return result
}

// ConvertUser converts a GitHub user to our model
func ConvertUser(user *github.User) models.User {
	if user == nil {
		return models.User{}
	}

	return models.User{
		ID:              user.GetID(),
		Login:           user.GetLogin(),
		AvatarURL:       user.GetAvatarURL(),
		HTMLURL:         user.GetHTMLURL(),
		Type:            user.GetType(),
		Name:            user.GetName(),
		Bio:             user.GetBio(),
		Company:         user.GetCompany(),
		Location:        user.GetLocation(),
		Blog:            user.GetBlog(),
		Email:           user.GetEmail(),
		TwitterUsername: user.GetTwitterUsername(),
		Followers:       nonNegative(user.GetFollowers()),
		Following:       nonNegative(user.GetFollowing()),
		PublicRepos:     nonNegative(user.GetPublicRepos()),
		PublicGists:     nonNegative(user.GetPublicGists()),
		CreatedAt:       user.GetCreatedAt().Time,
	}
}

// ConvertUsers converts a list of GitHub users
func ConvertUsers(users []*github.User) []models.User {
	result := make([]models.User, len(users))
	for i, user := range users {
		result[i] = ConvertUser(user)
	}
	return result
}

// ConvertRepositorySearch converts a repository search page
func ConvertRepositorySearch(result *github.RepositoriesSearchResult) models.SearchResult[models.Repository] {
	if result == nil {
		return models.SearchResult[models.Repository]{Items: []models.Repository{}}
	}

	return models.SearchResult[models.Repository]{
		TotalCount:        nonNegative(result.GetTotal()),
		IncompleteResults: result.GetIncompleteResults(),
		Items:             ConvertRepositories(result.Repositories),
	}
}

// ConvertUserSearch converts a user search page
func ConvertUserSearch(result *github.UsersSearchResult) models.SearchResult[models.User] {
	if result == nil {
		return models.SearchResult[models.User]{Items: []models.User{}}
	}

	return models.SearchResult[models.User]{
		TotalCount:        nonNegative(result.GetTotal()),
		IncompleteResults: result.GetIncompleteResults(),
		Items:             ConvertUsers(result.Users),
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
