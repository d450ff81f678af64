package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

// Upstream location of CLI releases.
const (
	ReleaseOwner = "QualiSystems"
	ReleaseRepo  = "colony-cli"
)

// ReleaseRepository looks up published CLI releases.
type ReleaseRepository interface {
	LatestRelease(ctx context.Context) (string, error)
}

type githubReleaseRepository struct {
	client *github.Client
	owner  string
	repo   string
}

// NewReleaseRepository queries GitHub anonymously, or with token when one is given.
func NewReleaseRepository(token string, httpClient *http.Client) ReleaseRepository {
	if token = strings.TrimSpace(token); token != "" {
		ctx := context.Background()
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &githubReleaseRepository{
		client: github.NewClient(httpClient),
		owner:  ReleaseOwner,
		repo:   ReleaseRepo,
	}
}

// NewReleaseRepositoryWithClient uses an already configured go-github client.
func NewReleaseRepositoryWithClient(client *github.Client, owner, repo string) ReleaseRepository {
	return &githubReleaseRepository{client: client, owner: owner, repo: repo}
}

// LatestRelease returns the tag of the latest published release.
func (r *githubReleaseRepository) LatestRelease(ctx context.Context) (string, error) {
	release, _, err := r.client.Repositories.GetLatestRelease(ctx, r.owner, r.repo)
	if err != nil {
		return "", fmt.Errorf("failed to get latest release of %s/%s: %w", r.owner, r.repo, err)
	}
	return release.GetTagName(), nil
}
