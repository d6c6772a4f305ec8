// Package github implements the RevisionSource port for git materials hosted
// on github.com, using the go-github library.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/configpanel/internal/domain/model"
	"github.com/ericfisherdev/configpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RevisionSource = (*RevisionSource)(nil)

// RevisionSource resolves the latest commit on a git material's branch via
// the GitHub REST API.
type RevisionSource struct {
	gh *gh.Client
}

// NewRevisionSource creates a RevisionSource with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client)
//
// token may be empty; unauthenticated requests work for public repositories
// at a lower rate limit.
func NewRevisionSource(token string) *RevisionSource {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &RevisionSource{gh: client}
}

// NewRevisionSourceWithHTTPClient creates a RevisionSource with a custom
// http.Client and base URL. This constructor is intended for testing,
// allowing injection of an httptest server.
func NewRevisionSourceWithHTTPClient(httpClient *http.Client, baseURL string) (*RevisionSource, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &RevisionSource{gh: client}, nil
}

// Supports reports whether the material is a git material whose URL points at
// github.com. Other SCM types are plugin territory and stay unparsed here.
func (s *RevisionSource) Supports(m model.Material) bool {
	attrs, ok := m.Attributes.(model.GitAttributes)
	if !ok {
		return false
	}

	_, _, err := splitGitHubURL(attrs.URL)
	return err == nil
}

// LatestRevision returns the SHA of the tip commit on the material's branch.
func (s *RevisionSource) LatestRevision(ctx context.Context, m model.Material) (string, error) {
	attrs, ok := m.Attributes.(model.GitAttributes)
	if !ok {
		return "", fmt.Errorf("material type %q: %w", m.Type, driven.ErrUnsupportedMaterial)
	}

	owner, repo, err := splitGitHubURL(attrs.URL)
	if err != nil {
		return "", fmt.Errorf("material url %q: %w", attrs.URL, driven.ErrUnsupportedMaterial)
	}

	branch := attrs.Branch
	if branch == "" {
		branch = model.DefaultGitBranch
	}

	b, _, err := s.gh.Repositories.GetBranch(ctx, owner, repo, branch, 0)
	if err != nil {
		return "", fmt.Errorf("get branch %s/%s@%s: %w", owner, repo, branch, err)
	}

	sha := b.GetCommit().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("branch %s/%s@%s has no commit", owner, repo, branch)
	}

	return sha, nil
}

// splitGitHubURL extracts owner and repo from a github.com clone URL.
// Accepts https://github.com/owner/repo(.git) and git@github.com:owner/repo(.git).
func splitGitHubURL(raw string) (owner, repo string, err error) {
	var path string

	switch {
	case strings.HasPrefix(raw, "git@github.com:"):
		path = strings.TrimPrefix(raw, "git@github.com:")
	default:
		u, parseErr := url.Parse(raw)
		if parseErr != nil {
			return "", "", fmt.Errorf("parse url %q: %w", raw, parseErr)
		}
		if u.Host != "github.com" && u.Host != "www.github.com" {
			return "", "", fmt.Errorf("host %q is not github.com", u.Host)
		}
		path = strings.TrimPrefix(u.Path, "/")
	}

	path = strings.TrimSuffix(path, ".git")
	path = strings.TrimSuffix(path, "/")

	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("url %q is not an owner/repo clone url", raw)
	}

	return parts[0], parts[1], nil
}
