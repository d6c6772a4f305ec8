package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/configpanel/internal/domain/model"
)

func newTestSource(t *testing.T, handler http.Handler) *RevisionSource {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	// go-github requires the base URL to end in a slash.
	src, err := NewRevisionSourceWithHTTPClient(srv.Client(), srv.URL+"/")
	require.NoError(t, err)
	return src
}

func gitMaterial(url, branch string) model.Material {
	return model.Material{
		Type: model.MaterialTypeGit,
		Attributes: model.GitAttributes{
			AutoUpdate: true,
			URL:        url,
			Branch:     branch,
		},
	}
}

func TestRevisionSource_LatestRevision(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/app/branches/main", r.URL.Path)
		fmt.Fprint(w, `{"name":"main","commit":{"sha":"abc123def456"}}`)
	}))

	sha, err := src.LatestRevision(context.Background(), gitMaterial("https://github.com/org/app.git", "main"))
	require.NoError(t, err)
	assert.Equal(t, "abc123def456", sha)
}

func TestRevisionSource_LatestRevision_DefaultBranch(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/app/branches/master", r.URL.Path)
		fmt.Fprint(w, `{"name":"master","commit":{"sha":"feedface"}}`)
	}))

	// Empty branch falls back to master.
	sha, err := src.LatestRevision(context.Background(), gitMaterial("https://github.com/org/app", ""))
	require.NoError(t, err)
	assert.Equal(t, "feedface", sha)
}

func TestRevisionSource_LatestRevision_BranchNotFound(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Branch not found"}`)
	}))

	_, err := src.LatestRevision(context.Background(), gitMaterial("https://github.com/org/app.git", "gone"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get branch org/app@gone")
}

func TestRevisionSource_Supports(t *testing.T) {
	src := NewRevisionSource("")

	tests := []struct {
		name     string
		material model.Material
		want     bool
	}{
		{
			name:     "github https url",
			material: gitMaterial("https://github.com/org/app.git", "main"),
			want:     true,
		},
		{
			name:     "github ssh url",
			material: gitMaterial("git@github.com:org/app.git", "main"),
			want:     true,
		},
		{
			name:     "non-github host",
			material: gitMaterial("https://git.example.com/org/app.git", "main"),
			want:     false,
		},
		{
			name: "non-git material",
			material: model.Material{
				Type:       model.MaterialTypeHg,
				Attributes: model.HgAttributes{URL: "https://github.com/org/app"},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, src.Supports(tt.material))
		})
	}
}

func TestSplitGitHubURL(t *testing.T) {
	tests := []struct {
		raw       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{raw: "https://github.com/org/app", wantOwner: "org", wantRepo: "app"},
		{raw: "https://github.com/org/app.git", wantOwner: "org", wantRepo: "app"},
		{raw: "https://www.github.com/org/app", wantOwner: "org", wantRepo: "app"},
		{raw: "git@github.com:org/app.git", wantOwner: "org", wantRepo: "app"},
		{raw: "https://github.com/org/app/", wantOwner: "org", wantRepo: "app"},
		{raw: "https://gitlab.com/org/app", wantErr: true},
		{raw: "https://github.com/org", wantErr: true},
		{raw: "https://github.com/org/app/extra", wantErr: true},
		{raw: "not a url at all ://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			owner, repo, err := splitGitHubURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}
