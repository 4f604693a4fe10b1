package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func githubServer(t *testing.T, authHeader *string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/search/commits", func(w http.ResponseWriter, r *http.Request) {
		*authHeader = r.Header.Get("Authorization")
		assert.Equal(t, "author:octo", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]int{"total_count": 120})
	})
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "author:octo type:pr", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]int{"total_count": 7})
	})
	mux.HandleFunc("/users/octo/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"language": "Go", "fork": false},
			{"language": "Go", "fork": false},
			{"language": "TypeScript", "fork": false},
			{"language": "Rust", "fork": true},
			{"language": "", "fork": false},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubClientFetchStats(t *testing.T) {
	var auth string
	srv := githubServer(t, &auth)

	stats, err := NewGitHubClient(srv.URL, "secret-token").FetchStats(context.Background(), "octo")
	require.NoError(t, err)

	assert.Equal(t, 120, stats.Commits)
	assert.Equal(t, 7, stats.PullRequests)
	assert.Equal(t, []string{"Go", "TypeScript"}, stats.Languages)
	assert.Equal(t, 120+3*7+10*2, stats.Score())
	assert.Equal(t, "Bearer secret-token", auth)
}

func TestGitHubClientAnonymous(t *testing.T) {
	var auth string
	srv := githubServer(t, &auth)

	_, err := NewGitHubClient(srv.URL+"/", "").FetchStats(context.Background(), "octo")
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestGitHubClientErrorsAndBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	client := NewGitHubClient(srv.URL, "")
	for i := 0; i < 5; i++ {
		_, err := client.FetchStats(context.Background(), "octo")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	}

	_, err := client.FetchStats(context.Background(), "octo")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, calls)
}

func TestTopLanguages(t *testing.T) {
	repos := []repository{
		{Language: "Python"}, {Language: "Go"}, {Language: "Go"},
		{Language: "C"}, {Language: "Zig"}, {Language: "Elixir"},
		{Language: "Ada"}, {Language: "Python"},
	}

	assert.Equal(t, []string{"Go", "Python", "Ada", "C", "Elixir"}, topLanguages(repos, 5))
	assert.Empty(t, topLanguages(nil, 5))
}

func TestGitHubStatsScore(t *testing.T) {
	assert.Equal(t, 0, GitHubStats{}.Score())
	assert.Equal(t, 10+3*4+10*3, GitHubStats{Commits: 10, PullRequests: 4, Languages: []string{"a", "b", "c"}}.Score())
}
