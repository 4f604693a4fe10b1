package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
)

const maxGitHubLanguages = 5

// GitHubStats is the cached external reputation of a profile.
type GitHubStats struct {
	Commits      int
	PullRequests int
	Languages    []string
}

// Score ranks profiles in discovery.
func (s GitHubStats) Score() int {
	return s.Commits + 3*s.PullRequests + 10*len(s.Languages)
}

// GitHubClient reads public contribution counts from the GitHub REST API.
type GitHubClient struct {
	http    *http.Client
	baseURL string
	cb      *gobreaker.CircuitBreaker
}

// NewGitHubClient builds a client; an empty token uses anonymous (heavily
// rate limited) access.
func NewGitHubClient(baseURL, token string) *GitHubClient {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	cbSettings := gobreaker.Settings{
		Name:        "github-api",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &GitHubClient{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		cb:      gobreaker.NewCircuitBreaker(cbSettings),
	}
}

type searchResult struct {
	TotalCount int `json:"total_count"`
}

type repository struct {
	Language string `json:"language"`
	Fork     bool   `json:"fork"`
}

func (c *GitHubClient) FetchStats(ctx context.Context, username string) (*GitHubStats, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.fetchStats(ctx, username)
	})
	if err != nil {
		return nil, err
	}
	return out.(*GitHubStats), nil
}

func (c *GitHubClient) fetchStats(ctx context.Context, username string) (*GitHubStats, error) {
	var commits searchResult
	if err := c.get(ctx, "/search/commits", url.Values{"q": {"author:" + username}}, &commits); err != nil {
		return nil, err
	}

	var prs searchResult
	if err := c.get(ctx, "/search/issues", url.Values{"q": {"author:" + username + " type:pr"}}, &prs); err != nil {
		return nil, err
	}

	var repos []repository
	path := "/users/" + url.PathEscape(username) + "/repos"
	if err := c.get(ctx, path, url.Values{"per_page": {"100"}, "sort": {"pushed"}}, &repos); err != nil {
		return nil, err
	}

	return &GitHubStats{
		Commits:      commits.TotalCount,
		PullRequests: prs.TotalCount,
		Languages:    topLanguages(repos, maxGitHubLanguages),
	}, nil
}

func (c *GitHubClient) get(ctx context.Context, path string, query url.Values, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode github response: %w", err)
	}
	return nil
}

// topLanguages ranks primary languages of non-fork repositories by how many
// repositories use them, ties broken alphabetically.
func topLanguages(repos []repository, limit int) []string {
	counts := make(map[string]int)
	for _, r := range repos {
		if r.Fork || r.Language == "" {
			continue
		}
		counts[r.Language]++
	}

	languages := make([]string, 0, len(counts))
	for lang := range counts {
		languages = append(languages, lang)
	}
	sort.Slice(languages, func(i, j int) bool {
		if counts[languages[i]] != counts[languages[j]] {
			return counts[languages[i]] > counts[languages[j]]
		}
		return languages[i] < languages[j]
	})

	if len(languages) > limit {
		languages = languages[:limit]
	}
	return languages
}
