package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v53/github"
	"github.com/kevinmichaelchen/profile-lens/internal/models"
	"golang.org/x/oauth2"
)

const perPage = 100

// Client wraps the GitHub REST API for the two lookups a profile needs.
type Client struct {
	gh       *gh.Client
	strategy Strategy
}

type Options struct {
	// Token is optional; anonymous requests get a much lower rate limit.
	Token string
	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	BaseURL  string
	Timeout  time.Duration
	Strategy Strategy
}

func NewClient(opts Options) (*Client, error) {
	httpClient := &http.Client{Timeout: opts.Timeout}
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = opts.Timeout
	}

	client := gh.NewClient(httpClient)
	if opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub base URL: %w", err)
		}
		client.BaseURL = base
	}

	strategy := opts.Strategy
	if strategy == nil {
		strategy = FirstPageStrategy{}
	}
	return &Client{gh: client, strategy: strategy}, nil
}

// FetchUser returns the public profile of username.
func (c *Client) FetchUser(ctx context.Context, username string) (*models.User, error) {
	segment, err := pathSegment(username)
	if err != nil {
		return nil, err
	}
	u, _, err := c.gh.Users.Get(ctx, segment)
	if err != nil {
		return nil, classify(err, username, "profile")
	}
	return &models.User{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		AvatarURL:   u.GetAvatarURL(),
		Bio:         u.GetBio(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		PublicRepos: u.GetPublicRepos(),
		ProfileURL:  u.GetHTMLURL(),
	}, nil
}

// FetchRepos returns the public repositories of username, most recently
// updated first. An account without repositories yields an empty slice.
func (c *Client) FetchRepos(ctx context.Context, username string) ([]models.Repo, error) {
	repos, err := c.strategy.Fetch(ctx, c, username)
	if err != nil {
		return nil, err
	}
	if repos == nil {
		repos = []models.Repo{}
	}
	return repos, nil
}

// Page holds one page of a user's repositories.
type Page struct {
	Repos    []models.Repo
	NextPage int // 0 when this is the last page
}

func (c *Client) FetchReposPage(ctx context.Context, username string, page int) (*Page, error) {
	segment, err := pathSegment(username)
	if err != nil {
		return nil, err
	}
	opts := &gh.RepositoryListOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
	}
	list, resp, err := c.gh.Repositories.List(ctx, segment, opts)
	if err != nil {
		return nil, classify(err, username, "repositories")
	}

	repos := make([]models.Repo, 0, len(list))
	for _, r := range list {
		repos = append(repos, toRepo(r))
	}

	next := 0
	if resp != nil {
		next = resp.NextPage
	}
	return &Page{Repos: repos, NextPage: next}, nil
}

// pathSegment escapes username for users/{username}. go-github formats it
// into the path as is, and an empty name would address the authenticated
// user instead.
func pathSegment(username string) (string, error) {
	if username == "" {
		return "", models.ErrValidation(models.MsgEmptyUsername)
	}
	return url.PathEscape(username), nil
}

func toRepo(r *gh.Repository) models.Repo {
	return models.Repo{
		Name:        r.GetName(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		URL:         r.GetHTMLURL(),
		UpdatedAt:   r.GetUpdatedAt().Time,
	}
}

// classify turns a go-github failure into a *models.Error whose message can
// be shown to the user as is.
func classify(err error, username, what string) error {
	if errors.Is(err, context.Canceled) {
		return models.NewError(models.KindNetwork,
			fmt.Sprintf("Loading the %s of %q was canceled.", what, username), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewError(models.KindNetwork,
			fmt.Sprintf("GitHub did not answer in time while loading the %s of %q.", what, username), err)
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return models.NewError(models.KindService,
			fmt.Sprintf("GitHub API rate limit exceeded. Try again after %s.",
				rateErr.Rate.Reset.Time.UTC().Format("15:04 MST")), err)
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return models.NewError(models.KindService,
			"GitHub is throttling requests. Try again in a moment.", err)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		if respErr.Response.StatusCode == http.StatusNotFound {
			return models.NewError(models.KindNotFound,
				fmt.Sprintf("GitHub user %q was not found.", username), err)
		}
		msg := fmt.Sprintf("GitHub API returned %d while loading the %s of %q",
			respErr.Response.StatusCode, what, username)
		if respErr.Message != "" {
			msg += ": " + respErr.Message
		}
		return models.NewError(models.KindService, msg+".", err)
	}

	return models.NewError(models.KindNetwork,
		fmt.Sprintf("Could not reach GitHub while loading the %s of %q.", what, username), err)
}
