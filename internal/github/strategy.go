package github

import (
	"context"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
)

// Strategy decides how many pages of a user's repositories are fetched.
type Strategy interface {
	Fetch(ctx context.Context, c *Client, username string) ([]models.Repo, error)
}

// FirstPageStrategy fetches the first 100 repositories, most recently
// updated first. Enough for nearly every personal account.
type FirstPageStrategy struct{}

func (FirstPageStrategy) Fetch(ctx context.Context, c *Client, username string) ([]models.Repo, error) {
	page, err := c.FetchReposPage(ctx, username, 1)
	if err != nil {
		return nil, err
	}
	return page.Repos, nil
}

// AllPagesStrategy follows pagination until the last page or MaxPages,
// whichever comes first. Large organizations can have thousands of
// repositories, so the cap keeps a lookup bounded.
type AllPagesStrategy struct {
	MaxPages int
}

func (s AllPagesStrategy) Fetch(ctx context.Context, c *Client, username string) ([]models.Repo, error) {
	maxPages := s.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	var all []models.Repo
	next := 1
	for fetched := 0; next != 0 && fetched < maxPages; fetched++ {
		page, err := c.FetchReposPage(ctx, username, next)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Repos...)
		next = page.NextPage
	}
	return all, nil
}
