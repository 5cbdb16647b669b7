package session

import (
	"sort"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
)

// SortByStars returns a copy of repos ordered by star count, highest first.
// Repositories with equal counts keep their source order.
func SortByStars(repos []models.Repo) []models.Repo {
	sorted := make([]models.Repo, len(repos))
	copy(sorted, repos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Stars > sorted[j].Stars
	})
	return sorted
}
