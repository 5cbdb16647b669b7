package models

import "time"

// User is a GitHub account as shown on the profile card.
type User struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
	ProfileURL  string `json:"profile_url"`
}

// DisplayName falls back to the login when the account has no name set.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Login
}

type Repo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	URL         string    `json:"url"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LanguageShare is one slice of the language distribution chart.
type LanguageShare struct {
	Language string  `json:"language"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// Snapshot is a completed lookup as kept in the history store.
type Snapshot struct {
	Login       string          `json:"login"`
	Name        string          `json:"name"`
	AvatarURL   string          `json:"avatar_url"`
	ProfileURL  string          `json:"profile_url"`
	Followers   int             `json:"followers"`
	PublicRepos int             `json:"public_repos"`
	Summary     string          `json:"summary"`
	TopRepos    []string        `json:"top_repos"`
	Languages   []LanguageShare `json:"languages"`
	Embedding   []float32       `json:"embedding,omitempty"`
	SearchedAt  time.Time       `json:"searched_at"`
}

type SimilarSnapshot struct {
	Login   string  `json:"login"`
	Name    string  `json:"name"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
}
