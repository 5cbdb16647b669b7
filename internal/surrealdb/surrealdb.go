package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kevinmichaelchen/profile-lens/internal/config"
	"github.com/kevinmichaelchen/profile-lens/internal/models"
	sdk "github.com/surrealdb/surrealdb.go"
)

type Client struct {
	db *sdk.DB
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	db, err := sdk.FromEndpointURLString(ctx, cfg.SurrealURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, sdk.Auth{
		Namespace: cfg.SurrealNS,
		Database:  cfg.SurrealDB,
		Username:  cfg.SurrealUser,
		Password:  cfg.SurrealPass,
	}); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("signing in: %w", err)
	}

	if err := db.Use(ctx, cfg.SurrealNS, cfg.SurrealDB); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("selecting ns/db: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.db.Close(ctx)
}

func (c *Client) InitSchema(ctx context.Context) error {
	schema := `
DEFINE TABLE IF NOT EXISTS profile SCHEMAFULL;

DEFINE FIELD IF NOT EXISTS login        ON TABLE profile TYPE string;
DEFINE FIELD IF NOT EXISTS name         ON TABLE profile TYPE string;
DEFINE FIELD IF NOT EXISTS avatar_url   ON TABLE profile TYPE string;
DEFINE FIELD IF NOT EXISTS profile_url  ON TABLE profile TYPE string;
DEFINE FIELD IF NOT EXISTS followers    ON TABLE profile TYPE int;
DEFINE FIELD IF NOT EXISTS public_repos ON TABLE profile TYPE int;
DEFINE FIELD IF NOT EXISTS summary      ON TABLE profile TYPE string;
DEFINE FIELD IF NOT EXISTS top_repos    ON TABLE profile TYPE array<string>;
DEFINE FIELD IF NOT EXISTS languages    ON TABLE profile FLEXIBLE TYPE array<object>;
DEFINE FIELD IF NOT EXISTS embedding    ON TABLE profile TYPE option<array<float>>;
DEFINE FIELD IF NOT EXISTS searched_at  ON TABLE profile TYPE datetime;
DEFINE FIELD IF NOT EXISTS lookups      ON TABLE profile TYPE int DEFAULT 0;

DEFINE INDEX IF NOT EXISTS idx_login ON TABLE profile FIELDS login UNIQUE;
DEFINE INDEX IF NOT EXISTS idx_searched_at ON TABLE profile FIELDS searched_at;
`
	_, err := sdk.Query[any](ctx, c.db, schema, nil)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// SaveSnapshot stores the latest lookup of a login, replacing the previous
// one and bumping the lookup counter.
func (c *Client) SaveSnapshot(ctx context.Context, s models.Snapshot) error {
	// Only set optional fields when present to avoid the CBOR NULL vs
	// SurrealDB NONE mismatch.
	data := map[string]any{
		"login":        s.Login,
		"name":         s.Name,
		"avatar_url":   s.AvatarURL,
		"profile_url":  s.ProfileURL,
		"followers":    s.Followers,
		"public_repos": s.PublicRepos,
		"summary":      s.Summary,
		"top_repos":    nonNil(s.TopRepos),
		"languages":    languagesData(s.Languages),
		"searched_at":  s.SearchedAt.UTC(),
	}
	if len(s.Embedding) > 0 {
		data["embedding"] = s.Embedding
	}

	_, err := sdk.Query[any](ctx, c.db,
		`UPSERT type::thing("profile", $id) MERGE $data;
		 UPDATE type::thing("profile", $id) SET lookups += 1;`,
		map[string]any{
			"id":   recordID(s.Login),
			"data": data,
		})
	if err != nil {
		return fmt.Errorf("saving snapshot of %s: %w", s.Login, err)
	}
	return nil
}

// RecentSnapshots returns the most recently looked up profiles, newest first.
func (c *Client) RecentSnapshots(ctx context.Context, limit int) ([]models.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT login, name, avatar_url, profile_url, followers, public_repos,
			summary, top_repos, languages, <string> searched_at AS searched_at
		FROM profile
		ORDER BY searched_at DESC
		LIMIT %d
	`, limit)

	results, err := sdk.Query[[]snapshotRow](ctx, c.db, query, nil)
	if err != nil {
		return nil, fmt.Errorf("querying recent snapshots: %w", err)
	}
	if len(*results) == 0 {
		return nil, nil
	}

	rows := (*results)[0].Result
	out := make([]models.Snapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toSnapshot())
	}
	return out, nil
}

// SimilarSnapshots ranks stored profiles by cosine similarity of their
// summary embedding to queryVec.
func (c *Client) SimilarSnapshots(ctx context.Context, queryVec []float32, k int) ([]models.SimilarSnapshot, error) {
	// Brute force is fine at the scale of a personal lookup history and
	// avoids pinning an HNSW index to one embedding dimension.
	query := fmt.Sprintf(`
		SELECT login, name, summary,
			vector::similarity::cosine(embedding, $query_vec) AS score
		FROM profile
		WHERE embedding IS NOT NONE AND array::len(embedding) = array::len($query_vec)
		ORDER BY score DESC
		LIMIT %d
	`, k)

	results, err := sdk.Query[[]models.SimilarSnapshot](ctx, c.db, query,
		map[string]any{"query_vec": queryVec})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

type snapshotRow struct {
	Login       string                 `json:"login"`
	Name        string                 `json:"name"`
	AvatarURL   string                 `json:"avatar_url"`
	ProfileURL  string                 `json:"profile_url"`
	Followers   int                    `json:"followers"`
	PublicRepos int                    `json:"public_repos"`
	Summary     string                 `json:"summary"`
	TopRepos    []string               `json:"top_repos"`
	Languages   []models.LanguageShare `json:"languages"`
	SearchedAt  string                 `json:"searched_at"`
}

func (r snapshotRow) toSnapshot() models.Snapshot {
	s := models.Snapshot{
		Login:       r.Login,
		Name:        r.Name,
		AvatarURL:   r.AvatarURL,
		ProfileURL:  r.ProfileURL,
		Followers:   r.Followers,
		PublicRepos: r.PublicRepos,
		Summary:     r.Summary,
		TopRepos:    nonNil(r.TopRepos),
		Languages:   r.Languages,
	}
	// SurrealDB renders datetimes as d'...' when cast in some versions.
	raw := strings.TrimSuffix(strings.TrimPrefix(r.SearchedAt, "d'"), "'")
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		s.SearchedAt = t
	}
	if s.Languages == nil {
		s.Languages = []models.LanguageShare{}
	}
	return s
}

func languagesData(shares []models.LanguageShare) []map[string]any {
	out := make([]map[string]any, 0, len(shares))
	for _, l := range shares {
		out = append(out, map[string]any{
			"language": l.Language,
			"count":    l.Count,
			"percent":  l.Percent,
		})
	}
	return out
}

// recordID makes a login safe to use as a record key. GitHub logins are
// case-insensitive.
func recordID(login string) string {
	return strings.ToLower(login)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
