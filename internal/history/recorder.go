// Package history keeps completed lookups for later browsing and
// similarity search.
package history

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/kevinmichaelchen/profile-lens/internal/embedding"
	"github.com/kevinmichaelchen/profile-lens/internal/models"
	"github.com/kevinmichaelchen/profile-lens/internal/session"
	"github.com/kevinmichaelchen/profile-lens/internal/view"
)

// topRepoCount is how many repository names a snapshot keeps.
const topRepoCount = 5

type Store interface {
	SaveSnapshot(ctx context.Context, s models.Snapshot) error
	RecentSnapshots(ctx context.Context, limit int) ([]models.Snapshot, error)
	SimilarSnapshots(ctx context.Context, queryVec []float32, k int) ([]models.SimilarSnapshot, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Recorder saves successful lookups. Failures are logged and never reach
// the user: history is a side feature of a search.
type Recorder struct {
	store    Store
	embedder Embedder
	logger   *slog.Logger
	now      func() time.Time
}

// NewRecorder returns a recorder; embedder may be nil to skip embeddings.
func NewRecorder(store Store, embedder Embedder, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{store: store, embedder: embedder, logger: logger, now: time.Now}
}

// Record is meant to be passed to session.WithOnDone.
func (r *Recorder) Record(ctx context.Context, st session.State) {
	if st.Stage != session.StageDone || st.User == nil {
		return
	}
	snap := BuildSnapshot(st, r.now())
	log := r.logger.With("login", snap.Login)

	if r.embedder != nil && snap.Summary != "" {
		vec, err := r.embedder.Embed(ctx, embedding.SnapshotText(snap))
		if err != nil {
			log.Warn("embedding snapshot failed", "error", err)
		} else {
			snap.Embedding = vec
		}
	}

	if err := r.store.SaveSnapshot(ctx, snap); err != nil {
		log.Warn("saving snapshot failed", "error", err)
		return
	}
	log.Debug("snapshot saved", "embedded", len(snap.Embedding) > 0)
}

// Recent lists the latest lookups.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.Snapshot, error) {
	return r.store.RecentSnapshots(ctx, limit)
}

// Similar embeds query and returns the k closest stored profiles.
func (r *Recorder) Similar(ctx context.Context, query string, k int) ([]models.SimilarSnapshot, error) {
	if r.embedder == nil {
		return nil, ErrNoEmbedder
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.SimilarSnapshots(ctx, vec, k)
}

// BuildSnapshot condenses a finished search into what history keeps.
func BuildSnapshot(st session.State, now time.Time) models.Snapshot {
	u := st.User
	top := make([]string, 0, topRepoCount)
	for i, repo := range st.Repos {
		if i == topRepoCount {
			break
		}
		top = append(top, repo.Name)
	}
	return models.Snapshot{
		Login:       u.Login,
		Name:        u.Name,
		AvatarURL:   u.AvatarURL,
		ProfileURL:  u.ProfileURL,
		Followers:   u.Followers,
		PublicRepos: u.PublicRepos,
		Summary:     st.Summary,
		TopRepos:    top,
		Languages:   view.Languages(st.Repos, view.DefaultLanguageSlices),
		SearchedAt:  now,
	}
}
