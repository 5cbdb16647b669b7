package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
	"github.com/kevinmichaelchen/profile-lens/internal/session"
)

type mockStore struct {
	saved   []models.Snapshot
	saveErr error
	lastVec []float32
}

func (m *mockStore) SaveSnapshot(ctx context.Context, s models.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *mockStore) RecentSnapshots(ctx context.Context, limit int) ([]models.Snapshot, error) {
	if limit < len(m.saved) {
		return m.saved[:limit], nil
	}
	return m.saved, nil
}

func (m *mockStore) SimilarSnapshots(ctx context.Context, queryVec []float32, k int) ([]models.SimilarSnapshot, error) {
	m.lastVec = queryVec
	return []models.SimilarSnapshot{{Login: "octocat", Score: 0.9}}, nil
}

type mockEmbedder struct {
	err   error
	texts []string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.texts = append(m.texts, text)
	if m.err != nil {
		return nil, m.err
	}
	return []float32{1, 0}, nil
}

func doneState() session.State {
	repos := []models.Repo{
		{Name: "r1", Language: "Go"}, {Name: "r2", Language: "Go"}, {Name: "r3"},
		{Name: "r4"}, {Name: "r5"}, {Name: "r6"},
	}
	return session.State{
		Stage:   session.StageDone,
		User:    &models.User{Login: "octocat", Name: "The Octocat", Followers: 10, PublicRepos: 6},
		Repos:   repos,
		Summary: "Mascot.",
	}
}

func TestRecord(t *testing.T) {
	store := &mockStore{}
	emb := &mockEmbedder{}
	r := NewRecorder(store, emb, nil)
	now := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Record(context.Background(), doneState())

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(store.saved))
	}
	snap := store.saved[0]
	if snap.Login != "octocat" || snap.Summary != "Mascot." || !snap.SearchedAt.Equal(now) {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if len(snap.TopRepos) != topRepoCount || snap.TopRepos[0] != "r1" {
		t.Errorf("expected the first %d repos, got %v", topRepoCount, snap.TopRepos)
	}
	if len(snap.Languages) != 1 || snap.Languages[0].Language != "Go" {
		t.Errorf("unexpected languages %+v", snap.Languages)
	}
	if len(snap.Embedding) != 2 {
		t.Errorf("expected embedding to be attached, got %v", snap.Embedding)
	}
	if len(emb.texts) != 1 || emb.texts[0] != "octocat (The Octocat): Mascot. Languages: Go." {
		t.Errorf("unexpected embedded text %v", emb.texts)
	}
}

func TestRecord_SkipsUnfinished(t *testing.T) {
	store := &mockStore{}
	r := NewRecorder(store, nil, nil)

	failed := doneState()
	failed.Stage = session.StageFailed
	r.Record(context.Background(), failed)
	r.Record(context.Background(), session.State{Stage: session.StageDone})

	if len(store.saved) != 0 {
		t.Errorf("expected nothing saved, got %d", len(store.saved))
	}
}

func TestRecord_EmbeddingFailureStillSaves(t *testing.T) {
	store := &mockStore{}
	r := NewRecorder(store, &mockEmbedder{err: errors.New("quota")}, nil)

	r.Record(context.Background(), doneState())

	if len(store.saved) != 1 {
		t.Fatalf("expected snapshot to be saved, got %d", len(store.saved))
	}
	if store.saved[0].Embedding != nil {
		t.Errorf("expected no embedding, got %v", store.saved[0].Embedding)
	}
}

func TestRecord_StoreFailureIsSwallowed(t *testing.T) {
	r := NewRecorder(&mockStore{saveErr: errors.New("down")}, nil, nil)

	// Must not panic.
	r.Record(context.Background(), doneState())
}

func TestSimilar(t *testing.T) {
	store := &mockStore{}
	r := NewRecorder(store, &mockEmbedder{}, nil)

	got, err := r.Similar(context.Background(), "rust systems people", 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0].Login != "octocat" {
		t.Errorf("unexpected results %+v", got)
	}
	if len(store.lastVec) != 2 {
		t.Errorf("expected query vector to be passed through, got %v", store.lastVec)
	}

	noEmb := NewRecorder(store, nil, nil)
	if _, err := noEmb.Similar(context.Background(), "x", 3); !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("expected ErrNoEmbedder, got %v", err)
	}
}

func TestRecent(t *testing.T) {
	store := &mockStore{saved: []models.Snapshot{{Login: "a"}, {Login: "b"}}}
	r := NewRecorder(store, nil, nil)

	got, err := r.Recent(context.Background(), 1)
	if err != nil || len(got) != 1 {
		t.Errorf("expected 1 snapshot, got %v (%v)", got, err)
	}
}
