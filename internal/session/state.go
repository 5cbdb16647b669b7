package session

import (
	"time"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
)

// Stage is the step a search is in.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageFetchingUser      Stage = "fetching_user"
	StageFetchingRepos     Stage = "fetching_repos"
	StageGeneratingSummary Stage = "generating_summary"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// State is everything the page needs to render one search.
type State struct {
	ID         string           `json:"id,omitempty"`
	Seq        uint64           `json:"seq"`
	Query      string           `json:"query"`
	Stage      Stage            `json:"stage"`
	User       *models.User     `json:"user"`
	Repos      []models.Repo    `json:"repos"`
	Summary    string           `json:"summary"`
	Loading    bool             `json:"loading"`
	Error      string           `json:"error,omitempty"`
	ErrorKind  models.ErrorKind `json:"error_kind,omitempty"`
	Superseded bool             `json:"superseded,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Idle is the state before any search.
func Idle() State {
	return State{Stage: StageIdle, Repos: []models.Repo{}}
}

// HasError reports whether the last attempt left an error to display.
func (s State) HasError() bool {
	return s.Error != ""
}

// Terminal reports whether the search has finished, successfully or not.
func (s State) Terminal() bool {
	return s.Stage == StageDone || s.Stage == StageFailed
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	repos := make([]models.Repo, len(s.Repos))
	copy(repos, s.Repos)
	s.Repos = repos
	return s
}

func (s *State) begin(id string, seq uint64, query string, now time.Time) {
	*s = State{
		ID:        id,
		Seq:       seq,
		Query:     query,
		Stage:     StageFetchingUser,
		Repos:     []models.Repo{},
		Loading:   true,
		StartedAt: now,
	}
}

func (s *State) userLoaded(u models.User) {
	s.User = &u
	s.Stage = StageFetchingRepos
}

func (s *State) reposLoaded(repos []models.Repo) {
	s.Repos = repos
	s.Stage = StageGeneratingSummary
}

func (s *State) succeed(summary string, now time.Time) {
	s.Summary = summary
	s.Loading = false
	s.Error = ""
	s.ErrorKind = ""
	s.Stage = StageDone
	s.FinishedAt = now
}

func (s *State) fail(err error, now time.Time) {
	s.Error = models.Message(err)
	s.ErrorKind = models.KindOf(err)
	s.Loading = false
	s.Stage = StageFailed
	s.FinishedAt = now
}
