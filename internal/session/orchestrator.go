package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevinmichaelchen/profile-lens/internal/models"
)

// GitHub loads the profile and repositories of a user.
type GitHub interface {
	FetchUser(ctx context.Context, username string) (*models.User, error)
	FetchRepos(ctx context.Context, username string) ([]models.Repo, error)
}

// Summarizer turns a profile into a short natural-language paragraph.
type Summarizer interface {
	GenerateProfileSummary(ctx context.Context, user models.User, repos []models.Repo) (string, error)
}

// Orchestrator runs searches one after another against a single live state.
//
// Each run gets a sequence number. Starting a run cancels the one in flight,
// and a run that is no longer the latest never writes to the live state, so
// the last search started is the one the page shows.
type Orchestrator struct {
	github     GitHub
	summarizer Summarizer
	logger     *slog.Logger
	now        func() time.Time
	onDone     []func(context.Context, State)

	mu        sync.Mutex
	seq       uint64
	cancel    context.CancelFunc
	current   State
	observers map[int]func(State)
	nextObs   int

	// notifyMu is taken before mu and keeps observer calls in commit order.
	notifyMu sync.Mutex

	hooks sync.WaitGroup
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithOnDone registers fn to run after a successful search has been
// committed. Hooks run in the background so Run returns as soon as the
// state is final; fn gets a context that is not canceled by later searches.
// Call Wait before tearing down what the hooks use.
func WithOnDone(fn func(ctx context.Context, st State)) Option {
	return func(o *Orchestrator) { o.onDone = append(o.onDone, fn) }
}

func New(gh GitHub, summarizer Summarizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		github:     gh,
		summarizer: summarizer,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		current:    Idle(),
		observers:  make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Current returns a copy of the live state.
func (o *Orchestrator) Current() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current.clone()
}

// Subscribe calls fn with a copy of the live state after every change.
// The returned function removes the subscription.
func (o *Orchestrator) Subscribe(fn func(State)) func() {
	o.mu.Lock()
	id := o.nextObs
	o.nextObs++
	o.observers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

// Run looks up query and returns the final state of this run. The three
// remote calls happen strictly in order: user, repositories, summary. A
// failure stops the run and keeps whatever was loaded before it.
func (o *Orchestrator) Run(ctx context.Context, query string) State {
	username := strings.TrimSpace(query)
	if username == "" {
		return o.reject(query, models.MsgEmptyUsername)
	}
	if !models.ValidLogin(username) {
		return o.reject(query, models.MsgInvalidUsername)
	}

	ctx, seq := o.start(ctx)
	defer o.finish(seq)

	var st State
	st.begin(uuid.NewString(), seq, query, o.now())
	if !o.commit(st) {
		return superseded(st)
	}

	log := o.logger.With("session", st.ID, "username", username)
	log.Info("lookup started")

	user, err := o.github.FetchUser(ctx, username)
	if err == nil && user == nil {
		err = models.NewError(models.KindUnknown, models.MsgUnknown,
			fmt.Errorf("GitHub client returned no user for %q", username))
	}
	if err != nil {
		return o.failed(st, err, log)
	}
	st.userLoaded(*user)
	if !o.commit(st) {
		return superseded(st)
	}

	repos, err := o.github.FetchRepos(ctx, username)
	if err != nil {
		return o.failed(st, err, log)
	}
	st.reposLoaded(SortByStars(repos))
	if !o.commit(st) {
		return superseded(st)
	}

	summary, err := o.summarizer.GenerateProfileSummary(ctx, *st.User, st.Repos)
	if err != nil {
		return o.failed(st, err, log)
	}
	st.succeed(summary, o.now())
	if !o.commit(st) {
		return superseded(st)
	}

	log.Info("lookup finished",
		"repos", len(st.Repos),
		"duration", st.FinishedAt.Sub(st.StartedAt))

	o.runHooks(context.WithoutCancel(ctx), st)
	return st
}

func (o *Orchestrator) runHooks(ctx context.Context, st State) {
	if len(o.onDone) == 0 {
		return
	}
	o.hooks.Add(1)
	go func() {
		defer o.hooks.Done()
		for _, fn := range o.onDone {
			fn(ctx, st.clone())
		}
	}()
}

// Wait blocks until every on-done hook started so far has returned.
func (o *Orchestrator) Wait() {
	o.hooks.Wait()
}

// reject handles a query that is not a GitHub username without touching
// the network. The live state keeps its results and only gains the
// validation message.
func (o *Orchestrator) reject(query, msg string) State {
	o.logger.Debug("lookup rejected", "query", query, "reason", msg)

	o.publish(func(current State) (State, bool) {
		live := current.clone()
		live.Error = msg
		live.ErrorKind = models.KindValidation
		return live, true
	})

	return State{
		Query:     query,
		Stage:     StageFailed,
		Repos:     []models.Repo{},
		Error:     msg,
		ErrorKind: models.KindValidation,
	}
}

func (o *Orchestrator) failed(st State, err error, log *slog.Logger) State {
	stage := st.Stage
	st.fail(err, o.now())
	if !o.commit(st) {
		return superseded(st)
	}

	attrs := []any{"stage", stage, "kind", st.ErrorKind, "error", err}
	if cause := errors.Unwrap(err); cause != nil {
		attrs = append(attrs, "cause", cause)
	}
	if st.ErrorKind == models.KindNotFound {
		log.Info("lookup failed", attrs...)
	} else {
		log.Warn("lookup failed", attrs...)
	}
	return st
}

func (o *Orchestrator) start(ctx context.Context) (context.Context, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.seq++
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	return runCtx, o.seq
}

func (o *Orchestrator) finish(seq uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.seq == seq && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// commit publishes st if its run is still the latest one.
func (o *Orchestrator) commit(st State) bool {
	return o.publish(func(current State) (State, bool) {
		if st.Seq != o.seq {
			return current, false
		}
		return st.clone(), true
	})
}

// publish replaces the live state with what update returns and notifies
// observers, in commit order. Observers may call Current but must not start
// a search.
func (o *Orchestrator) publish(update func(current State) (State, bool)) bool {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	next, ok := update(o.current)
	if !ok {
		o.mu.Unlock()
		return false
	}
	o.current = next
	observers := make([]func(State), 0, len(o.observers))
	for _, fn := range o.observers {
		observers = append(observers, fn)
	}
	o.mu.Unlock()

	for _, fn := range observers {
		fn(next.clone())
	}
	return true
}

func superseded(st State) State {
	st.Superseded = true
	st.Loading = false
	return st
}
