package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler, strategy Strategy) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Strategy: strategy})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func TestFetchUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/reactjs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"login": "reactjs",
			"name": "React",
			"avatar_url": "https://avatars.example/reactjs",
			"bio": "A JavaScript library",
			"followers": 1000,
			"following": 2,
			"public_repos": 40,
			"html_url": "https://github.com/reactjs"
		}`)
	})
	c, _ := newTestClient(t, mux, nil)

	user, err := c.FetchUser(context.Background(), "reactjs")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := models.User{
		Login:       "reactjs",
		Name:        "React",
		AvatarURL:   "https://avatars.example/reactjs",
		Bio:         "A JavaScript library",
		Followers:   1000,
		Following:   2,
		PublicRepos: 40,
		ProfileURL:  "https://github.com/reactjs",
	}
	if *user != want {
		t.Errorf("got %+v, want %+v", *user, want)
	}
}

func TestFetchUser_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/ghost-404", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	c, _ := newTestClient(t, mux, nil)

	_, err := c.FetchUser(context.Background(), "ghost-404")
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := models.KindOf(err); kind != models.KindNotFound {
		t.Errorf("expected %s, got %s", models.KindNotFound, kind)
	}
	if want := `GitHub user "ghost-404" was not found.`; err.Error() != want {
		t.Errorf("expected message %q, got %q", want, err.Error())
	}
}

func TestFetchUser_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"message":"Server Error"}`)
	})
	c, _ := newTestClient(t, mux, nil)

	_, err := c.FetchUser(context.Background(), "octocat")
	if kind := models.KindOf(err); kind != models.KindService {
		t.Errorf("expected %s, got %s (%v)", models.KindService, kind, err)
	}
}

func TestFetchUser_RateLimited(t *testing.T) {
	reset := time.Now().Add(10 * time.Minute).Unix()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded for 127.0.0.1."}`)
	})
	c, _ := newTestClient(t, mux, nil)

	_, err := c.FetchUser(context.Background(), "octocat")
	if kind := models.KindOf(err); kind != models.KindService {
		t.Errorf("expected %s, got %s (%v)", models.KindService, kind, err)
	}
}

func TestFetchUser_Unreachable(t *testing.T) {
	c, srv := newTestClient(t, http.NewServeMux(), nil)
	srv.Close()

	_, err := c.FetchUser(context.Background(), "octocat")
	if kind := models.KindOf(err); kind != models.KindNetwork {
		t.Errorf("expected %s, got %s (%v)", models.KindNetwork, kind, err)
	}
}

func reposHandler(t *testing.T, pages map[int]string, lastPage int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sort"); got != "updated" {
			t.Errorf("expected sort=updated, got %q", got)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 0 {
			page = 1
		}
		if page < lastPage {
			next := fmt.Sprintf("http://%s%s?page=%d&per_page=100&sort=updated", r.Host, r.URL.Path, page+1)
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, pages[page])
	}
}

func TestFetchRepos_FirstPage(t *testing.T) {
	pages := map[int]string{
		1: `[{"name":"A","description":"first","language":"Go","stargazers_count":5,"forks_count":1,
		      "html_url":"https://github.com/octocat/A","updated_at":"2024-03-01T10:00:00Z"}]`,
		2: `[{"name":"B","stargazers_count":50}]`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/repos", reposHandler(t, pages, 2))
	c, _ := newTestClient(t, mux, FirstPageStrategy{})

	repos, err := c.FetchRepos(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repos) != 1 {
		t.Fatalf("expected 1 repo, got %d", len(repos))
	}
	want := models.Repo{
		Name:        "A",
		Description: "first",
		Language:    "Go",
		Stars:       5,
		Forks:       1,
		URL:         "https://github.com/octocat/A",
		UpdatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if !repos[0].UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("expected updated_at %s, got %s", want.UpdatedAt, repos[0].UpdatedAt)
	}
	repos[0].UpdatedAt = want.UpdatedAt
	if repos[0] != want {
		t.Errorf("got %+v, want %+v", repos[0], want)
	}
}

func TestFetchRepos_AllPages(t *testing.T) {
	pages := map[int]string{
		1: `[{"name":"A"}]`,
		2: `[{"name":"B"}]`,
		3: `[{"name":"C"}]`,
	}

	tests := []struct {
		name     string
		maxPages int
		want     []string
	}{
		{name: "follows every page", maxPages: 10, want: []string{"A", "B", "C"}},
		{name: "stops at cap", maxPages: 2, want: []string{"A", "B"}},
		{name: "zero cap means one page", maxPages: 0, want: []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/users/octocat/repos", reposHandler(t, pages, 3))
			c, _ := newTestClient(t, mux, AllPagesStrategy{MaxPages: tt.maxPages})

			repos, err := c.FetchRepos(context.Background(), "octocat")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(repos) != len(tt.want) {
				t.Fatalf("expected %d repos, got %d", len(tt.want), len(repos))
			}
			for i, name := range tt.want {
				if repos[i].Name != name {
					t.Errorf("repo %d: expected %s, got %s", i, name, repos[i].Name)
				}
			}
		})
	}
}

func TestFetchRepos_EmptyIsNotNil(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/newbie/repos", reposHandler(t, map[int]string{1: `[]`}, 1))
	c, _ := newTestClient(t, mux, nil)

	repos, err := c.FetchRepos(context.Background(), "newbie")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repos == nil || len(repos) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", repos)
	}
}

func TestFetchRepos_ContextErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/repos", reposHandler(t, map[int]string{1: `[]`}, 1))
	c, _ := newTestClient(t, mux, nil)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	tests := []struct {
		name    string
		ctx     context.Context
		target  error
		wantMsg string
	}{
		{"canceled", canceled, context.Canceled, `Loading the repositories of "octocat" was canceled.`},
		{"deadline", expired, context.DeadlineExceeded, `GitHub did not answer in time while loading the repositories of "octocat".`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.FetchRepos(tt.ctx, "octocat")
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := models.KindOf(err); kind != models.KindNetwork {
				t.Errorf("expected %s, got %s", models.KindNetwork, kind)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v to be reachable, got %v", tt.target, err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestFetch_UsernameStaysInItsPathSegment(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.EscapedPath())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/repos") {
			fmt.Fprint(w, `[{"name":"secret-private-repo"}]`)
			return
		}
		fmt.Fprint(w, `{"login":"token-owner"}`)
	})
	c, _ := newTestClient(t, handler, nil)

	_, _ = c.FetchUser(context.Background(), "../user")
	_, _ = c.FetchRepos(context.Background(), "../user")

	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		if p == "/user" || strings.HasPrefix(p, "/user/") {
			t.Errorf("request escaped users/{username}: %s", p)
		}
	}
	want := []string{"/users/..%2Fuser", "/users/..%2Fuser/repos"}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Errorf("expected paths %v, got %v", want, seen)
	}
}

func TestFetch_EmptyUsername(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	c, _ := newTestClient(t, handler, nil)

	if _, err := c.FetchUser(context.Background(), ""); models.KindOf(err) != models.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := c.FetchRepos(context.Background(), ""); models.KindOf(err) != models.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if called {
		t.Error("expected no request for an empty username")
	}
}
