package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
	"github.com/kevinmichaelchen/profile-lens/internal/session"
	"github.com/kevinmichaelchen/profile-lens/internal/view"
)

const defaultHistoryLimit = 20

type searchRequest struct {
	Username string `json:"username"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Index handles GET /
func (s *Server) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", view.NewPage(s.searcher.Current()))
}

// SubmitSearch handles POST /search from the HTML form.
func (s *Server) SubmitSearch(c *gin.Context) {
	s.run(c, c.PostForm("username"))
	c.Redirect(http.StatusSeeOther, "/")
}

// Health handles GET /api/health
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// State handles GET /api/state
func (s *Server) State(c *gin.Context) {
	c.JSON(http.StatusOK, view.NewPage(s.searcher.Current()))
}

// Search handles POST /api/search
func (s *Server) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Request body must be JSON like {\"username\": \"octocat\"}."})
		return
	}

	st := s.run(c, req.Username)
	status := http.StatusOK
	if st.ErrorKind == models.KindValidation {
		status = http.StatusBadRequest
	}
	c.JSON(status, view.NewPage(st))
}

// History handles GET /api/history
func (s *Server) History(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "History is not enabled."})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer."})
			return
		}
		limit = n
	}

	snaps, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("listing history failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Could not load history."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// run detaches the search from the request so that a client going away
// does not abort it; other tabs are still watching.
func (s *Server) run(c *gin.Context, username string) session.State {
	return s.searcher.Run(context.WithoutCancel(c.Request.Context()), username)
}
