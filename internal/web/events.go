package web

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kevinmichaelchen/profile-lens/internal/session"
	"github.com/kevinmichaelchen/profile-lens/internal/view"
)

// Events handles GET /api/events. It streams a "state" event for the
// current state and every transition after it, plus a periodic heartbeat.
func (s *Server) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	updates := make(chan session.State, 1)
	unsubscribe := s.searcher.Subscribe(func(st session.State) {
		offerLatest(updates, st)
	})
	defer unsubscribe()

	c.SSEvent("state", view.NewPage(s.searcher.Current()))
	c.Writer.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case st := <-updates:
			c.SSEvent("state", view.NewPage(st))
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("heartbeat", "ping")
			c.Writer.Flush()
		}
	}
}

// offerLatest never blocks the publisher. A slow client skips intermediate
// states but always ends up with the newest one. Observers are called one
// at a time, so there is a single sender.
func offerLatest(ch chan session.State, st session.State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- st
}
