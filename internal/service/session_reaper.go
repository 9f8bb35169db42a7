package service

import (
	"context"
	"log"
	"time"
)

// SessionReaperConfig holds settings for the session reaper.
type SessionReaperConfig struct {
	Interval time.Duration
	TTL      time.Duration
}

// idleReaper closes sessions that have been inactive for longer than ttl.
type idleReaper interface {
	ReapIdle(ttl time.Duration) int
}

// SessionReaper periodically tears down abandoned review sessions.
type SessionReaper struct {
	sessions idleReaper
	cfg      SessionReaperConfig
}

// NewSessionReaper creates a new SessionReaper.
func NewSessionReaper(sessions idleReaper, cfg SessionReaperConfig) *SessionReaper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	return &SessionReaper{sessions: sessions, cfg: cfg}
}

// Start runs the reaping loop until ctx is canceled.
func (r *SessionReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	log.Printf("sessionReaper: started (interval=%s, ttl=%s)", r.cfg.Interval, r.cfg.TTL)

	for {
		select {
		case <-ctx.Done():
			log.Printf("sessionReaper: shutdown complete")
			return
		case <-ticker.C:
			if n := r.sessions.ReapIdle(r.cfg.TTL); n > 0 {
				log.Printf("sessionReaper: closed %d idle sessions", n)
			}
		}
	}
}
