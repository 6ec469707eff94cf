package editor

import (
	"context"
	"sync"
	"time"

	"github.com/uluk20-22520/uluk-site/internal/content"
)

const defaultDraftIdle = 30 * time.Minute

// Drafts keeps one Editor per admin session and forgets idle ones.
type Drafts struct {
	repo  *content.Repository
	idle  time.Duration
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]*draftEntry
}

type draftEntry struct {
	editor   *Editor
	lastSeen time.Time
}

// NewDrafts returns an empty registry. idle <= 0 selects 30 minutes.
func NewDrafts(repo *content.Repository, idle time.Duration, clock func() time.Time) *Drafts {
	if idle <= 0 {
		idle = defaultDraftIdle
	}
	if clock == nil {
		clock = time.Now
	}
	return &Drafts{repo: repo, idle: idle, clock: clock, entries: make(map[string]*draftEntry)}
}

// Get returns the session's editor, loading a new draft when none is live.
func (d *Drafts) Get(ctx context.Context, sessionID string) *Editor {
	now := d.clock()

	d.mu.Lock()
	if entry, ok := d.entries[sessionID]; ok && now.Sub(entry.lastSeen) < d.idle {
		entry.lastSeen = now
		d.mu.Unlock()
		return entry.editor
	}
	d.mu.Unlock()

	ed := New(ctx, d.repo)

	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.entries[sessionID]; ok && now.Sub(entry.lastSeen) < d.idle {
		entry.lastSeen = now
		return entry.editor
	}
	d.entries[sessionID] = &draftEntry{editor: ed, lastSeen: now}
	return ed
}

// Drop discards the session's draft.
func (d *Drafts) Drop(sessionID string) {
	d.mu.Lock()
	delete(d.entries, sessionID)
	d.mu.Unlock()
}

// Len reports the number of tracked drafts.
func (d *Drafts) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Sweep removes drafts idle for longer than the idle timeout.
func (d *Drafts) Sweep() int {
	now := d.clock()
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for id, entry := range d.entries {
		if now.Sub(entry.lastSeen) >= d.idle {
			delete(d.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (d *Drafts) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = d.idle / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep()
		}
	}
}
