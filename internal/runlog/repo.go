package runlog

import (
	"sync"
	"time"

	"panorama/internal/utils"

	"github.com/google/uuid"
)

// Run records one report generation.
type Run struct {
	ID         uuid.UUID `json:"id"`
	Report     string    `json:"report"`
	SurveyID   string    `json:"surveyId"`
	SubjectID  string    `json:"subjectId,omitempty"`
	Rows       int       `json:"rows"`
	DurationMs int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Repository keeps the latest runs of every tenant in a fixed size ring buffer.
// Tenants without a new run for longer than ttl are dropped by Serve.
//
//	repo := runlog.NewRepository(50, time.Hour)
//	go repo.Serve()
//	defer repo.Stop()
//	repo.Append("acme", runlog.Run{Report: "heatmap", SurveyID: "360"})
type Repository struct {
	length int
	ttl    time.Duration

	runs    map[string]*utils.RingBuffer[Run]
	updates map[string]time.Time
	mu      sync.RWMutex

	cleanInterval time.Duration
	done          chan struct{}
	stopOnce      sync.Once
}

// Append stores run for tenant, filling in a missing ID and timestamp, and
// returns the stored value.
func (r *Repository) Append(tenant string, run Run) Run {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.At.IsZero() {
		run.At = time.Now()
	}

	r.mu.RLock()
	buffer, found := r.runs[tenant]
	r.mu.RUnlock()

	if !found {
		r.mu.Lock()
		if buffer, found = r.runs[tenant]; !found {
			buffer = utils.NewRingBuffer[Run](r.length)
			r.runs[tenant] = buffer
		}
		r.mu.Unlock()
	}
	buffer.Push(run)

	r.mu.Lock()
	r.updates[tenant] = time.Now()
	r.mu.Unlock()
	return run
}

// Recent returns at most n runs of tenant, newest first. n <= 0 returns all
// retained runs. The second value is false when the tenant has none.
func (r *Repository) Recent(tenant string, n int) ([]Run, bool) {
	r.mu.RLock()
	buffer, found := r.runs[tenant]
	r.mu.RUnlock()
	if !found {
		return nil, false
	}
	return buffer.Last(n), true
}

// Serve drops outdated tenants periodically until Stop is called. It blocks:
//
//	go repo.Serve()
func (r *Repository) Serve() {
	ticker := time.NewTicker(r.cleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.clean(now)
		}
	}
}

func (r *Repository) clean(now time.Time) {
	var outdated []string

	r.mu.RLock()
	for tenant, ts := range r.updates {
		if now.Sub(ts) > r.ttl {
			outdated = append(outdated, tenant)
		}
	}
	r.mu.RUnlock()

	if len(outdated) > 0 {
		r.mu.Lock()
		for _, tenant := range outdated {
			// re-check: an Append may have landed in between
			if now.Sub(r.updates[tenant]) > r.ttl {
				delete(r.runs, tenant)
				delete(r.updates, tenant)
			}
		}
		r.mu.Unlock()
	}
}

// Stop ends Serve. Safe to call more than once, and before Serve.
func (r *Repository) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

// NewRepository keeps length runs per tenant and forgets tenants idle for ttl.
func NewRepository(length int, ttl time.Duration) *Repository {
	return &Repository{
		length:        length,
		ttl:           ttl,
		runs:          make(map[string]*utils.RingBuffer[Run]),
		updates:       make(map[string]time.Time),
		cleanInterval: time.Minute,
		done:          make(chan struct{}),
	}
}
