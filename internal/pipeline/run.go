package pipeline

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// RunStatus represents the state of a generation run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusOutline   RunStatus = "outline"
	StatusPlanning  RunStatus = "planning"
	StatusContent   RunStatus = "content"
	StatusDiagrams  RunStatus = "diagrams"
	StatusCompleted RunStatus = "completed"
	StatusDryRun    RunStatus = "dry_run"
	StatusFailed    RunStatus = "failed"
)

// Run tracks the state of a single generation run.
type Run struct {
	mu sync.Mutex

	ID    string
	Title string
	Dir   string

	Status RunStatus
	Phase  string

	Progress Progress

	StartedAt time.Time
	UpdatedAt time.Time

	warnings []string
	err      string
}

// Progress tracks content generation progress.
type Progress struct {
	NodesTotal      int      `json:"nodes_total"`
	NodesDone       int      `json:"nodes_done"`
	OverviewRetries int      `json:"overview_retries"`
	Warnings        []string `json:"warnings"`
}

// NewRun creates a pending run. An empty id gets a fresh ULID.
func NewRun(id, title, dir string) *Run {
	if id == "" {
		id = generateULID()
	}
	now := time.Now()
	return &Run{
		ID:        id,
		Title:     title,
		Dir:       dir,
		Status:    StatusPending,
		Phase:     "pending",
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Phase = phase
	r.UpdatedAt = time.Now()
}

// Fail marks the run failed with err.
func (r *Run) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusFailed
	r.err = err.Error()
	r.UpdatedAt = time.Now()
}

// AddWarning records a recoverable problem.
func (r *Run) AddWarning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
	r.Progress.Warnings = r.warnings
	r.UpdatedAt = time.Now()
}

// SetTitle records the document title once the outline is known.
func (r *Run) SetTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Title = title
}

// SetTotal records the number of nodes to generate.
func (r *Run) SetTotal(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.NodesTotal = n
	r.UpdatedAt = time.Now()
}

// IncrNodesDone atomically increments generated nodes.
func (r *Run) IncrNodesDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.NodesDone++
	r.UpdatedAt = time.Now()
}

// IncrOverviewRetries counts a weak-overview retry.
func (r *Run) IncrOverviewRetries() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.OverviewRetries++
	r.UpdatedAt = time.Now()
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string    `json:"run_id"`
	Title     string    `json:"title"`
	Dir       string    `json:"dir"`
	Status    RunStatus `json:"status"`
	Phase     string    `json:"phase"`
	Error     string    `json:"error,omitempty"`
	Progress  Progress  `json:"progress"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Elapsed   string    `json:"elapsed"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	warnings := make([]string, len(r.warnings))
	copy(warnings, r.warnings)
	return RunSnapshot{
		ID:     r.ID,
		Title:  r.Title,
		Dir:    r.Dir,
		Status: r.Status,
		Phase:  r.Phase,
		Error:  r.err,
		Progress: Progress{
			NodesTotal:      r.Progress.NodesTotal,
			NodesDone:       r.Progress.NodesDone,
			OverviewRetries: r.Progress.OverviewRetries,
			Warnings:        warnings,
		},
		StartedAt: r.StartedAt,
		UpdatedAt: r.UpdatedAt,
		Elapsed:   r.UpdatedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
	}
}

var (
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashesRe  = regexp.MustCompile(`-+`)
)

// Slugify lowercases s and reduces it to [a-z0-9-], at most 50 characters.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalidRe.ReplaceAllString(s, "-")
	s = slugDashesRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// RunDirName names a run directory "<ULID>-<slug>" so runs sort by start time.
func RunDirName(id, title string) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "untitled"
	}
	return id + "-" + slug
}
