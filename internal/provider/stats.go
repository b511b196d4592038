package provider

import (
	"slices"
	"sync"
	"time"
)

// Phases label requests so usage can be broken down by generation step.
const (
	PhaseOutline      = "outline"
	PhaseIntroduction = "introduction"
	PhaseSummaries    = "summaries"
	PhaseManual       = "manual_overview"
	PhaseOverview     = "overview"
	PhaseDetail       = "detail"
	PhaseDiagrams     = "diagrams"
	PhaseOther        = "other"
)

// PhaseOrder is the order phases run in during a generation.
var PhaseOrder = []string{
	PhaseOutline, PhaseIntroduction, PhaseSummaries, PhaseManual,
	PhaseOverview, PhaseDetail, PhaseDiagrams, PhaseOther,
}

func phaseOf(req Request) string {
	if req.Phase == "" {
		return PhaseOther
	}
	return req.Phase
}

// Latency aggregates call durations in milliseconds.
type Latency struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Usage totals the token accounting reported by the provider.
type Usage struct {
	Calls            int   `json:"calls"`
	Errors           int   `json:"errors"`
	InputTokens      int64 `json:"input_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
	CacheReadTokens  int64 `json:"cache_read_tokens"`
	CacheWriteTokens int64 `json:"cache_write_tokens"`
}

func (u *Usage) add(o Usage) {
	u.Calls += o.Calls
	u.Errors += o.Errors
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.CacheReadTokens += o.CacheReadTokens
	u.CacheWriteTokens += o.CacheWriteTokens
}

// PhaseStats is the latency and usage of one generation phase.
type PhaseStats struct {
	Latency
	Usage Usage `json:"usage"`
}

// StatsSnapshot is the windowed latency of every call plus the per-phase
// breakdown.
type StatsSnapshot struct {
	Latency
	Phases map[string]PhaseStats `json:"phases,omitempty"`
}

type timing struct {
	at    time.Time
	phase string
	ms    int64
}

// Stats tracks call latencies within a rolling window and token usage for
// the whole run, both keyed by phase.
type Stats struct {
	mu      sync.Mutex
	window  time.Duration
	timings []timing
	total   Usage
	phases  map[string]*Usage
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		window:  window,
		timings: make([]timing, 0, 128),
		phases:  make(map[string]*Usage),
	}
}

// Record adds one call duration for phase.
func (s *Stats) Record(phase string, d time.Duration) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now)
	s.timings = append(s.timings, timing{at: now, phase: phase, ms: max(d.Milliseconds(), 0)})
}

// AddUsage accumulates one call's token counts under phase.
func (s *Stats) AddUsage(phase string, u Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.add(u)
	p, ok := s.phases[phase]
	if !ok {
		p = &Usage{}
		s.phases[phase] = p
	}
	p.add(u)
}

// Usage returns the run totals.
func (s *Stats) Usage() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// PhaseUsage returns a copy of the per-phase totals.
func (s *Stats) PhaseUsage() map[string]Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Usage, len(s.phases))
	for k, v := range s.phases {
		out[k] = *v
	}
	return out
}

func (s *Stats) Snapshot() StatsSnapshot {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now)

	all := make([]int64, 0, len(s.timings))
	byPhase := make(map[string][]int64)
	for _, t := range s.timings {
		all = append(all, t.ms)
		byPhase[t.phase] = append(byPhase[t.phase], t.ms)
	}

	snap := StatsSnapshot{Latency: summarize(all)}
	if len(s.phases) == 0 && len(byPhase) == 0 {
		return snap
	}
	snap.Phases = make(map[string]PhaseStats)
	for phase, u := range s.phases {
		snap.Phases[phase] = PhaseStats{Usage: *u}
	}
	for phase, ms := range byPhase {
		ps := snap.Phases[phase]
		ps.Latency = summarize(ms)
		snap.Phases[phase] = ps
	}
	return snap
}

// expireLocked drops timings older than the window, keeping order.
func (s *Stats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.timings) && s.timings[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.timings = append(s.timings[:0], s.timings[i:]...)
	}
}

func summarize(ms []int64) Latency {
	if len(ms) == 0 {
		return Latency{}
	}
	sorted := slices.Clone(ms)
	slices.Sort(sorted)
	var sum int64
	for _, v := range sorted {
		sum += v
	}
	return Latency{
		Count: len(sorted),
		MinMs: sorted[0],
		MaxMs: sorted[len(sorted)-1],
		AvgMs: float64(sum) / float64(len(sorted)),
		P50Ms: percentile(sorted, 50),
		P95Ms: percentile(sorted, 95),
		P99Ms: percentile(sorted, 99),
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	last := len(sorted) - 1
	switch {
	case last < 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[last])
	}
	rank := float64(last) * pct / 100
	lo := int(rank)
	if lo >= last {
		return float64(sorted[last])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
