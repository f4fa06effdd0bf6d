package multiplayer

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// CoordinatorConfig holds configuration for the coordinator.
type CoordinatorConfig struct {
	// History is how many finished matches stay queryable in memory.
	History int
}

// DefaultCoordinatorConfig returns sensible defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{History: 32}
}

// MatchResultSaver saves match results. It lets the coordinator persist
// results without depending on the storage package.
type MatchResultSaver interface {
	SaveMatchResult(result MatchResultData) error
}

// MatchResultData contains match result data for persistence.
type MatchResultData struct {
	MatchID      string
	Mode         string
	Player1      string
	Player2      string
	Score1       int
	Score2       int
	Lines1       int
	Lines2       int
	Winner       string
	EndReason    string
	Ticks        uint64
	DurationSecs int
	Digest       string
	EndedAt      time.Time
}

// NewMatchID returns a fresh random match id.
func NewMatchID() MatchID {
	return MatchID(uuid.NewString())
}

// Coordinator tracks live matches and the most recent finished ones.
type Coordinator struct {
	config      CoordinatorConfig
	resultSaver MatchResultSaver // Optional, can be nil
	log         *log.Logger

	mu       sync.RWMutex
	matches  map[MatchID]*Match
	finished []*Match
	wg       sync.WaitGroup
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.History < 0 {
		cfg.History = 0
	}
	return &Coordinator{
		config:  cfg,
		log:     log.New(io.Discard),
		matches: make(map[MatchID]*Match),
	}
}

// SetResultSaver sets the optional match result saver.
func (c *Coordinator) SetResultSaver(saver MatchResultSaver) {
	c.resultSaver = saver
}

// SetLogger sets the coordinator logger.
func (c *Coordinator) SetLogger(l *log.Logger) {
	if l != nil {
		c.log = l
	}
}

// Run registers m, runs it until it ends or ctx is cancelled, and saves
// the result.
func (c *Coordinator) Run(ctx context.Context, m *Match) (MatchResult, error) {
	c.add(m)
	res, err := m.Run(ctx)
	c.handleMatchEnded(m, res)
	return res, err
}

// Start runs m in a new goroutine. Wait blocks until every started match
// has ended.
func (c *Coordinator) Start(ctx context.Context, m *Match) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.Run(ctx, m)
	}()
}

// Wait blocks until every match started with Start has ended.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) add(m *Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches[m.ID()] = m
}

func (c *Coordinator) handleMatchEnded(m *Match, result MatchResult) {
	c.mu.Lock()
	delete(c.matches, m.ID())
	if c.config.History > 0 {
		c.finished = append(c.finished, m)
		if over := len(c.finished) - c.config.History; over > 0 {
			c.finished = c.finished[over:]
		}
	}
	c.mu.Unlock()

	if c.resultSaver == nil {
		return
	}
	tickRate := max(1, m.runtime.TickRate)
	data := MatchResultData{
		MatchID:      string(result.MatchID),
		Mode:         result.Mode.String(),
		Player1:      result.Players[0],
		Player2:      result.Players[1],
		Score1:       result.Scores[0],
		Score2:       result.Scores[1],
		Lines1:       result.Lines[0],
		Lines2:       result.Lines[1],
		Winner:       result.WinnerName(),
		EndReason:    result.Reason.String(),
		Ticks:        result.Ticks,
		DurationSecs: int(result.Ticks / uint64(tickRate)), //nolint:gosec // tickRate is clamped positive
		Digest:       result.Digest,
		EndedAt:      time.Now().UTC(),
	}
	if err := c.resultSaver.SaveMatchResult(data); err != nil {
		c.log.Error("cannot save match result", "match", result.MatchID, "err", err)
	}
}

// Get returns a live or recently finished match by ID.
func (c *Coordinator) Get(id MatchID) (*Match, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.matches[id]; ok {
		return m, true
	}
	for _, m := range c.finished {
		if m.ID() == id {
			return m, true
		}
	}
	return nil, false
}

// Matches returns summaries of live matches ordered by ID.
func (c *Coordinator) Matches() []Summary {
	c.mu.RLock()
	out := make([]Summary, 0, len(c.matches))
	for _, m := range c.matches {
		out = append(out, m.Summary())
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out
}

// Subscribe registers s with a match. It reports false for unknown ids.
func (c *Coordinator) Subscribe(id MatchID, s Subscriber) bool {
	m, ok := c.Get(id)
	if !ok {
		return false
	}
	m.Subscribe(s)
	return true
}

// Cancel asks every live match to end.
func (c *Coordinator) Cancel() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.matches {
		m.Cancel()
	}
}

// MatchCount returns the number of live matches.
func (c *Coordinator) MatchCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.matches)
}

// RunFast is Run for local matches stepped on logical time without sleeping.
func (c *Coordinator) RunFast(m *Match, start time.Time) (MatchResult, error) {
	c.add(m)
	res, err := m.RunFast(start)
	if err != nil {
		c.mu.Lock()
		delete(c.matches, m.ID())
		c.mu.Unlock()
		return res, err
	}
	c.handleMatchEnded(m, res)
	return res, nil
}
