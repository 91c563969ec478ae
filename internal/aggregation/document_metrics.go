package aggregation

import (
	"sort"
	"time"

	"github.com/masmgr/amexamine/internal/automerge"
	"github.com/masmgr/amexamine/internal/burst"
	"github.com/masmgr/amexamine/internal/entropy"
)

// DocumentMetrics holds aggregated statistics for a single decoded document.
type DocumentMetrics struct {
	Path              string
	Size              int
	ChunkCount        int
	ChangeCount       int
	OpCount           int
	Heads             []string
	PendingCount      int
	MissingDeps       []string
	HeadsVerified     bool
	ActionCounts      map[string]int
	ActorChangeCounts map[string]int
	FirstChangeAt     time.Time
	LastChangeAt      time.Time
	ChangeTimes       []time.Time
	BurstScore        float64
}

// ActionCount pairs an action name with the number of ops using it.
type ActionCount struct {
	Action string
	Count  int
}

// NewDocumentMetrics creates a new DocumentMetrics instance.
func NewDocumentMetrics(path string) *DocumentMetrics {
	return &DocumentMetrics{
		Path:              path,
		Heads:             make([]string, 0),
		MissingDeps:       make([]string, 0),
		ActionCounts:      make(map[string]int),
		ActorChangeCounts: make(map[string]int),
		ChangeTimes:       make([]time.Time, 0),
	}
}

// SummarizeDocument aggregates every applied change of doc.
func SummarizeDocument(path string, doc *automerge.Document, size int) *DocumentMetrics {
	m := NewDocumentMetrics(path)
	m.Size = size
	m.ChunkCount = len(doc.Chunks())
	m.PendingCount = len(doc.Pending())
	m.HeadsVerified = doc.HeadsVerified()

	for _, h := range doc.Heads() {
		m.Heads = append(m.Heads, h.String())
	}
	for _, h := range doc.MissingDeps() {
		m.MissingDeps = append(m.MissingDeps, h.String())
	}
	for _, c := range doc.Changes(nil) {
		m.AddChange(c)
	}
	m.BurstScore = burst.NewCalculator(burst.DefaultWindow).Score(m.ChangeTimes)
	return m
}

// LoadDocumentMetrics decodes data and summarizes it.
func LoadDocumentMetrics(path string, data []byte) (*DocumentMetrics, error) {
	doc, err := automerge.Load(data)
	if err != nil {
		return nil, err
	}
	return SummarizeDocument(path, doc, len(data)), nil
}

// AddChange adds a change's contribution to this document's metrics.
func (m *DocumentMetrics) AddChange(c *automerge.Change) {
	m.ChangeCount++
	m.OpCount += len(c.Ops())
	m.ActorChangeCounts[c.Actor().String()]++

	for _, op := range c.Ops() {
		m.ActionCounts[op.ActionName()]++
	}

	// A zero timestamp means the change was recorded without one.
	if c.Time() == 0 {
		return
	}
	when := c.Timestamp()
	m.ChangeTimes = append(m.ChangeTimes, when)
	if m.FirstChangeAt.IsZero() || when.Before(m.FirstChangeAt) {
		m.FirstChangeAt = when
	}
	if m.LastChangeAt.IsZero() || when.After(m.LastChangeAt) {
		m.LastChangeAt = when
	}
}

// ActorCount returns number of unique actors that authored changes.
func (m *DocumentMetrics) ActorCount() int {
	return len(m.ActorChangeCounts)
}

// OwnershipRatio returns proportion of changes by the most active actor.
// A high ratio means one actor wrote most of the history.
func (m *DocumentMetrics) OwnershipRatio() float64 {
	if m.ChangeCount == 0 || len(m.ActorChangeCounts) == 0 {
		return 1.0
	}

	maxChanges := 0
	for _, count := range m.ActorChangeCounts {
		if count > maxChanges {
			maxChanges = count
		}
	}

	return float64(maxChanges) / float64(m.ChangeCount)
}

// ActorEntropy returns the normalized entropy of changes across actors.
// 0 means a single actor, 1 means changes are evenly split.
func (m *DocumentMetrics) ActorEntropy() float64 {
	return entropy.OfMap(m.ActorChangeCounts)
}

// Actions returns the per-action op counts, most frequent first and ties by name.
func (m *DocumentMetrics) Actions() []ActionCount {
	actions := make([]ActionCount, 0, len(m.ActionCounts))
	for action, count := range m.ActionCounts {
		actions = append(actions, ActionCount{Action: action, Count: count})
	}
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].Count != actions[j].Count {
			return actions[i].Count > actions[j].Count
		}
		return actions[i].Action < actions[j].Action
	})
	return actions
}

// Complete reports whether every change was applied and the stored heads matched.
func (m *DocumentMetrics) Complete() bool {
	return m.PendingCount == 0 && len(m.MissingDeps) == 0 && m.HeadsVerified
}
