package searcher

import (
	"sync/atomic"
	"time"
)

// SearchMetrics summarizes one Search invocation.
type SearchMetrics struct {
	StartTime      time.Time
	Duration       time.Duration
	Descents       int64
	Evaluations    int64
	OracleFailures int64
	MaxPly         int64
	TreeSize       int
}

// Collector gathers per-search counters. Implementations must be safe
// for concurrent workers.
type Collector interface {
	Start()
	AddDescent()
	AddEvaluation()
	AddOracleFailure()
	ObservePly(ply int)
	SetTreeSize(size int)
	Complete() SearchMetrics
}

type collector struct {
	startTime      time.Time
	descents       atomic.Int64
	evaluations    atomic.Int64
	oracleFailures atomic.Int64
	maxPly         atomic.Int64
	treeSize       atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

// Start clears the counters of the previous invocation; the collector
// outlives individual searches but its numbers must not.
func (c *collector) Start() {
	c.startTime = time.Now()
	c.descents.Store(0)
	c.evaluations.Store(0)
	c.oracleFailures.Store(0)
	c.maxPly.Store(0)
	c.treeSize.Store(0)
}

func (c *collector) AddDescent() {
	c.descents.Add(1)
}

func (c *collector) AddEvaluation() {
	c.evaluations.Add(1)
}

func (c *collector) AddOracleFailure() {
	c.oracleFailures.Add(1)
}

func (c *collector) ObservePly(ply int) {
	for {
		cur := c.maxPly.Load()
		if int64(ply) <= cur || c.maxPly.CompareAndSwap(cur, int64(ply)) {
			return
		}
	}
}

func (c *collector) SetTreeSize(size int) {
	c.treeSize.Store(int64(size))
}

func (c *collector) Complete() SearchMetrics {
	return SearchMetrics{
		StartTime:      c.startTime,
		Duration:       time.Since(c.startTime),
		Descents:       c.descents.Load(),
		Evaluations:    c.evaluations.Load(),
		OracleFailures: c.oracleFailures.Load(),
		MaxPly:         c.maxPly.Load(),
		TreeSize:       int(c.treeSize.Load()),
	}
}

type noopCollector struct{}

// NewNoopCollector returns a collector that records nothing. It is the
// default so that searches pay no metrics cost unless asked to.
func NewNoopCollector() Collector {
	return &noopCollector{}
}

func (noopCollector) Start()                  {}
func (noopCollector) AddDescent()             {}
func (noopCollector) AddEvaluation()          {}
func (noopCollector) AddOracleFailure()       {}
func (noopCollector) ObservePly(int)          {}
func (noopCollector) SetTreeSize(int)         {}
func (noopCollector) Complete() SearchMetrics { return SearchMetrics{} }
