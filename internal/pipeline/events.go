package pipeline

import (
	"sync"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/sim"
)

// MeasurementEvent is a sensor output tagged with the agent that produced it.
type MeasurementEvent struct {
	Agent       agent.ID
	Measurement sim.Measurement
}

// MeasurementQueue carries events from the sensor pass to the next
// estimation epoch. Events keep their arrival order and are never dropped
// between a push and the following drain.
type MeasurementQueue struct {
	mu     sync.Mutex
	events []MeasurementEvent
	pushed uint64
}

// NewMeasurementQueue returns an empty queue.
func NewMeasurementQueue() *MeasurementQueue {
	return &MeasurementQueue{}
}

// Push appends measurements for one agent in the given order.
func (q *MeasurementQueue) Push(id agent.ID, ms ...sim.Measurement) {
	if len(ms) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range ms {
		q.events = append(q.events, MeasurementEvent{Agent: id, Measurement: m})
	}
	q.pushed += uint64(len(ms))
}

// Drain removes and returns every pending event in arrival order.
func (q *MeasurementQueue) Drain() []MeasurementEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len returns the number of pending events.
func (q *MeasurementQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Pushed returns the number of events ever pushed.
func (q *MeasurementQueue) Pushed() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed
}

// GroupByAgent batches events per agent. Each batch keeps arrival order.
func GroupByAgent(events []MeasurementEvent) map[agent.ID][]sim.Measurement {
	groups := make(map[agent.ID][]sim.Measurement)
	for _, ev := range events {
		groups[ev.Agent] = append(groups[ev.Agent], ev.Measurement)
	}
	return groups
}
