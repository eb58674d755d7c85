package deadreckon

import (
	"fmt"
	"sort"
)

// Registry owns the network clocks and replicators of one composed system.
// It replaces scene lookups: whoever builds the system creates the registry,
// registers components into it and closes it on teardown.
type Registry struct {
	clocks      map[string]*NetworkClock
	replicators map[uint64]*Replicator
}

func NewRegistry() *Registry {
	return &Registry{
		clocks:      map[string]*NetworkClock{},
		replicators: map[uint64]*Replicator{},
	}
}

// RegisterClock records the clock for owner. Each owner has at most one clock.
func (reg *Registry) RegisterClock(owner string, c *NetworkClock) error {
	if _, ok := reg.clocks[owner]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateClock, owner)
	}
	reg.clocks[owner] = c
	return nil
}

func (reg *Registry) Clock(owner string) (*NetworkClock, bool) {
	c, ok := reg.clocks[owner]
	return c, ok
}

func (reg *Registry) AddReplicator(r *Replicator) error {
	if _, ok := reg.replicators[r.ID()]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateEntity, r.ID())
	}
	reg.replicators[r.ID()] = r
	return nil
}

func (reg *Registry) Replicator(id uint64) (*Replicator, bool) {
	r, ok := reg.replicators[id]
	return r, ok
}

// Replicators returns the registered replicators ordered by entity id.
func (reg *Registry) Replicators() []*Replicator {
	out := make([]*Replicator, 0, len(reg.replicators))
	for _, r := range reg.replicators {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Deliver routes a snapshot to the replicator for id.
func (reg *Registry) Deliver(id uint64, sendTime float64, k Kinematics) error {
	r, ok := reg.replicators[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return r.OnSnapshotReceived(sendTime, k)
}

func (reg *Registry) RemoveReplicator(id uint64) {
	delete(reg.replicators, id)
}

func (reg *Registry) RemoveClock(owner string) {
	delete(reg.clocks, owner)
}

// Close drops every registered component.
func (reg *Registry) Close() {
	reg.clocks = map[string]*NetworkClock{}
	reg.replicators = map[uint64]*Replicator{}
}
