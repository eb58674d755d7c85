package deadreckon

import "github.com/EngoEngine/ecs"

// PredictionSystem ticks every replicator once per frame.
type PredictionSystem struct {
	Entities []*Replicator
}

func (ps *PredictionSystem) Add(r *Replicator) {
	ps.Entities = append(ps.Entities, r)
}

func (ps *PredictionSystem) Remove(ent ecs.BasicEntity) {
	idx := -1
	for i, e := range ps.Entities {
		if e.ID() == ent.ID() {
			idx = i
		}
	}
	if idx != -1 {
		ps.Entities = append(ps.Entities[:idx], ps.Entities[idx+1:]...)
	}
}

// Priority runs prediction after snapshots for the frame are delivered.
func (ps *PredictionSystem) Priority() int { return 0 }

func (ps *PredictionSystem) Update(dt float32) {
	for _, e := range ps.Entities {
		e.Tick(dt)
	}
}
