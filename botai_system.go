package deadreckon

import (
	"math/rand"

	"github.com/EngoEngine/ecs"
	log "github.com/sirupsen/logrus"
)

type botPlan struct {
	nextTurnIn float32
	stopTurnIn float32
}

// BotAISystem keeps ships moving and turns them at random intervals.
type BotAISystem struct {
	Rand     *rand.Rand
	MinSpeed float32

	ships []*Ship
	plans map[uint64]*botPlan
}

func (bas *BotAISystem) Add(s *Ship) {
	if bas.plans == nil {
		bas.plans = map[uint64]*botPlan{}
	}
	if bas.Rand == nil {
		bas.Rand = rand.New(rand.NewSource(1))
	}
	bas.ships = append(bas.ships, s)
	bas.plans[s.ID()] = &botPlan{}
}

func (bas *BotAISystem) Remove(ent ecs.BasicEntity) {
	for i, s := range bas.ships {
		if s.ID() == ent.ID() {
			bas.ships = append(bas.ships[:i], bas.ships[i+1:]...)
			break
		}
	}
	delete(bas.plans, ent.ID())
}

// Priority steers before ships move.
func (bas *BotAISystem) Priority() int { return 20 }

func (bas *BotAISystem) Update(dt float32) {
	for _, s := range bas.ships {
		plan := bas.plans[s.ID()]
		if s.Ship.Speed < bas.MinSpeed {
			s.Input.Forward = true
		}

		plan.nextTurnIn -= dt
		plan.stopTurnIn -= dt
		if plan.nextTurnIn <= 0 {
			plan.nextTurnIn = float32(bas.Rand.Intn(10) + 1)
			plan.stopTurnIn = 2

			if bas.Rand.Intn(2) == 0 {
				log.WithField("ship", s.ID()).Debug("Turning left")
				s.Input.Left = true
				s.Input.Right = false
			} else {
				log.WithField("ship", s.ID()).Debug("Turning right")
				s.Input.Left = false
				s.Input.Right = true
			}
			s.Input.Forward = true
		}
		if plan.stopTurnIn <= 0 {
			s.Input.Left = false
			s.Input.Right = false
			s.Input.Forward = s.Ship.Speed < bas.MinSpeed
		}
	}
}
