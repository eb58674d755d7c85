package deadreckon

import "github.com/EngoEngine/ecs"

// smoothing factor applied to each new frame delta
const smoothDeltaFactor = 0.2

// FrameClock accumulates the engine's per-frame delta into a local clock and a
// frame counter. Add it to the world first so every later system in the same
// frame observes the new frame.
type FrameClock struct {
	time        float64
	frame       uint64
	delta       float32
	smoothDelta float32
}

func (fc *FrameClock) Remove(ecs.BasicEntity) {}

// Priority runs the frame clock ahead of receive and prediction systems.
func (fc *FrameClock) Priority() int { return 100 }

func (fc *FrameClock) Update(dt float32) {
	fc.Advance(dt)
}

// Advance moves the clock to the next frame.
func (fc *FrameClock) Advance(dt float32) {
	fc.frame++
	fc.time += float64(dt)
	fc.delta = dt
	if fc.smoothDelta == 0 {
		fc.smoothDelta = dt
	} else {
		fc.smoothDelta += (dt - fc.smoothDelta) * smoothDeltaFactor
	}
}

func (fc *FrameClock) Time() float64            { return fc.time }
func (fc *FrameClock) Frame() uint64            { return fc.frame }
func (fc *FrameClock) DeltaTime() float32       { return fc.delta }
func (fc *FrameClock) SmoothDeltaTime() float32 { return fc.smoothDelta }
