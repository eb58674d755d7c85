package deadreckon

// LocalClock is the monotonic time source of this peer.
type LocalClock interface {
	Time() float64
	DeltaTime() float32
	SmoothDeltaTime() float32
}

// AuthoritativeClock is the reference time every peer reconciles against.
type AuthoritativeClock interface {
	Time() float64
}

// FrameCounter identifies the current rendered frame. It must strictly
// increase from one frame to the next.
type FrameCounter interface {
	Frame() uint64
}

// TimeSource is anything that reports network time, usually a *NetworkClock.
type TimeSource interface {
	Time() float64
}
