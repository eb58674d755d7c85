package deadreckon

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// BacklogEntry is one historical transform sample.
type BacklogEntry struct {
	Timestamp float64
	Position  mgl32.Vec3
	Rotation  mgl32.Quat
}

// Backlog is a bounded history of transforms sorted by timestamp. It only
// interpolates between real samples and never extrapolates past the newest.
type Backlog struct {
	entries []BacklogEntry
}

// Add appends e and then evicts entries older than maxAge relative to e.
// Timestamps must strictly increase; an older or equal entry is rejected with
// ErrOutOfOrder and the backlog is left untouched.
func (b *Backlog) Add(e BacklogEntry, maxAge float64) error {
	if n := len(b.entries); n > 0 && e.Timestamp <= b.entries[n-1].Timestamp {
		return fmt.Errorf("%w: %v is not after %v", ErrOutOfOrder, e.Timestamp, b.entries[n-1].Timestamp)
	}
	b.entries = append(b.entries, e)

	drop := 0
	for drop < len(b.entries)-1 && e.Timestamp-b.entries[drop].Timestamp > maxAge {
		drop++
	}
	if drop > 0 {
		b.entries = append(b.entries[:0], b.entries[drop:]...)
	}
	return nil
}

func (b *Backlog) Len() int { return len(b.entries) }

// Entries returns a copy of the stored history, oldest first.
func (b *Backlog) Entries() []BacklogEntry {
	return append([]BacklogEntry(nil), b.entries...)
}

func (b *Backlog) Clear() { b.entries = b.entries[:0] }

// Interpolatable reports whether t lies strictly between the oldest and newest
// samples.
func (b *Backlog) Interpolatable(t float64) bool {
	n := len(b.entries)
	return n >= 2 && b.entries[0].Timestamp < t && t < b.entries[n-1].Timestamp
}

// Interpolate blends the two samples bracketing t. A t before the oldest
// sample returns the oldest sample and a t after the newest returns the newest.
// An empty backlog returns the origin and identity rotation.
func (b *Backlog) Interpolate(t float64) (mgl32.Vec3, mgl32.Quat) {
	n := len(b.entries)
	if n == 0 {
		return mgl32.Vec3{}, mgl32.QuatIdent()
	}
	if t <= b.entries[0].Timestamp {
		return b.entries[0].Position, b.entries[0].Rotation
	}
	for i := 1; i < n; i++ {
		a, c := b.entries[i-1], b.entries[i]
		if t > c.Timestamp {
			continue
		}
		ratio := float32((t - a.Timestamp) / (c.Timestamp - a.Timestamp))
		pos := a.Position.Add(c.Position.Sub(a.Position).Mul(ratio))
		return pos, mgl32.QuatSlerp(a.Rotation, c.Rotation, ratio)
	}
	last := b.entries[n-1]
	return last.Position, last.Rotation
}
