// Package transport carries authoritative entity snapshots from a server to
// observing clients over websockets, msgpack encoded.
package transport

import (
	"fmt"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// EntityState is one entity's kinematic snapshot on the wire.
type EntityState struct {
	ID              uint64     `codec:"id"`
	SendTime        float64    `codec:"t"`
	Position        [3]float32 `codec:"p"`
	Rotation        [4]float32 `codec:"r"` // w, x, y, z
	Velocity        [3]float32 `codec:"v"`
	Acceleration    [3]float32 `codec:"a"`
	AngularVelocity [3]float32 `codec:"w"`
	CircularRate    float32    `codec:"c"`
	RelativeTo      int        `codec:"rel"`
}

// Frame is one broadcast of the server's world.
type Frame struct {
	Seq        uint64        `codec:"seq"`
	ServerTime float64       `codec:"st"`
	Entities   []EntityState `codec:"e"`
}

var msgpackHandle = &codec.MsgpackHandle{}

func Encode(f Frame) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, msgpackHandle).Encode(f); err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}
	return buf, nil
}

func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := codec.NewDecoderBytes(data, msgpackHandle).Decode(&f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
