package deadreckon

// ResyncMessage is dispatched when a NetworkClock snaps its offset instead of
// blending toward it.
type ResyncMessage struct {
	Clock  string
	Frame  uint64
	Reason ResyncReason
	// Error is the gap between authoritative and network time that was discarded.
	Error  float64
	Offset float64
}

func (ResyncMessage) Type() string { return "ResyncMessage" }

// SnapshotRejectedMessage is dispatched when a replicator discards a snapshot.
type SnapshotRejectedMessage struct {
	EntityID        uint64
	SendTime        float64
	WorkingSendTime float64
}

func (SnapshotRejectedMessage) Type() string { return "SnapshotRejectedMessage" }
