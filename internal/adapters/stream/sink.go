package stream

import (
	"drone-delivery-service/internal/api/dto"
	"drone-delivery-service/internal/simulation"
)

// Event names pushed to stream clients.
const (
	EventDroneUpdate      = "drone_update"
	EventDeliveryComplete = "delivery_complete"
)

// SnapshotSink broadcasts simulation snapshots to every connected
// client in their wire form.
type SnapshotSink struct{ hub *Hub }

func NewSnapshotSink(hub *Hub) *SnapshotSink { return &SnapshotSink{hub: hub} }

// DroneUpdate implements simulation.SnapshotSink.
func (s *SnapshotSink) DroneUpdate(snap simulation.Snapshot) {
	s.hub.Broadcast(EventDroneUpdate, dto.FromSnapshot(snap))
}

// DeliveryComplete implements simulation.SnapshotSink.
func (s *SnapshotSink) DeliveryComplete(snap simulation.Snapshot) {
	s.hub.Broadcast(EventDeliveryComplete, dto.FromSnapshot(snap))
}
