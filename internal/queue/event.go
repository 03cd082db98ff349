// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

import "time"

// EventsQueue is the durable queue every lifecycle event is routed to.
const EventsQueue = "marketplace.events"

// LifecycleEvent is published after a committed state change of a demande,
// payment, message or document.  It carries enough context for audit
// logging without querying the primary database.
type LifecycleEvent struct {
    Kind       string `json:"kind"`
    Entity     string `json:"entity"`
    EntityID   uint64 `json:"entity_id"`
    ActorID    uint64 `json:"actor_id"`
    Statut     string `json:"statut,omitempty"`
    OccurredAt string `json:"occurred_at"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(kind, entity string, id, actor uint64, statut string) LifecycleEvent {
    return LifecycleEvent{
        Kind:       kind,
        Entity:     entity,
        EntityID:   id,
        ActorID:    actor,
        Statut:     statut,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    }
}
