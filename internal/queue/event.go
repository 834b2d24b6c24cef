// Package queue defines message payloads exchanged over the message broker.
package queue

// ActivityQueueName is the durable queue carrying button activity events.
const ActivityQueueName = "button.activity"

// Kinds of activity events.
const (
	KindUsed      = "used"
	KindRetired   = "retired"
	KindUnretired = "unretired"
)

// ButtonActivityEvent is published whenever a button is triggered,
// retired or unretired. It carries enough information for downstream
// consumers (activity log, notification mailer) to act without querying
// the primary database. ActorID is empty for anonymous usage events.
type ButtonActivityEvent struct {
	Kind       string `json:"kind"`
	ButtonID   string `json:"button_id"`
	ButtonType string `json:"button_type"`
	Title      string `json:"title"`
	ActorID    string `json:"actor_id,omitempty"`
	Origin     string `json:"origin,omitempty"`
	UsageCount int64  `json:"usage_count"`
	OccurredAt string `json:"occurred_at"`
}
