package events

import (
	"encoding/json"
	"fmt"
)

// Topic carries every user lifecycle event. It doubles as the RabbitMQ
// exchange name and the NSQ topic.
const Topic = "user-events"

// Routing keys on the RabbitMQ exchange
const (
	RoutingKeyUserCreate = "user.create"
	RoutingKeyUserDelete = "user.delete"
	RoutingKeyUserAll    = "user.*"
)

// Operation is the kind of lifecycle change an event announces.
type Operation int

const (
	// OperationUnknown covers empty and unrecognised values. Consumers ignore it.
	OperationUnknown Operation = iota
	OperationCreate
	OperationDelete
)

// ParseOperation maps a wire value to an Operation. Matching is exact and
// case-sensitive; anything else maps to OperationUnknown rather than failing.
func ParseOperation(s string) Operation {
	switch s {
	case "CREATE":
		return OperationCreate
	case "DELETE":
		return OperationDelete
	default:
		return OperationUnknown
	}
}

func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "CREATE"
	case OperationDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// RoutingKey returns the RabbitMQ routing key for events of this kind.
func (o Operation) RoutingKey() string {
	switch o {
	case OperationCreate:
		return RoutingKeyUserCreate
	case OperationDelete:
		return RoutingKeyUserDelete
	default:
		return "user.unknown"
	}
}

// MarshalJSON implements json.Marshaler
func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON implements json.Unmarshaler. Null and non-string values
// decode to OperationUnknown.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*o = OperationUnknown
		return nil
	}
	*o = ParseOperation(s)
	return nil
}

// LifecycleEvent announces the creation or deletion of a user record.
// There is no envelope: no id, timestamp or version.
type LifecycleEvent struct {
	Operation Operation `json:"operation"`
	Email     string    `json:"email"`
	UserName  string    `json:"userName"`
}

// NewUserCreated builds the event published after a user is stored.
func NewUserCreated(email, userName string) LifecycleEvent {
	return LifecycleEvent{Operation: OperationCreate, Email: email, UserName: userName}
}

// NewUserDeleted builds the event published after a user is removed.
func NewUserDeleted(email, userName string) LifecycleEvent {
	return LifecycleEvent{Operation: OperationDelete, Email: email, UserName: userName}
}

// Decode parses a message body. Missing fields are left empty.
func Decode(body []byte) (LifecycleEvent, error) {
	var event LifecycleEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return LifecycleEvent{}, fmt.Errorf("failed to decode lifecycle event: %w", err)
	}
	return event, nil
}
