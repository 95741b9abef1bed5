// Package telemetry contains the analytics event model.
package telemetry

import (
	"maps"
	"strings"
	"time"
)

// Well-known event names that destinations enrich.
const (
	NameStartup  = "startup"
	NameShutdown = "shutdown"
	NameCrash    = "crash"
)

// Event is one application telemetry event.
//
// EventID is assigned when the event is enqueued and only used on the
// wire; persisted records do not carry it.
type Event struct {
	Name           string            `json:"name" yaml:"name"`
	Timestamp      int64             `json:"timestamp" yaml:"timestamp"`
	UserID         string            `json:"user_id" yaml:"user_id"`
	Parameters     map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	UserProperties map[string]string `json:"user_properties,omitempty" yaml:"user_properties,omitempty"`
	EventID        string            `json:"-" yaml:"-"`
}

// New builds an event stamped with the current time.
func New(name string, params map[string]string) Event {
	return Event{
		Name:       name,
		Timestamp:  time.Now().Unix(),
		Parameters: maps.Clone(params),
	}
}

// Clone returns a copy that shares no maps with e.
func (e Event) Clone() Event {
	out := e
	out.Parameters = maps.Clone(e.Parameters)
	out.UserProperties = maps.Clone(e.UserProperties)
	return out
}

// Time returns the timestamp as a time.Time.
func (e Event) Time() time.Time {
	return time.Unix(e.Timestamp, 0)
}

// Valid reports whether the event carries a name.
func (e Event) Valid() bool {
	return strings.TrimSpace(e.Name) != ""
}

// Equal compares everything that survives persistence.
func (e Event) Equal(o Event) bool {
	return e.Name == o.Name &&
		e.Timestamp == o.Timestamp &&
		e.UserID == o.UserID &&
		equalMaps(e.Parameters, o.Parameters) &&
		equalMaps(e.UserProperties, o.UserProperties)
}

// equalMaps treats nil and empty as equal.
func equalMaps(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	return maps.Equal(a, b)
}
