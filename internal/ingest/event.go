// Package ingest processes secret-created events end to end: metadata
// resolution, retrieval artifact generation, notification, and telemetry.
package ingest

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidEvent marks payloads that cannot yield a secret name.
var ErrInvalidEvent = errors.New("ingest: invalid event payload")

// Event mirrors the envelope emitted when a secret is created. Fields other
// than data.objectName are ignored.
type Event struct {
	Data EventData `json:"data"`
}

// EventData carries the name of the created secret.
type EventData struct {
	ObjectName string `json:"objectName"`
}

// ParseEvent extracts the secret name from a raw event payload.
func ParseEvent(payload []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, errors.Join(ErrInvalidEvent, err)
	}
	if strings.TrimSpace(evt.Data.ObjectName) == "" {
		return Event{}, ErrInvalidEvent
	}
	return evt, nil
}
