package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Publisher forwards events outside the process.
type Publisher interface {
	Publish(event *Event) error
}

// Manager handles event emission and logging
type Manager struct {
	bus       *Bus
	publisher Publisher
	log       zerolog.Logger
}

// NewManager creates a new event manager. publisher may be nil.
func NewManager(bus *Bus, publisher Publisher, log zerolog.Logger) *Manager {
	return &Manager{
		bus:       bus,
		publisher: publisher,
		log:       log.With().Str("service", "events").Logger(),
	}
}

// Emit emits an event to the bus, the publisher, and the log
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	if m.bus != nil {
		m.bus.Publish(event)
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(event); err != nil {
			m.log.Warn().
				Err(err).
				Str("event_type", string(eventType)).
				Msg("Failed to publish event")
		}
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitTyped emits an event with typed data
func (m *Manager) EmitTyped(module string, data EventData) {
	m.Emit(data.EventType(), module, convertEventDataToMap(data))
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

// Bus returns the in-process bus for subscribers
func (m *Manager) Bus() *Bus {
	return m.bus
}

// convertEventDataToMap flattens typed data through its JSON form
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}
	return result
}
