package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus (for stream handlers that subscribe)
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit publishes an event and logs it
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := m.bus.Emit(eventType, module, data)

	m.log.Info().
		Str("event_id", event.ID).
		Str("event_type", string(eventType)).
		Str("module", module).
		Interface("data", data).
		Msg("Event emitted")
}

// EmitTyped publishes an event with typed data
func (m *Manager) EmitTyped(module string, data EventData) {
	m.Emit(data.EventType(), module, toMap(data))
}

// EmitError publishes an ERROR_OCCURRED event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

// toMap converts typed event data into the generic map carried by Event
func toMap(data EventData) map[string]interface{} {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return result
}
