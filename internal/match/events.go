package match

// EventType classifies a history entry.
type EventType string

const (
	EventTurnOrder   EventType = "turn_order"
	EventOption      EventType = "option"
	EventDice        EventType = "dice"
	EventChest       EventType = "chest"
	EventCombat      EventType = "combat"
	EventElimination EventType = "elimination"
	EventVictory     EventType = "victory"
	EventEndTurn     EventType = "end_turn"
	EventTimeout     EventType = "timeout"
	EventCastleRegen EventType = "castle_regen"
	EventRebelSpawn  EventType = "rebel_spawn"
	EventChestSpawn  EventType = "chest_spawn"
)

// Event is a human-readable record of something that happened in a match.
type Event struct {
	Turn     int       `json:"turn"`
	PlayerID string    `json:"playerId,omitempty"`
	Type     EventType `json:"type"`
	Message  string    `json:"message"`
}

func (m *Match) record(t EventType, playerID, msg string) {
	m.events = append(m.events, Event{
		Turn:     m.state.CurrentTurn,
		PlayerID: playerID,
		Type:     t,
		Message:  msg,
	})
}

// TakeEvents returns and clears the events recorded since the last call.
func (m *Match) TakeEvents() []Event {
	ev := m.events
	m.events = nil
	return ev
}
