package entity

import "encoding/json"

type EventType string

const (
	EventConnected      EventType = "connected"
	EventJoinedMachine  EventType = "joined_machine"
	EventTicketClosed   EventType = "ticket_closed"
	EventTicketCreated  EventType = "ticket_created"
	EventMachineStopped EventType = "machine_stopped"
	EventError          EventType = "error"
)

// Event mirrors the JSON frames the operator server pushes over its /ws channel.
type Event struct {
	Type      EventType       `yaml:"type" json:"type"`
	TicketID  int             `yaml:"ticket_id,omitempty" json:"ticketId,omitempty"`
	MachineID int             `yaml:"machine_id,omitempty" json:"machineId,omitempty"`
	Message   string          `yaml:"message,omitempty" json:"message,omitempty"`
	Data      json.RawMessage `yaml:"-" json:"data,omitempty"`
}

func TicketClosed(ticketID, machineID int) Event {
	return Event{
		Type:      EventTicketClosed,
		TicketID:  ticketID,
		MachineID: machineID,
	}
}
