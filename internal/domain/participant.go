package domain

import "github.com/google/uuid"

// ConnectionID identifies one live transport connection.
// A reconnecting client always gets a fresh one.
type ConnectionID string

func NewConnectionID() ConnectionID { return ConnectionID(uuid.NewString()) }

// Participant represents an identity's presence in a meeting through one connection.
// No transport or lifecycle logic here.
type Participant struct {
	Identity
	ConnectionID ConnectionID `json:"connectionId"`
}

func NewParticipant(id Identity, cid ConnectionID) Participant {
	return Participant{Identity: id, ConnectionID: cid}
}
