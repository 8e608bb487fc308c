// Package domain contains room-scoped entities without transport or lifecycle logic.
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen = 36
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

type ParticipantID string

// Participant is one connected client in a room.
type Participant struct {
	ID          ParticipantID `json:"id"`
	DisplayName string        `json:"name"`
	IsHost      bool          `json:"isHost"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(displayName string) (*Participant, error) {
	name, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	return &Participant{ID: ParticipantID(uuid.NewString()), DisplayName: name}, nil
}

func (p *Participant) SetDisplayName(displayName string) error {
	name, err := normalizeDisplayName(displayName)
	if err != nil {
		return err
	}
	p.DisplayName = name
	return nil
}

// AsHost returns a copy of p carrying the host capability.
func (p Participant) AsHost() Participant {
	p.IsHost = true
	return p
}

func normalizeDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) == 0 {
		return "", ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}

// Initiates reports whether local is the side that creates the offer
// towards remote. Both ends evaluate the same rule without negotiation.
func Initiates(local, remote ParticipantID) bool {
	return local < remote
}
