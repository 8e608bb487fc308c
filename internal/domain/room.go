package domain

import (
	"strings"

	"github.com/lithammer/shortuuid/v4"
)

const roomCodeLen = 8

type RoomID string

// Room is the local view of the main room.
type Room struct {
	ID              RoomID        `json:"id"`
	Participants    []Participant `json:"participants"`
	RecordingActive bool          `json:"isRecording"`
}

// NewRoomID returns a short, shareable room code.
func NewRoomID() RoomID {
	return RoomID(strings.ToLower(shortuuid.New()[:roomCodeLen]))
}
