package core

import "github.com/dkeye/Huddle/internal/domain"

// Outbound events.
const (
	EventJoinRoom           = "join-room"
	EventLeaveRoom          = "leave-room"
	EventSendMessage        = "send-message"
	EventCreatePoll         = "create-poll"
	EventVotePoll           = "vote-poll"
	EventEndPoll            = "end-poll"
	EventCreateBreakoutRoom = "create-breakout-room"
	EventJoinBreakoutRoom   = "join-breakout-room"
	EventLeaveBreakoutRoom  = "leave-breakout-room"
	EventToggleRecording    = "toggle-recording"
)

// Inbound (authoritative) events.
const (
	EventParticipantsUpdated = "participants-updated"
	EventNewMessage          = "new-message"
	EventPollCreated         = "poll-created"
	EventPollUpdated         = "poll-updated"
	EventPollEnded           = "poll-ended"
	EventBreakoutCreated     = "breakout-room-created"
	EventBreakoutUpdated     = "breakout-room-updated"
	EventBreakoutDeleted     = "breakout-room-deleted"
	EventUserJoined          = "user-joined"
	EventUserDisconnected    = "user-disconnected"
	EventRecordingUpdated    = "recording-updated"
)

// EventPeerSignal travels both ways, addressed to one remote participant.
const EventPeerSignal = "peer-signal"

// Local events raised by the channel adapter itself, never sent on the wire.
const (
	EventChannelConnected    = "channel-connected"
	EventChannelDisconnected = "channel-disconnected"
)

type JoinRoomPayload struct {
	RoomID domain.RoomID      `json:"roomId"`
	User   domain.Participant `json:"user"`
}

type LeaveRoomPayload struct {
	RoomID domain.RoomID        `json:"roomId"`
	UserID domain.ParticipantID `json:"userId"`
}

type SendMessagePayload struct {
	RoomID  domain.RoomID  `json:"roomId"`
	Message domain.Message `json:"message"`
}

type CreatePollPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	Poll   domain.Poll   `json:"poll"`
}

type VotePollPayload struct {
	RoomID   domain.RoomID        `json:"roomId"`
	PollID   domain.PollID        `json:"pollId"`
	OptionID domain.OptionID      `json:"optionId"`
	UserID   domain.ParticipantID `json:"userId"`
}

type EndPollPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	PollID domain.PollID `json:"pollId"`
}

type CreateBreakoutRoomPayload struct {
	RoomID       domain.RoomID       `json:"roomId"`
	BreakoutRoom domain.BreakoutRoom `json:"breakoutRoom"`
}

// BreakoutMembershipPayload is shared by join-breakout-room and leave-breakout-room.
type BreakoutMembershipPayload struct {
	MainRoomID     domain.RoomID         `json:"mainRoomId"`
	BreakoutRoomID domain.BreakoutRoomID `json:"breakoutRoomId"`
	UserID         domain.ParticipantID  `json:"userId"`
}

type ToggleRecordingPayload struct {
	RoomID      domain.RoomID `json:"roomId"`
	IsRecording bool          `json:"isRecording"`
}

type RecordingPayload struct {
	IsRecording bool `json:"isRecording"`
}

type PeerSignalPayload struct {
	RoomID domain.RoomID        `json:"roomId"`
	From   domain.ParticipantID `json:"from"`
	To     domain.ParticipantID `json:"to"`
	Signal SignalDescriptor     `json:"signal"`
}
