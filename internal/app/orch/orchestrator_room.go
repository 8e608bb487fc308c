package orch

import (
	"context"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// CreateRoom joins a fresh room as its host.
func (o *Orchestrator) CreateRoom(ctx context.Context, user domain.Participant) (domain.RoomID, error) {
	id := domain.NewRoomID()
	log.Info().Str("module", "orch").Str("room", string(id)).Str("host", string(user.ID)).Msg("creating room")
	return id, o.JoinRoom(ctx, id, user.AsHost())
}

// JoinRoom announces the client, then acquires media in the background.
// Peer links open once media is settled, with or without a device.
// Joining another room leaves the current one first.
//
// When the channel has to be dialed first, the dial runs off the loop and
// JoinRoom returns nil right away; a dial failure arrives as a
// NoticeJoinFailed.
func (o *Orchestrator) JoinRoom(ctx context.Context, roomID domain.RoomID, user domain.Participant) error {
	const op = "join-room"
	if current, ok := o.currentRoom(); ok {
		if current == roomID {
			return core.NewError(op, core.ErrAlreadyInRoom)
		}
		log.Info().Str("module", "orch").Str("from_room", string(current)).Str("room", string(roomID)).Msg("switching rooms")
		if err := o.LeaveRoom(); err != nil {
			log.Warn().Err(err).Str("module", "orch").Msg("leaving previous room")
		}
	}

	if o.chanOps == 0 && o.Channel.Connected() {
		return o.enter(ctx, roomID, user)
	}

	o.epoch++
	epoch := o.epoch
	o.joining = roomID
	ch := o.Channel
	log.Info().Str("module", "orch").Str("room", string(roomID)).Msg("connecting signaling channel")
	o.channelOp(func() error {
		if ch.Connected() {
			return nil
		}
		return ch.Connect(ctx)
	}, func(err error) {
		if epoch != o.epoch {
			log.Debug().Str("module", "orch").Str("room", string(roomID)).Msg("join superseded while connecting")
			return
		}
		o.joining = ""
		if err != nil {
			err = core.NewError(op, err)
			log.Warn().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("join failed")
			o.notify(Notice{Kind: NoticeJoinFailed, Err: err})
			return
		}
		if err := o.enter(ctx, roomID, user); err != nil {
			log.Warn().Err(err).Str("module", "orch").Msg("join announce failed")
		}
	})
	return nil
}

func (o *Orchestrator) currentRoom() (domain.RoomID, bool) {
	if o.joining != "" {
		return o.joining, true
	}
	if o.Store.InRoom() {
		return o.Store.RoomID(), true
	}
	return "", false
}

// enter sets up the room once the channel is up.
func (o *Orchestrator) enter(ctx context.Context, roomID domain.RoomID, user domain.Participant) error {
	o.channelUp = true

	o.epoch++
	roomCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.roomCtx = roomCtx
	o.Registry.Bind(roomID, user.ID, cancel)

	o.Store.Init(roomID, user)
	o.Store.Attach()
	o.Peers.Init(roomCtx, roomID, user.ID)
	o.unsubs = append(o.unsubs,
		o.Store.Subscribe(o.onStoreChange),
		o.Channel.Subscribe(core.EventChannelDisconnected, o.onChannelDown),
		o.Channel.Subscribe(core.EventChannelConnected, o.onChannelUp),
	)

	log.Info().Str("module", "orch").Str("room", string(roomID)).Str("user", string(user.ID)).Bool("host", user.IsHost).Msg("joined room")
	err := o.announce()
	o.acquireMedia(roomCtx)
	return err
}

// channelOp runs work off the loop once every earlier channel operation
// has finished, then hands its result to then on the loop. Dials and
// disconnects therefore reach the channel in the order they were asked for.
func (o *Orchestrator) channelOp(work func() error, then func(error)) {
	prev := o.chanTail
	done := make(chan struct{})
	o.chanTail = done
	o.chanOps++
	o.Loop.Go(func() func() {
		if prev != nil {
			<-prev
		}
		err := work()
		close(done)
		return func() {
			o.chanOps--
			then(err)
		}
	})
}

func (o *Orchestrator) announce() error {
	self := o.Store.Self()
	err := o.Channel.Send(core.Outbound{
		Event:   core.EventJoinRoom,
		Room:    o.Store.RoomID(),
		From:    self.ID,
		Payload: core.JoinRoomPayload{RoomID: o.Store.RoomID(), User: self},
	})
	if err != nil {
		return core.NewError("join-room", err)
	}
	return nil
}

// LeaveRoom tears down everything JoinRoom set up. It is safe after a
// partial join and when called twice. The channel is released off the loop
// once no room uses it.
func (o *Orchestrator) LeaveRoom() error {
	var err error
	roomID := o.Store.RoomID()
	self := o.Store.Self()

	if o.Store.InRoom() {
		sendErr := o.Channel.Send(core.Outbound{
			Event:   core.EventLeaveRoom,
			Room:    roomID,
			From:    self.ID,
			Payload: core.LeaveRoomPayload{RoomID: roomID, UserID: self.ID},
		})
		if sendErr != nil {
			err = core.NewError("leave-room", sendErr)
		}
	}
	if o.joining != "" {
		log.Info().Str("module", "orch").Str("room", string(o.joining)).Msg("pending join cancelled")
		o.joining = ""
	}

	// continuations of the previous room see a stale epoch from here on
	o.epoch++
	for _, unsub := range o.unsubs {
		unsub()
	}
	o.unsubs = nil

	o.Peers.Teardown()
	o.releaseMedia()
	o.Store.Reset()
	o.Store.Detach()
	if roomID != "" {
		o.Registry.Unbind(roomID)
	}
	o.roomCtx = nil

	if o.Registry.Len() == 0 && (o.chanOps > 0 || o.Channel.Connected()) {
		ch := o.Channel
		o.channelOp(func() error {
			if !ch.Connected() {
				return nil
			}
			return ch.Disconnect()
		}, func(err error) {
			if err != nil {
				log.Warn().Err(err).Str("module", "orch").Msg("signaling channel released with errors")
			}
		})
	}
	o.channelUp = false
	if roomID != "" {
		log.Info().Str("module", "orch").Str("room", string(roomID)).Msg("left room")
	}
	return err
}

func (o *Orchestrator) onChannelDown(core.Envelope) {
	if !o.channelUp {
		return
	}
	o.channelUp = false
	log.Warn().Str("module", "orch").Str("room", string(o.Store.RoomID())).Msg("signaling channel lost")
	o.notify(Notice{Kind: NoticeChannelLost, Err: core.ErrNotConnected})
}

// onChannelUp announces the client again after a reconnect so the server
// restores its membership.
func (o *Orchestrator) onChannelUp(core.Envelope) {
	if o.channelUp || !o.Store.InRoom() {
		return
	}
	o.channelUp = true
	log.Info().Str("module", "orch").Str("room", string(o.Store.RoomID())).Msg("signaling channel restored")
	if err := o.announce(); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("re-announce failed")
	}
	o.notify(Notice{Kind: NoticeChannelRestored})
}
