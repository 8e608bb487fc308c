package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/domain"
)

var ErrUnknownCommand = errors.New("unknown command")

// Runner executes fn on the goroutine that owns the session state.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Shell reads slash commands, one per line. A line without a leading
// slash is sent as a chat message.
type Shell struct {
	Loop Runner
	Orch *orch.Orchestrator
	Out  io.Writer
	User domain.Participant
}

const help = `commands:
  <text>                     send a chat message
  /q <text>                  ask a question
  /poll <question>|<a>|<b>.. create a poll (host)
  /vote <n>                  vote for option n of the active poll
  /end                       end the active poll (host)
  /breakout <name>           create a breakout room (host)
  /join <breakout-id>        join a breakout room
  /back                      leave the breakout room
  /rec                       toggle recording (host)
  /mute  /video              toggle local audio or video
  /screen  /unscreen         start or stop screen sharing
  /retry <participant-id>    retry an unreachable peer
  /room <room-id>            switch to another room
  /status                    print the session
  /leave                     leave and quit`

// Run returns when in is exhausted, ctx ends or the user leaves.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var (
			quit bool
			err  error
		)
		if lerr := s.Loop.Do(ctx, func() { quit, err = s.Exec(ctx, line) }); lerr != nil {
			return lerr
		}
		if err != nil {
			fmt.Fprintf(s.Out, "! %v\n", err)
			log.Debug().Err(err).Str("module", "console").Str("line", line).Msg("command failed")
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

// Exec runs one line. It must be called on the loop.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool, err error) {
	if !strings.HasPrefix(line, "/") {
		_, err = s.Orch.Store.SendMessage(line, false)
		return false, err
	}
	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	st := s.Orch.Store

	switch cmd {
	case "help":
		fmt.Fprintln(s.Out, help)
	case "q":
		_, err = st.SendMessage(arg, true)
	case "poll":
		parts := strings.Split(arg, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		_, err = st.CreatePoll(parts[0], parts[1:])
	case "vote":
		err = s.vote(arg)
	case "end":
		p, ok := st.ActivePoll()
		if !ok {
			return false, errors.New("no active poll")
		}
		err = st.EndPoll(p.ID)
	case "breakout":
		var b domain.BreakoutRoom
		if b, err = st.CreateBreakoutRoom(arg); b.ID != "" {
			fmt.Fprintf(s.Out, "* breakout room %s (%s)\n", b.Name, b.ID)
		}
	case "join":
		err = st.JoinBreakoutRoom(domain.BreakoutRoomID(arg))
	case "back":
		err = st.LeaveBreakoutRoom()
	case "rec":
		var on bool
		if on, err = st.ToggleRecording(); err == nil {
			fmt.Fprintf(s.Out, "* recording %v\n", on)
		}
	case "mute":
		var muted bool
		if muted, err = s.Orch.ToggleMute(); err == nil {
			fmt.Fprintf(s.Out, "* muted %v\n", muted)
		}
	case "video":
		var on bool
		if on, err = s.Orch.ToggleVideo(); err == nil {
			fmt.Fprintf(s.Out, "* video %v\n", on)
		}
	case "screen":
		err = s.Orch.StartScreenShare(ctx)
	case "unscreen":
		err = s.Orch.StopScreenShare()
	case "retry":
		if !s.Orch.RetryPeer(domain.ParticipantID(arg)) {
			err = fmt.Errorf("%s is not unreachable", arg)
		}
	case "room":
		if arg == "" {
			return false, errors.New("room id required")
		}
		err = s.Orch.JoinRoom(ctx, domain.RoomID(arg), s.User)
	case "status":
		Render(s.Out, s.Orch.Status())
	case "leave", "quit":
		return true, s.Orch.LeaveRoom()
	default:
		return false, fmt.Errorf("%w: /%s", ErrUnknownCommand, cmd)
	}
	return false, err
}

func (s *Shell) vote(arg string) error {
	p, ok := s.Orch.Store.ActivePoll()
	if !ok {
		return errors.New("no active poll")
	}
	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n < 1 || n > len(p.Options) {
		return fmt.Errorf("option must be 1..%d", len(p.Options))
	}
	return s.Orch.Store.VotePoll(p.ID, p.Options[n-1].ID)
}
