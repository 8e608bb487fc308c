// Package console renders session state as terminal tables.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/domain"
)

// MessageTail is how many chat lines Render prints.
const MessageTail = 10

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// Render prints the room, peers, polls and the chat tail.
func Render(w io.Writer, st orch.Status) {
	if !st.InRoom {
		fmt.Fprintln(w, "not in a room")
		return
	}
	renderParticipants(w, st)
	renderPolls(w, st)
	renderBreakouts(w, st)
	renderMessages(w, st)
}

func renderParticipants(w io.Writer, st orch.Status) {
	title := fmt.Sprintf("Room %s", st.Room.Room.ID)
	if st.Room.Room.RecordingActive {
		title += " (recording)"
	}
	if !st.Connected {
		title += " (offline)"
	}
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Name", "Role", "Link", "Media"})

	links := make(map[domain.ParticipantID]string, len(st.Links))
	kinds := make(map[domain.ParticipantID]string, len(st.Links))
	for _, l := range st.Links {
		links[l.Participant] = l.State
		kinds[l.Participant] = strings.Join(l.Kinds, "+")
	}
	for _, id := range st.Unreachable {
		links[id] = text.FgRed.Sprint("unreachable")
	}

	for _, p := range st.Room.Room.Participants {
		role := ""
		if p.IsHost {
			role = "host"
		}
		link, media := links[p.ID], kinds[p.ID]
		if p.ID == st.Room.Self.ID {
			link = "you"
			media = selfMedia(st)
		}
		if link == "" {
			link = "-"
		}
		t.AppendRow(table.Row{p.DisplayName, role, link, media})
	}
	t.Render()
}

func selfMedia(st orch.Status) string {
	if !st.HasMedia {
		return "none"
	}
	parts := []string{"audio"}
	if st.Muted {
		parts[0] = "muted"
	}
	if st.ScreenShared {
		parts = append(parts, "screen")
	} else if st.VideoOn {
		parts = append(parts, "video")
	}
	return strings.Join(parts, "+")
}

func renderPolls(w io.Writer, st orch.Status) {
	if st.Room.ActivePoll == nil {
		return
	}
	p := st.Room.ActivePoll
	t := newTable(w, "Poll: "+p.Question)
	t.AppendHeader(table.Row{"#", "Option", "Votes"})
	for i, o := range p.Options {
		t.AppendRow(table.Row{i + 1, o.Text, o.VoteCount})
	}
	t.AppendFooter(table.Row{"", "Total", p.TotalVotes()})
	t.Render()
}

func renderBreakouts(w io.Writer, st orch.Status) {
	if len(st.Room.BreakoutRooms) == 0 {
		return
	}
	t := newTable(w, "Breakout rooms")
	t.AppendHeader(table.Row{"ID", "Name", "Members"})
	for _, b := range st.Room.BreakoutRooms {
		names := make([]string, 0, len(b.Members))
		for _, m := range b.Members {
			names = append(names, m.DisplayName)
		}
		name := b.Name
		if st.Room.Breakout != nil && st.Room.Breakout.ID == b.ID {
			name = text.Bold.Sprint(name)
		}
		t.AppendRow(table.Row{b.ID, name, strings.Join(names, ", ")})
	}
	t.Render()
}

func renderMessages(w io.Writer, st orch.Status) {
	msgs := st.Room.Messages
	if len(msgs) == 0 {
		return
	}
	if len(msgs) > MessageTail {
		msgs = msgs[len(msgs)-MessageTail:]
	}
	t := newTable(w, "Chat")
	t.AppendHeader(table.Row{"Time", "From", "Message"})
	for _, m := range msgs {
		body := m.Body
		if m.IsQuestion {
			body = "Q: " + body
		}
		t.AppendRow(table.Row{m.Time().Format("15:04:05"), m.AuthorName, body})
	}
	t.Render()
}

// Notice prints one user-facing notice line.
func Notice(w io.Writer, n orch.Notice) {
	line := string(n.Kind)
	if n.Err != nil {
		line = fmt.Sprintf("%s: %v", line, n.Err)
	}
	switch n.Kind {
	case orch.NoticeMediaUnavailable, orch.NoticeScreenShareFailed, orch.NoticeChannelLost, orch.NoticeJoinFailed:
		fmt.Fprintln(w, text.FgYellow.Sprint("! "+line))
	default:
		fmt.Fprintln(w, "* "+line)
	}
}
