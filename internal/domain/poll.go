package domain

import "slices"

const (
	MinPollOptions = 2
	MaxPollOptions = 6
)

type (
	PollID   string
	OptionID string
)

type PollOption struct {
	ID        OptionID `json:"id"`
	Text      string   `json:"text"`
	VoteCount int      `json:"votes"`
}

type Poll struct {
	ID        PollID       `json:"id"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	Active    bool         `json:"isActive"`
	CreatedAt int64        `json:"createdAt"` // unix millis
}

// Clone copies the option list so callers never share vote counters.
func (p Poll) Clone() Poll {
	p.Options = slices.Clone(p.Options)
	return p
}

func (p Poll) OptionIndex(id OptionID) (int, bool) {
	for i, o := range p.Options {
		if o.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (p Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.VoteCount
	}
	return total
}

// Newer reports whether p was created after o (id breaks ties).
func (p Poll) Newer(o Poll) bool {
	if p.CreatedAt != o.CreatedAt {
		return p.CreatedAt > o.CreatedAt
	}
	return p.ID > o.ID
}
