package app

import "fmt"

// SendPolicy decides what happens to an outbound event while the
// signaling channel is down.
type SendPolicy int

const (
	// QueueWhileDisconnected buffers events (bounded) and flushes them on connect.
	QueueWhileDisconnected SendPolicy = iota
	// RejectWhileDisconnected fails Send with core.ErrNotConnected.
	RejectWhileDisconnected
)

func (p SendPolicy) String() string {
	switch p {
	case QueueWhileDisconnected:
		return "queue"
	case RejectWhileDisconnected:
		return "reject"
	}
	return fmt.Sprintf("SendPolicy(%d)", int(p))
}

func ParseSendPolicy(s string) (SendPolicy, error) {
	switch s {
	case "", "queue":
		return QueueWhileDisconnected, nil
	case "reject":
		return RejectWhileDisconnected, nil
	}
	return 0, fmt.Errorf("unknown send policy %q", s)
}
