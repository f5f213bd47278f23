package admin

import "strings"

type Action int

const (
	Unknown Action = iota
	BumpStyle
	Denounce
	Announce
)

const announcePrefix = "announce "

// Command is a parsed shell input.
type Command struct {
	Action Action
	// Text is the announcement for Announce.
	Text string
}

func Parse(act string) Command {
	switch {
	case act == "style":
		return Command{Action: BumpStyle}
	case act == "denounce":
		return Command{Action: Denounce}
	case strings.HasPrefix(act, announcePrefix):
		return Command{Action: Announce, Text: strings.TrimPrefix(act, announcePrefix)}
	default:
		return Command{Action: Unknown}
	}
}

// Apply performs c on s and returns the feedback shown to the operator.
func (c Command) Apply(s *State) string {
	switch c.Action {
	case BumpStyle:
		s.BumpStyle()
		return "Style count increment"
	case Denounce:
		s.Denounce()
		return "Announcement disabled"
	case Announce:
		s.Announce(c.Text)
		return "Announcement changed"
	default:
		return "Unknown command"
	}
}

func (a Action) String() string {
	switch a {
	case BumpStyle:
		return "style"
	case Denounce:
		return "denounce"
	case Announce:
		return "announce"
	default:
		return "unknown"
	}
}
