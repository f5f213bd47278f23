package admin

import (
	"errors"

	"github.com/OdyseeTeam/gondola/internal/metrics"
	"github.com/OdyseeTeam/gondola/pkg/logging"

	"golang.org/x/time/rate"
)

const (
	MsgNoCommand    = "No command run"
	MsgWrongPass    = "Wrong password"
	MsgSecretNotHex = "Password is not in hex format on the server"
)

var ErrThrottled = errors.New("too many shell attempts")

// Outcome is what the shell page reports back.
type Outcome struct {
	// Ran is set when a command was authorized and applied.
	Ran     bool
	Message string
}

type Shell struct {
	state    *State
	verifier *Verifier
	limiter  *rate.Limiter
	log      logging.KVLogger
}

type ShellConfig struct {
	State    *State
	Verifier *Verifier
	// Rate and Burst bound authorization attempts. A zero Rate disables throttling.
	Rate  float64
	Burst int
	Log   logging.KVLogger
}

func NewShell(cfg ShellConfig) *Shell {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Log == nil {
		cfg.Log = logging.NoopKVLogger{}
	}
	return &Shell{
		state:    cfg.State,
		verifier: cfg.Verifier,
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		log:      cfg.Log,
	}
}

// Run authorizes key and applies act to the shared state.
func (s *Shell) Run(act, key string) Outcome {
	if act == "" || key == "" {
		return Outcome{Message: MsgNoCommand}
	}

	if err := s.authorize(key); err != nil {
		switch {
		case errors.Is(err, ErrSecretNotHex):
			metrics.ShellAttempts.WithLabelValues("bad_secret").Inc()
			s.log.Error("shell secret is not a hex digest")
			return Outcome{Message: MsgSecretNotHex}
		case errors.Is(err, ErrThrottled):
			metrics.ShellAttempts.WithLabelValues("throttled").Inc()
			s.log.Warn("shell attempt throttled")
		default:
			metrics.ShellAttempts.WithLabelValues("denied").Inc()
			s.log.Warn("shell attempt with wrong password")
		}
		return Outcome{Message: MsgWrongPass}
	}

	cmd := Parse(act)
	msg := cmd.Apply(s.state)
	metrics.ShellAttempts.WithLabelValues("accepted").Inc()
	s.log.Info("shell command executed", "command", cmd.Action.String())
	return Outcome{Ran: true, Message: msg}
}

func (s *Shell) authorize(key string) error {
	if !s.limiter.Allow() {
		return ErrThrottled
	}
	return s.verifier.Verify(key)
}
