package admin

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParse(t *testing.T) {
	cases := []struct {
		act    string
		action Action
		text   string
	}{
		{"style", BumpStyle, ""},
		{"denounce", Denounce, ""},
		{"announce Server maintenance at 20:00", Announce, "Server maintenance at 20:00"},
		{"announce <b>bold</b>", Announce, "<b>bold</b>"},
		{"announce", Unknown, ""},
		{"Style", Unknown, ""},
		{"rm -rf /", Unknown, ""},
		{"", Unknown, ""},
	}
	for _, c := range cases {
		t.Run(c.act, func(t *testing.T) {
			cmd := Parse(c.act)
			assert.Equal(t, c.action, cmd.Action)
			assert.Equal(t, c.text, cmd.Text)
		})
	}
}

func TestStateConcurrentStyle(t *testing.T) {
	s := NewState()
	wg := sync.WaitGroup{}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.BumpStyle()
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1600, s.Style())
}

func TestCommandApply(t *testing.T) {
	s := NewState()
	_, ok := s.Announcement()
	assert.False(t, ok)

	assert.Equal(t, "Announcement changed", Parse("announce hello").Apply(s))
	text, ok := s.Announcement()
	assert.True(t, ok)
	assert.Equal(t, "hello", text)

	assert.Equal(t, "Announcement disabled", Parse("denounce").Apply(s))
	_, ok = s.Announcement()
	assert.False(t, ok)

	assert.Equal(t, "Style count increment", Parse("style").Apply(s))
	assert.EqualValues(t, 1, s.Style())

	assert.Equal(t, "Unknown command", Parse("dance").Apply(s))
	assert.EqualValues(t, 1, s.Style())
}

func TestDigest(t *testing.T) {
	assert.Equal(t,
		"cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e",
		Digest(""))
	assert.Len(t, Digest(randomdata.SillyName()), 128)
}

type shellSuite struct {
	suite.Suite
	dir      string
	key      string
	state    *State
	verifier *Verifier
}

func TestShellSuite(t *testing.T) {
	suite.Run(t, new(shellSuite))
}

func (s *shellSuite) SetupTest() {
	var err error
	s.dir, err = os.MkdirTemp("", "gondola-admin-*")
	s.Require().NoError(err)
	s.key = randomdata.Alphanumeric(24)
	s.writeSecret(Digest(s.key) + "\n")
	s.state = NewState()
	s.verifier = NewVerifier(s.secretPath(), time.Minute, nil)
}

func (s *shellSuite) TearDownTest() {
	s.verifier.Stop()
	s.Require().NoError(os.RemoveAll(s.dir))
}

func (s *shellSuite) secretPath() string {
	return filepath.Join(s.dir, "password")
}

func (s *shellSuite) writeSecret(content string) {
	s.Require().NoError(os.WriteFile(s.secretPath(), []byte(content), 0o600))
}

func (s *shellSuite) newShell(rate float64, burst int) *Shell {
	return NewShell(ShellConfig{State: s.state, Verifier: s.verifier, Rate: rate, Burst: burst})
}

func (s *shellSuite) TestNoCommand() {
	sh := s.newShell(0, 0)
	s.Equal(Outcome{Message: MsgNoCommand}, sh.Run("", s.key))
	s.Equal(Outcome{Message: MsgNoCommand}, sh.Run("style", ""))
	s.EqualValues(0, s.state.Style())
}

func (s *shellSuite) TestWrongPassword() {
	sh := s.newShell(0, 0)
	s.Equal(Outcome{Message: MsgWrongPass}, sh.Run("style", s.key+"x"))
	s.EqualValues(0, s.state.Style())
}

func (s *shellSuite) TestCommands() {
	sh := s.newShell(0, 0)

	s.Equal(Outcome{Ran: true, Message: "Style count increment"}, sh.Run("style", s.key))
	s.EqualValues(1, s.state.Style())

	s.Equal(Outcome{Ran: true, Message: "Announcement changed"}, sh.Run("announce Back soon", s.key))
	text, ok := s.state.Announcement()
	s.True(ok)
	s.Equal("Back soon", text)

	s.Equal(Outcome{Ran: true, Message: "Announcement disabled"}, sh.Run("denounce", s.key))
	_, ok = s.state.Announcement()
	s.False(ok)

	s.Equal(Outcome{Ran: true, Message: "Unknown command"}, sh.Run("reboot", s.key))
}

func (s *shellSuite) TestSecretNotHex() {
	s.writeSecret("hunter2")
	sh := s.newShell(0, 0)
	s.Equal(Outcome{Message: MsgSecretNotHex}, sh.Run("style", s.key))
	s.EqualValues(0, s.state.Style())
}

func (s *shellSuite) TestSecretMissing() {
	s.Require().NoError(os.Remove(s.secretPath()))
	sh := s.newShell(0, 0)
	s.Equal(Outcome{Message: MsgWrongPass}, sh.Run("style", s.key))
}

func (s *shellSuite) TestSecretIsCached() {
	sh := s.newShell(0, 0)
	s.True(sh.Run("style", s.key).Ran)

	s.writeSecret(Digest("rotated"))
	s.True(sh.Run("style", s.key).Ran, "digest is served from cache until it expires")
	s.EqualValues(2, s.state.Style())
}

func (s *shellSuite) TestSecretExpires() {
	s.verifier.Stop()
	s.verifier = NewVerifier(s.secretPath(), 20*time.Millisecond, nil)
	sh := s.newShell(0, 0)
	s.True(sh.Run("style", s.key).Ran)

	s.writeSecret(Digest("rotated"))
	s.Eventually(func() bool {
		return sh.Run("style", "rotated").Ran
	}, time.Second, 25*time.Millisecond)
}

func (s *shellSuite) TestThrottled() {
	sh := s.newShell(0.001, 2)
	s.Equal(Outcome{Message: MsgWrongPass}, sh.Run("style", "guess"))
	s.Equal(Outcome{Message: MsgWrongPass}, sh.Run("style", "guess again"))
	s.Equal(Outcome{Message: MsgWrongPass}, sh.Run("style", s.key), "correct key is refused once throttled")
	s.EqualValues(0, s.state.Style())
}

func TestVerifierDefaults(t *testing.T) {
	v := NewVerifier(filepath.Join(t.TempDir(), "none"), 0, nil)
	defer v.Stop()
	require.Equal(t, DefaultSecretTTL, v.ttl)
	assert.ErrorIs(t, v.Verify("x"), ErrWrongPassword)
}
