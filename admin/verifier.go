package admin

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/OdyseeTeam/gondola/pkg/logging"

	"github.com/karlseguin/ccache/v2"
)

const (
	DefaultSecretTTL = 30 * time.Second
	secretCacheKey   = "secret"
)

var (
	ErrWrongPassword = errors.New("wrong password")
	ErrSecretNotHex  = errors.New("secret is not in hex format")
)

// Verifier checks shell keys against a hex-encoded SHA-512 digest kept in a file.
type Verifier struct {
	path  string
	ttl   time.Duration
	cache *ccache.Cache
	log   logging.KVLogger
}

func NewVerifier(path string, ttl time.Duration, log logging.KVLogger) *Verifier {
	if ttl <= 0 {
		ttl = DefaultSecretTTL
	}
	if log == nil {
		log = logging.NoopKVLogger{}
	}
	return &Verifier{
		path:  path,
		ttl:   ttl,
		cache: ccache.New(ccache.Configure().MaxSize(1)),
		log:   log,
	}
}

// Stop releases the digest cache.
func (v *Verifier) Stop() {
	v.cache.Stop()
}

// Verify returns nil when the digest of key matches the stored secret.
// An unreadable secret file is reported as ErrWrongPassword.
func (v *Verifier) Verify(key string) error {
	item, err := v.cache.Fetch(secretCacheKey, v.ttl, v.loadSecret)
	if err != nil {
		if errors.Is(err, ErrSecretNotHex) {
			return err
		}
		v.log.Error("cannot read shell secret", "path", v.path, "err", err)
		return ErrWrongPassword
	}
	digest := sha512.Sum512([]byte(key))
	if subtle.ConstantTimeCompare(digest[:], item.Value().([]byte)) != 1 {
		return ErrWrongPassword
	}
	return nil
}

func (v *Verifier) loadSecret() (interface{}, error) {
	data, err := os.ReadFile(v.path)
	if err != nil {
		return nil, err
	}
	secret, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, ErrSecretNotHex
	}
	return secret, nil
}

// Digest returns the hex SHA-512 digest of key, as stored in the secret file.
func Digest(key string) string {
	d := sha512.Sum512([]byte(key))
	return hex.EncodeToString(d[:])
}
