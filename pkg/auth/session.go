// Package auth binds anonymous browser sessions to lot workspaces. There is
// no login: a session only remembers which workspace table the browser owns.
//
// Cookie keys are the usual securecookie pair, 32 or 64 bytes for the HMAC
// key and 16, 24 or 32 bytes for the AES key (openssl rand -base64 32).
package auth

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/gob"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const (
	workspaceKeyPrefix = "session:"
	defaultBindingTTL  = 7 * 24 * time.Hour
)

// RedisStore keeps the workspace binding in Redis under "session:<id>". The
// browser only carries the signed and encrypted id.
//
// The key lives as long as the workspace would sit idle, and every request
// that reads it pushes the expiry forward, so a binding and its workspace
// age out together.
type RedisStore struct {
	client  *redis.Client
	codecs  []securecookie.Codec
	options *sessions.Options
}

// NewSessionStore returns a store whose bindings expire after idle of
// inactivity, normally the workspace idle TTL. A non-positive idle means
// seven days. secure marks the cookie HTTPS-only.
func NewSessionStore(client *redis.Client, authKey, encryptionKey []byte, secure bool, idle time.Duration) *RedisStore {
	if idle <= 0 {
		idle = defaultBindingTTL
	}
	return &RedisStore{
		client: client,
		codecs: securecookie.CodecsFromPairs(authKey, encryptionKey),
		options: &sessions.Options{
			Path:     "/",
			MaxAge:   int(idle / time.Second),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New never fails. A missing or forged cookie, or a binding that already
// expired, all start an unbound session; the middleware then creates a
// workspace for it.
func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	id, ok := s.cookieID(r, name)
	if !ok {
		return session, nil
	}
	session.ID = id
	if err := s.load(r.Context(), session); err != nil {
		return session, nil
	}
	session.IsNew = false
	return session, nil
}

// Save writes the binding and its cookie. A negative MaxAge drops both.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		s.unbind(r.Context(), session)
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}
	if session.ID == "" {
		session.ID = newBindingID()
	}
	if err := s.save(r.Context(), session); err != nil {
		return fmt.Errorf("persist workspace binding: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *RedisStore) cookieID(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		return "", false
	}
	return id, true
}

func (s *RedisStore) save(ctx context.Context, session *sessions.Session) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(session.Values); err != nil {
		return fmt.Errorf("encode session values: %w", err)
	}
	if err := s.client.Set(ctx, bindingKey(session.ID), buf.Bytes(), idleTTL(session)).Err(); err != nil {
		return fmt.Errorf("set binding in redis: %w", err)
	}
	return nil
}

// load slides the expiry forward while reading.
func (s *RedisStore) load(ctx context.Context, session *sessions.Session) error {
	data, err := s.client.GetEx(ctx, bindingKey(session.ID), idleTTL(session)).Bytes()
	if err != nil {
		return fmt.Errorf("get binding from redis: %w", err)
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(&session.Values)
}

func (s *RedisStore) unbind(ctx context.Context, session *sessions.Session) {
	if session.ID == "" {
		return
	}
	_ = s.client.Del(ctx, bindingKey(session.ID)).Err()
}

func bindingKey(id string) string { return workspaceKeyPrefix + id }

func idleTTL(session *sessions.Session) time.Duration {
	return time.Duration(session.Options.MaxAge) * time.Second
}

func newBindingID() string {
	return strings.TrimRight(base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
}
