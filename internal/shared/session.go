package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage is a one-time notice shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager keeps cookie sessions in Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session is the per-request view of a stored session.
type Session struct {
	ID        string
	values    map[string]string
	username  string
	flashes   []FlashMessage
	fresh     bool
	dirty     bool
	destroyed bool
}

type storedSession struct {
	Values   map[string]string `json:"values,omitempty"`
	Username string            `json:"username,omitempty"`
	Flashes  []FlashMessage    `json:"flashes,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{client: client, cookieName: cookieName, ttl: ttl, secure: secure}
}

// Load returns the session named by the request cookie, or a fresh one.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return sm.fresh(), nil
	}
	if err != nil {
		return nil, err
	}

	raw, err := sm.client.Get(ctx, sm.key(cookie.Value)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired or forged ids are never reused.
		return sm.fresh(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	sess := &Session{ID: cookie.Value, values: stored.Values, username: stored.Username, flashes: stored.Flashes}
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	return sess, nil
}

// Commit persists a changed session and refreshes the cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.key(sess.ID)).Err(); err != nil {
			return err
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}
	if sess.fresh && !sess.dirty {
		// Nothing worth storing yet.
		return nil
	}
	if sess.dirty {
		data, err := json.Marshal(storedSession{Values: sess.values, Username: sess.username, Flashes: sess.flashes})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.key(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.fresh = false
	}
	http.SetCookie(w, sm.cookie(sess.ID, int(sm.ttl.Seconds())))
	return nil
}

// Destroy marks the session for deletion on commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// Renew moves the session data to a new id, used after login.
func (sm *SessionManager) Renew(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if !sess.fresh {
		if err := sm.client.Del(ctx, sm.key(sess.ID)).Err(); err != nil {
			return err
		}
	}
	sess.ID = uuid.NewString()
	sess.dirty = true
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the session cookie name.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) fresh() *Session {
	return &Session{ID: uuid.NewString(), values: make(map[string]string), fresh: true}
}

func (sm *SessionManager) key(id string) string {
	return "iwkbu:session:" + id
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Set stores a value.
func (s *Session) Set(key, value string) {
	s.values[key] = value
	s.dirty = true
}

// Get reads a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// SetUser binds the session to a username.
func (s *Session) SetUser(username string) {
	s.username = username
	s.dirty = true
}

// User returns the signed-in username, empty for guests.
func (s *Session) User() string {
	if s == nil {
		return ""
	}
	return s.username
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash removes and returns the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if s == nil || len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}
