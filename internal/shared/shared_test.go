package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "iwkbu_session", time.Hour, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Empty(t, sess.User())

	sess.SetUser("operator")
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Berhasil"})
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, mr.Exists("iwkbu:session:"+sess.ID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "operator", loaded.User())
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Berhasil", flash.Message)
	assert.Nil(t, loaded.PopFlash())
}

func TestSessionFreshIsNotStored(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	assert.Empty(t, rec.Result().Cookies())
	assert.Empty(t, mr.Keys())
}

func TestSessionUnknownCookieStartsFresh(t *testing.T) {
	sm, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "iwkbu_session", Value: "forged"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "forged", sess.ID)
}

func TestSessionRenewAndDestroy(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, _ := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	sess.Set("k", "v")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	oldID := sess.ID

	require.NoError(t, sm.Renew(ctx, sess))
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	assert.NotEqual(t, oldID, sess.ID)
	assert.False(t, mr.Exists("iwkbu:session:"+oldID))
	assert.True(t, mr.Exists("iwkbu:session:"+sess.ID))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	assert.False(t, mr.Exists("iwkbu:session:"+sess.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestCSRFToken(t *testing.T) {
	sm, _ := newTestManager(t)
	csrf := NewCSRFManager("secret")
	sess, _ := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))

	token, err := csrf.EnsureToken(sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(sess, "nope"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(nil, token), ErrCSRFTokenMissing)

	_, err = csrf.EnsureToken(nil)
	assert.ErrorIs(t, err, ErrSessionMissing)
}

func TestTokenIssueAndParse(t *testing.T) {
	now := time.Now()
	issuer := NewTokenIssuer("jwt-secret", time.Hour).WithNow(func() time.Time { return now })

	token, expires, err := issuer.Issue("operator")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), expires, time.Second)

	user, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", user)

	_, err = NewTokenIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.Parse("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = issuer.Issue("")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	token, _, err := NewTokenIssuer("s", time.Hour).WithNow(func() time.Time { return past }).Issue("operator")
	require.NoError(t, err)

	_, err = NewTokenIssuer("s", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer("s", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestUserFromContext(t *testing.T) {
	sm, _ := newTestManager(t)
	sess, _ := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	sess.SetUser("web")

	ctx := ContextWithSession(context.Background(), sess)
	assert.Equal(t, "web", UserFromContext(ctx))
	assert.Equal(t, "api", UserFromContext(ContextWithUser(ctx, "api")))
	assert.Empty(t, UserFromContext(context.Background()))
}
