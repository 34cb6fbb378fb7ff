package blog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	codec := NewTokenCodec("test-secret", time.Hour, nil)
	dispatcher := NewDispatcher(NewMemStore(), codec, nil)
	srv := httptest.NewServer(NewHandlers(dispatcher, codec, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postGraph(t *testing.T, srv *httptest.Server, token string, body any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/graph", bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestWelcomeRoute(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterLoginCreatePostOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postGraph(t, srv, "", Request{
		Operation: "register",
		Args: map[string]any{
			"username":    "alice",
			"email":       "a@x.com",
			"password":    "p1",
			"displayName": "Alice",
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var registered Response
	require.NoError(t, json.Unmarshal(body, &registered))
	require.Nil(t, registered.Error)

	resp, body = postGraph(t, srv, "", Request{
		Operation: "login",
		Args:      map[string]any{"email": "a@x.com", "password": "p1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loggedIn Response
	require.NoError(t, json.Unmarshal(body, &loggedIn))
	require.Nil(t, loggedIn.Error)
	token, ok := loggedIn.Data.(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	resp, body = postGraph(t, srv, token, Request{
		Operation: "createPost",
		Args:      map[string]any{"title": "T", "body": "B"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created Response
	require.NoError(t, json.Unmarshal(body, &created))
	require.Nil(t, created.Error)
	post, ok := created.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "T", post["title"])
	assert.NotEmpty(t, post["authorId"])
}

func TestBadTokenRunsAnonymously(t *testing.T) {
	srv := newTestServer(t)
	resp, body := postGraph(t, srv, "garbage-token", Request{
		Operation: "createPost",
		Args:      map[string]any{"title": "T", "body": "B"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var out Response
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotNil(t, out.Error)
	assert.Equal(t, FailAuthenticationRequired, out.Error.Kind)
}

func TestBadTokenDoesNotBreakAnonymousReads(t *testing.T) {
	srv := newTestServer(t)
	resp, body := postGraph(t, srv, "garbage-token", Request{Operation: "posts"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out Response
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Nil(t, out.Error)
}

func TestBatchIsolatesFailures(t *testing.T) {
	srv := newTestServer(t)
	resp, body := postGraph(t, srv, "", []Request{
		{Operation: "noSuchOperation"},
		{Operation: "posts"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []Response
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out, 2)
	require.NotNil(t, out[0].Error)
	assert.Equal(t, FailInvalidOperation, out[0].Error.Kind)
	assert.Nil(t, out[1].Error, "a failing sibling must not abort the rest of the batch")
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postGraph(t, srv, "", Request{Operation: "noSuchOperation"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postGraph(t, srv, "", Request{
		Operation: "login",
		Args:      map[string]any{"email": "nobody@x.com", "password": "p"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
