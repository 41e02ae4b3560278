package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/talkify/talkify/backends"
	"github.com/talkify/talkify/pkg/cachestore"
)

const geminiReply = `{"candidates":[{"content":{"role":"model","parts":[{"text":"  Great job! (Harika!)  "}]},"finishReason":"STOP"}]}`

type fixture struct {
	tutor    *Tutor
	store    *cachestore.Store
	requests atomic.Int32
	lastBody atomic.Value
	now      time.Time
}

func newFixture(t *testing.T, limit int, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)}
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, geminiReply)
		}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.lastBody.Store(string(body))
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("x-goog-api-key"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store, err := cachestore.Open(backends.NewMemory(8), cachestore.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	f.store = store

	f.tutor = New(store, Config{
		APIKey:     "key-123",
		Model:      "gemini-test",
		BaseURL:    srv.URL + "/",
		DailyLimit: limit,
		HTTPClient: srv.Client(),
		Now:        func() time.Time { return f.now },
	})
	return f
}

func TestAsk(t *testing.T) {
	f := newFixture(t, 3, nil)
	history := []Turn{{Role: "user", Text: "Hi"}, {Role: "model", Text: "Hello!"}}

	reply, err := f.tutor.Ask(context.Background(), history, "I goed to school", AskOptions{Translate: true})
	require.NoError(t, err)

	assert.Equal(t, "Great job! (Harika!)", reply.Text)
	assert.Equal(t, "Great job!", reply.English)
	assert.Equal(t, 2, reply.Remaining)

	body := f.lastBody.Load().(string)
	contents := gjson.Get(body, "contents").Array()
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].Get("role").String())
	last := contents[2].Get("parts.0.text").String()
	assert.Contains(t, last, "Turkish translation")
	assert.True(t, strings.HasSuffix(last, "User said: I goed to school"))
}

func TestDailyLimit(t *testing.T) {
	f := newFixture(t, 2, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.tutor.Ask(ctx, nil, "hello", AskOptions{})
		require.NoError(t, err)
	}
	_, err := f.tutor.Ask(ctx, nil, "hello", AskOptions{})
	require.ErrorIs(t, err, ErrDailyLimit)
	assert.Equal(t, int32(2), f.requests.Load())
	assert.Equal(t, 0, f.tutor.Remaining(ctx))

	f.now = f.now.Add(24 * time.Hour)
	assert.Equal(t, 2, f.tutor.Remaining(ctx), "budget resets the next day")
	_, err = f.tutor.Ask(ctx, nil, "hello again", AskOptions{})
	require.NoError(t, err)
}

func TestQuotaSurvivesRestart(t *testing.T) {
	f := newFixture(t, 5, nil)
	ctx := context.Background()
	_, err := f.tutor.Ask(ctx, nil, "hello", AskOptions{})
	require.NoError(t, err)

	restarted := New(f.store, Config{APIKey: "key-123", DailyLimit: 5, Now: func() time.Time { return f.now }})
	assert.Equal(t, 4, restarted.Remaining(ctx))
}

func TestQuotaSurvivesCacheClear(t *testing.T) {
	f := newFixture(t, 5, nil)
	ctx := context.Background()
	_, err := f.tutor.Ask(ctx, nil, "hello", AskOptions{})
	require.NoError(t, err)

	require.NoError(t, f.store.Clear(ctx))
	assert.Equal(t, 4, f.tutor.Remaining(ctx))
}

func TestNilStoreKeepsQuotaInProcess(t *testing.T) {
	tutor := New(nil, Config{DailyLimit: 1, APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	ctx := context.Background()

	_, err := tutor.Ask(ctx, nil, "hi", AskOptions{})
	require.Error(t, err, "transport fails but the attempt is spent")
	_, err = tutor.Ask(ctx, nil, "hi", AskOptions{})
	require.ErrorIs(t, err, ErrDailyLimit)
}

func TestMessageValidation(t *testing.T) {
	f := newFixture(t, 5, nil)
	ctx := context.Background()

	_, err := f.tutor.Ask(ctx, nil, "   ", AskOptions{})
	require.Error(t, err)

	_, err = f.tutor.Ask(ctx, nil, strings.Repeat("ş", MaxMessageLength), AskOptions{})
	require.NoError(t, err, "limit counts characters, not bytes")
	assert.Contains(t, f.lastBody.Load().(string), strings.Repeat("ş", MaxMessageLength))

	assert.Equal(t, int32(1), f.requests.Load())
}

func TestLongMessageIsCut(t *testing.T) {
	f := newFixture(t, 5, nil)

	reply, err := f.tutor.Ask(context.Background(), nil, strings.Repeat("a", MaxMessageLength)+"TAIL", AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Great job! (Harika!)", reply.Text)
	assert.Equal(t, int32(1), f.requests.Load())

	body := f.lastBody.Load().(string)
	assert.Contains(t, body, strings.Repeat("a", MaxMessageLength))
	assert.NotContains(t, body, "TAIL")
	assert.Equal(t, 4, f.tutor.Remaining(context.Background()))
}

func TestMissingAPIKey(t *testing.T) {
	tutor := New(nil, Config{})
	_, err := tutor.Ask(context.Background(), nil, "hi", AskOptions{})
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "error object", status: http.StatusBadRequest, body: `{"error":{"code":400,"message":"API key not valid"}}`, wantMsg: "API key not valid"},
		{name: "bad status", status: http.StatusServiceUnavailable, body: `upstream down`, wantMsg: "503"},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`, wantErr: ErrEmptyReply},
		{name: "blank text", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, wantErr: ErrEmptyReply},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 5, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := f.tutor.Ask(context.Background(), nil, "hello", AskOptions{})
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr))
			}
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
			assert.Equal(t, 4, f.tutor.Remaining(context.Background()))
		})
	}
}

func TestLongReplyIsTruncated(t *testing.T) {
	long := strings.Repeat("word ", 80)
	f := newFixture(t, 5, func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": long}}},
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	reply, err := f.tutor.Ask(context.Background(), nil, "hello", AskOptions{Pronunciation: true})
	require.NoError(t, err)
	assert.Equal(t, MaxMessageLength, len([]rune(reply.Text)))
	assert.True(t, strings.HasSuffix(reply.Text, "..."))
	assert.Contains(t, f.lastBody.Load().(string), "pronunciation")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcdefghij", clip("abcdefghijklmnop", 10))
	assert.Equal(t, "ççç", clip(strings.Repeat("ç", 20), 3))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "çççççç...", truncate(strings.Repeat("ç", 20), 9))
}
