package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkify/talkify/backends"
	"github.com/talkify/talkify/pkg/api"
	"github.com/talkify/talkify/pkg/cachestore"
	"github.com/talkify/talkify/pkg/connectivity"
	"github.com/talkify/talkify/pkg/fallback"
	"github.com/talkify/talkify/pkg/learning"
	"github.com/talkify/talkify/pkg/session"
)

// fakeAPI serves the handful of endpoints the root tests touch.
type fakeAPI struct {
	*httptest.Server
	failing  atomic.Bool
	requests atomic.Int64
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"access_token":"tok-1","user":{"id":1,"username":"ada"}}}`)
	})
	mux.HandleFunc("GET /api/words/daily", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"word":{"id":99,"word":"serendipity","meaning":"mutlu tesadüf","level":"C1"}}}`)
	})
	mux.HandleFunc("GET /api/words", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"words":[{"id":1,"word":"apple","meaning":"elma","level":"`+r.URL.Query().Get("level")+`"}]}}`)
	})
	mux.HandleFunc("GET /api/progress/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"stats":{"learned_words":42,"current_level":"B1"}}}`)
	})
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if f.failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestService(t *testing.T, apiURL string, online bool) *learning.Service {
	t.Helper()
	client, err := api.NewClient(apiURL)
	require.NoError(t, err)
	backend := backends.NewMemory(32)
	store, err := cachestore.Open(backend)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	fetcher := fallback.New(store, connectivity.NewChecker(connectivity.Static(online)))
	return learning.New(client, fetcher, session.NewStore(backend, nil))
}

func runBridge(t *testing.T, svc *learning.Service, lines ...string) ([]Response, error) {
	t.Helper()
	var out strings.Builder
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	err := NewBridge(svc, in, &out, nil).Run(context.Background())

	var responses []Response
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var resp Response
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses, err
}

func TestBridgeServesCommands(t *testing.T) {
	srv := newFakeAPI(t)
	svc := newTestService(t, srv.URL+"/api", true)

	responses, err := runBridge(t, svc,
		`{"ID":1,"Command":"daily_word"}`,
		``,
		`{"ID":2,"Command":"words","Params":{"Level":"A2"}}`,
		`{"ID":3,"Command":"online"}`,
		`{"ID":4,"Command":"user_stats"}`,
		`{"ID":5,"Command":"teleport"}`,
		`{"ID":6,"Command":"words","Params":"A2"}`,
		`{"ID":7,"Command":"clear_cache"}`,
		`{"ID":8,"Command":"close"}`,
		`{"ID":9,"Command":"daily_word"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 9)

	initial := responses[0]
	assert.Zero(t, initial.ID)
	assert.Equal(t, knownCommands, initial.KnownCommands)

	daily := responses[1]
	assert.Equal(t, int64(1), daily.ID)
	assert.Empty(t, daily.Err)
	assert.False(t, daily.IsOffline)
	assert.Equal(t, "network", daily.Source)
	var word api.DailyWord
	require.NoError(t, json.Unmarshal(daily.Data, &word))
	assert.Equal(t, "serendipity", word.Word.Word)

	var page api.WordPage
	require.NoError(t, json.Unmarshal(responses[2].Data, &page))
	require.Len(t, page.Words, 1)
	assert.Equal(t, "A2", page.Words[0].Level)

	assert.JSONEq(t, `true`, string(responses[3].Data))
	assert.False(t, responses[3].IsOffline)

	// No session: the authenticated read degrades instead of failing.
	stats := responses[4]
	assert.Empty(t, stats.Err)
	assert.True(t, stats.IsOffline)
	assert.Equal(t, "default", stats.Source)

	assert.Equal(t, "unknown command: teleport", responses[5].Err)
	assert.Contains(t, responses[6].Err, "invalid params")

	assert.Equal(t, int64(7), responses[7].ID)
	assert.Empty(t, responses[7].Err)
	assert.Equal(t, int64(8), responses[8].ID)
}

func TestBridgeOffline(t *testing.T) {
	srv := newFakeAPI(t)
	svc := newTestService(t, srv.URL+"/api", false)

	responses, err := runBridge(t, svc,
		`{"ID":1,"Command":"daily_word"}`,
		`{"ID":2,"Command":"online"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 3)

	assert.True(t, responses[1].IsOffline)
	assert.Equal(t, "default", responses[1].Source)
	assert.NotEmpty(t, responses[1].Data)
	assert.JSONEq(t, `false`, string(responses[2].Data))
	assert.Zero(t, srv.requests.Load())
}

func TestBridgeRejectsMalformedRequest(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1/api", false)

	responses, err := runBridge(t, svc, `{"ID":1,`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal request")
	require.Len(t, responses, 1)
}

func TestBridgeStopsWhenContextDone(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1/api", false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out strings.Builder
	err := NewBridge(svc, strings.NewReader(`{"ID":1,"Command":"daily_word"}`+"\n"), &out, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestBridgeIDAndPagedCommands(t *testing.T) {
	srv := newFakeAPI(t)
	svc := newTestService(t, srv.URL+"/api", false)

	responses, err := runBridge(t, svc,
		`{"ID":1,"Command":"quiz_questions","Params":{"ID":1,"ExamMode":true}}`,
		`{"ID":2,"Command":"messages"}`,
		`{"ID":3,"Command":"word","Params":{"ID":-4}}`,
		`{"ID":4,"Command":"quiz_history","Params":{"Page":2,"PerPage":5}}`,
		`{"ID":5,"Command":"levels"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 6)

	var set api.QuizQuestionSet
	require.NoError(t, json.Unmarshal(responses[1].Data, &set))
	assert.Equal(t, 1, set.QuizID)
	assert.NotEmpty(t, set.Questions)
	assert.Equal(t, "default", responses[1].Source)

	assert.Equal(t, "invalid params: messages needs a positive ID", responses[2].Err)
	assert.Equal(t, "invalid params: word needs a positive ID", responses[3].Err)

	assert.Empty(t, responses[4].Err)
	assert.True(t, responses[4].IsOffline)
	var history api.QuizHistoryPage
	require.NoError(t, json.Unmarshal(responses[4].Data, &history))
	assert.NotNil(t, history.History)

	var levels []string
	require.NoError(t, json.Unmarshal(responses[5].Data, &levels))
	assert.Equal(t, []string{"A1", "A2", "B1", "B2", "C1", "C2"}, levels)
	assert.Zero(t, srv.requests.Load())
}

func TestBridgeResetCache(t *testing.T) {
	srv := newFakeAPI(t)
	svc := newTestService(t, srv.URL+"/api", true)
	_, err := svc.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	responses, err := runBridge(t, svc,
		`{"ID":1,"Command":"user_stats"}`,
		`{"ID":2,"Command":"reset_cache"}`,
		`{"ID":3,"Command":"user_stats"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 4)

	assert.Equal(t, "network", responses[1].Source)
	assert.Empty(t, responses[2].Err)
	assert.Equal(t, "default", responses[3].Source)
	assert.True(t, responses[3].IsOffline)

	_, err = svc.CurrentUser(context.Background())
	require.ErrorIs(t, err, session.ErrNoSession)
}
