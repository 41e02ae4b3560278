// Package tutor talks to the Gemini generateContent endpoint to run the
// conversational English tutor, within a per-day attempt budget.
package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/talkify/talkify/pkg/cachestore"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultModel      = "gemini-2.0-flash"
	DefaultDailyLimit = 20
	MaxMessageLength  = 200

	// KeyQuota holds today's attempt count. It is outside the known cache
	// keys so clearing cached data does not reset the budget.
	KeyQuota = "@talkify_tutor_quota"

	maxReplyBytes = 1 << 20
)

var (
	ErrDailyLimit = errors.New("daily tutor limit reached")
	ErrEmptyReply = errors.New("tutor returned an empty reply")
	ErrNoAPIKey   = errors.New("tutor API key is not configured")
)

// Turn is one earlier message in the conversation. Role is "user" or "model".
type Turn struct {
	Role string
	Text string
}

type AskOptions struct {
	// Translate asks for a Turkish translation in parentheses.
	Translate bool
	// Pronunciation focuses the feedback on pronunciation.
	Pronunciation bool
}

type Reply struct {
	Text string
	// English is Text without the parenthesised translation.
	English   string
	Remaining int
}

type quota struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	DailyLimit int
	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

type Tutor struct {
	cfg   Config
	store *cachestore.Store

	mu    sync.Mutex
	local quota // in-process copy, used when the store cannot answer
}

// New returns a tutor that keeps its attempt count in store. store may be
// nil, in which case the count lives only as long as the process.
func New(store *cachestore.Store, cfg Config) *Tutor {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultDailyLimit
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tutor{cfg: cfg, store: store}
}

// Remaining returns how many attempts are left today.
func (t *Tutor) Remaining(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.DailyLimit - t.usedToday(ctx).Count
}

func (t *Tutor) today() string {
	return t.cfg.Now().Format(time.DateOnly)
}

func (t *Tutor) usedToday(ctx context.Context) quota {
	today := t.today()
	local := quota{Date: today}
	if t.local.Date == today {
		local = t.local
	}
	if t.store != nil {
		q, status := cachestore.Read[quota](ctx, t.store, KeyQuota, 48*time.Hour)
		if status == cachestore.Hit && q.Date == today && q.Count > local.Count {
			return q
		}
	}
	return local
}

// reserve takes one attempt from today's budget.
func (t *Tutor) reserve(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.usedToday(ctx)
	if q.Count >= t.cfg.DailyLimit {
		return 0, ErrDailyLimit
	}
	q.Count++
	t.local = q
	if t.store != nil {
		if err := t.store.Write(ctx, KeyQuota, q); err != nil {
			t.cfg.Logger.Warn("failed to persist tutor quota", "error", err)
		}
	}
	return t.cfg.DailyLimit - q.Count, nil
}

// Ask sends message with the earlier turns and returns the tutor's reply.
// Messages longer than MaxMessageLength characters are cut, not rejected.
// Every request that reaches the network uses one attempt, whether or not
// it succeeds.
func (t *Tutor) Ask(ctx context.Context, history []Turn, message string, opts AskOptions) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, errors.New("message is empty")
	}
	// Long input is cut to the first MaxMessageLength characters.
	message = clip(message, MaxMessageLength)
	if t.cfg.APIKey == "" {
		return Reply{}, ErrNoAPIKey
	}

	remaining, err := t.reserve(ctx)
	if err != nil {
		return Reply{}, err
	}

	text, err := t.generate(ctx, history, instructions(opts)+" User said: "+message)
	if err != nil {
		return Reply{}, err
	}
	text = truncate(text, MaxMessageLength)
	english, _, _ := strings.Cut(text, "(")
	return Reply{Text: text, English: strings.TrimSpace(english), Remaining: remaining}, nil
}

func instructions(opts AskOptions) string {
	translation := "ONLY English. NO translation."
	if opts.Translate {
		translation = "English + Turkish translation in parentheses."
	}
	focus := "Casual learning feedback."
	if opts.Pronunciation {
		focus = "Focus on pronunciation feedback."
	}
	return fmt.Sprintf("You are an English tutor. Reply in max %d characters. Use 1-2 short sentences. %s %s",
		MaxMessageLength, translation, focus)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

func (t *Tutor) generate(ctx context.Context, history []Turn, prompt string) (string, error) {
	contents := make([]content, 0, len(history)+1)
	for _, turn := range history {
		role := turn.Role
		if role != "model" {
			role = "user"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: turn.Text}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: prompt}}})

	body, err := json.Marshal(map[string]any{"contents": contents})
	if err != nil {
		return "", fmt.Errorf("encode tutor request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", t.cfg.BaseURL, t.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build tutor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", t.cfg.APIKey)

	resp, err := t.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tutor request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("read tutor response: %w", err)
	}

	if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
		return "", fmt.Errorf("tutor API error (status %d): %s", resp.StatusCode, msg.String())
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tutor returned %s", resp.Status)
	}

	text := strings.TrimSpace(gjson.GetBytes(raw, "candidates.0.content.parts.0.text").String())
	if text == "" {
		t.cfg.Logger.Debug("empty tutor reply", "finish_reason", gjson.GetBytes(raw, "candidates.0.finishReason").String())
		return "", ErrEmptyReply
	}
	return text, nil
}

// truncate shortens s to at most n runes, marking the cut with "...".
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}
