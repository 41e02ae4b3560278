package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/talkify/talkify/pkg/api"
	"github.com/talkify/talkify/pkg/fallback"
	"github.com/talkify/talkify/pkg/learning"
)

// Cmd represents a bridge command type.
type Cmd string

const (
	CmdDailyWord      = Cmd("daily_word")
	CmdWords          = Cmd("words")
	CmdQuizzes        = Cmd("quizzes")
	CmdUserStats      = Cmd("user_stats")
	CmdQuizStats      = Cmd("quiz_stats")
	CmdStreak         = Cmd("streak")
	CmdAchievements   = Cmd("achievements")
	CmdConversations  = Cmd("conversations")
	CmdProfile        = Cmd("profile")
	CmdCategories     = Cmd("categories")
	CmdLevels         = Cmd("levels")
	CmdWord           = Cmd("word")
	CmdWordProgress   = Cmd("word_progress")
	CmdDailyProgress  = Cmd("daily_progress")
	CmdSessions       = Cmd("sessions")
	CmdQuiz           = Cmd("quiz")
	CmdQuizQuestions  = Cmd("quiz_questions")
	CmdQuizHistory    = Cmd("quiz_history")
	CmdMyAchievements = Cmd("my_achievements")
	CmdMessages       = Cmd("messages")
	CmdOnline         = Cmd("online")
	CmdClearCache     = Cmd("clear_cache")
	CmdResetCache     = Cmd("reset_cache")
	CmdClose          = Cmd("close")
)

var knownCommands = []Cmd{
	CmdDailyWord, CmdWords, CmdQuizzes, CmdUserStats, CmdQuizStats, CmdStreak,
	CmdAchievements, CmdConversations, CmdProfile, CmdCategories, CmdLevels,
	CmdWord, CmdWordProgress, CmdDailyProgress, CmdSessions, CmdQuiz,
	CmdQuizQuestions, CmdQuizHistory, CmdMyAchievements, CmdMessages,
	CmdOnline, CmdClearCache, CmdResetCache, CmdClose,
}

// idParams addresses one word, quiz or conversation.
type idParams struct {
	ID       int
	ExamMode bool
}

type pageParams struct {
	Page    int
	PerPage int
}

// Request represents a request from the host app.
type Request struct {
	ID      int64
	Command Cmd
	Params  json.RawMessage `json:",omitempty"`
}

// Response represents a response to the host app. Data, IsOffline and
// Source mirror a fallback result.
type Response struct {
	ID            int64           `json:",omitempty"`
	Err           string          `json:",omitempty"`
	KnownCommands []Cmd           `json:",omitempty"`
	Data          json.RawMessage `json:",omitempty"`
	IsOffline     bool            `json:",omitempty"`
	Source        string          `json:",omitempty"`
}

// Bridge serves the learning data layer over line-delimited JSON, so a host
// app can embed it as a child process.
type Bridge struct {
	svc     *learning.Service
	scanner *bufio.Scanner
	writer  *bufio.Writer
	logger  *slog.Logger
}

// NewBridge creates a bridge reading requests from in and writing responses
// to out.
func NewBridge(svc *learning.Service, in io.Reader, out io.Writer, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(in)
	// Word lists and quiz sets can exceed the 64KB default.
	const maxScanTokenSize = 4 * 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	return &Bridge{
		svc:     svc,
		scanner: scanner,
		writer:  bufio.NewWriter(out),
		logger:  logger,
	}
}

// SendResponse writes one response line.
func (b *Bridge) SendResponse(resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if _, err := b.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := b.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return b.writer.Flush()
}

// SendInitialResponse sends the initial response with capabilities.
func (b *Bridge) SendInitialResponse() error {
	return b.SendResponse(Response{
		ID:            0,
		KnownCommands: knownCommands,
	})
}

// ReadRequest reads the next non-empty request line.
func (b *Bridge) ReadRequest() (*Request, error) {
	var line string
	for {
		if !b.scanner.Scan() {
			if err := b.scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read request: %w", err)
			}
			return nil, io.EOF
		}
		line = b.scanner.Text()
		if strings.TrimSpace(line) != "" {
			break
		}
	}

	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w (line: %q)", err, line)
	}
	return &req, nil
}

// HandleRequest processes a single request and sends a response. Command
// failures travel in Response.Err; only I/O errors are returned.
func (b *Bridge) HandleRequest(ctx context.Context, req *Request) error {
	resp := Response{ID: req.ID}
	if err := b.dispatch(ctx, req, &resp); err != nil {
		b.logger.Debug("bridge command failed", "command", req.Command, "id", req.ID, "error", err)
		resp.Err = err.Error()
	}
	return b.SendResponse(resp)
}

func (b *Bridge) dispatch(ctx context.Context, req *Request, resp *Response) error {
	switch req.Command {
	case CmdDailyWord:
		return fill(resp, b.svc.DailyWord(ctx))
	case CmdWords:
		var q api.WordQuery
		if err := decodeParams(req.Params, &q); err != nil {
			return err
		}
		return fill(resp, b.svc.Words(ctx, q))
	case CmdQuizzes:
		var q api.QuizQuery
		if err := decodeParams(req.Params, &q); err != nil {
			return err
		}
		return fill(resp, b.svc.Quizzes(ctx, q))
	case CmdUserStats:
		return fill(resp, b.svc.UserStats(ctx))
	case CmdQuizStats:
		return fill(resp, b.svc.QuizStats(ctx))
	case CmdStreak:
		return fill(resp, b.svc.Streak(ctx))
	case CmdAchievements:
		return fill(resp, b.svc.Achievements(ctx))
	case CmdConversations:
		return fill(resp, b.svc.Conversations(ctx))
	case CmdProfile:
		return fill(resp, b.svc.Profile(ctx))
	case CmdCategories:
		return fill(resp, b.svc.Categories(ctx))
	case CmdLevels:
		return fill(resp, b.svc.Levels(ctx))
	case CmdDailyProgress:
		return fill(resp, b.svc.DailyProgress(ctx))
	case CmdMyAchievements:
		return fill(resp, b.svc.MyAchievements(ctx))
	case CmdWord, CmdQuiz, CmdQuizQuestions, CmdMessages:
		var p idParams
		if err := decodeParams(req.Params, &p); err != nil {
			return err
		}
		if p.ID <= 0 {
			return fmt.Errorf("invalid params: %s needs a positive ID", req.Command)
		}
		switch req.Command {
		case CmdWord:
			return fill(resp, b.svc.Word(ctx, p.ID))
		case CmdQuiz:
			return fill(resp, b.svc.Quiz(ctx, p.ID))
		case CmdQuizQuestions:
			return fill(resp, b.svc.QuizQuestions(ctx, p.ID, p.ExamMode))
		default:
			return fill(resp, b.svc.Messages(ctx, p.ID))
		}
	case CmdWordProgress, CmdSessions, CmdQuizHistory:
		var p pageParams
		if err := decodeParams(req.Params, &p); err != nil {
			return err
		}
		switch req.Command {
		case CmdWordProgress:
			return fill(resp, b.svc.WordProgress(ctx, p.Page, p.PerPage))
		case CmdSessions:
			return fill(resp, b.svc.Sessions(ctx, p.Page, p.PerPage))
		default:
			return fill(resp, b.svc.QuizHistory(ctx, p.Page, p.PerPage))
		}
	case CmdOnline:
		online := b.svc.Online(ctx)
		data, err := json.Marshal(online)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		resp.Data = data
		resp.IsOffline = !online
		return nil
	case CmdClearCache:
		return b.svc.ClearCache(ctx)
	case CmdResetCache:
		return b.svc.Reset(ctx)
	case CmdClose:
		return nil
	default:
		return fmt.Errorf("unknown command: %s", req.Command)
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func fill[T any](resp *Response, res fallback.Result[T]) error {
	data, err := json.Marshal(res.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	resp.Data = data
	resp.IsOffline = res.IsOffline
	resp.Source = string(res.Source)
	return nil
}

// Run sends the capabilities, then serves requests until close, EOF or ctx
// cancellation.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.SendInitialResponse(); err != nil {
		return fmt.Errorf("failed to send initial response: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		req, err := b.ReadRequest()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}

		if err := b.HandleRequest(ctx, req); err != nil {
			return fmt.Errorf("failed to handle request: %w", err)
		}

		if req.Command == CmdClose {
			break
		}
	}
	return nil
}
