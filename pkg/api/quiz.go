package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type QuizQuery struct {
	Level    string
	Category string
	Page     int
	PerPage  int
}

func (c *Client) ListQuizzes(ctx context.Context, token string, q QuizQuery) (QuizPage, error) {
	query := pageQuery(q.Page, q.PerPage, 20)
	if q.Level != "" {
		query.Set("level", q.Level)
	}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	var out QuizPage
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/quiz",
		query:   query,
		token:   token,
		failure: "could not load quizzes",
	}, &out)
	return out, err
}

// GetQuiz returns a quiz with its questions and answers.
func (c *Client) GetQuiz(ctx context.Context, token string, id int) (Quiz, error) {
	var out struct {
		Quiz Quiz `json:"quiz"`
	}
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    fmt.Sprintf("/quiz/%d", id),
		token:   token,
		failure: "quiz not found",
	}, &out)
	return out.Quiz, err
}

// QuizQuestions returns a quiz's questions. In exam mode the server omits
// the correct answers.
func (c *Client) QuizQuestions(ctx context.Context, token string, id int, examMode bool) (QuizQuestionSet, error) {
	var query url.Values
	if examMode {
		query = url.Values{"exam_mode": {"true"}}
	}
	var out QuizQuestionSet
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    fmt.Sprintf("/quiz/%d/questions", id),
		query:   query,
		token:   token,
		failure: "could not load quiz questions",
	}, &out)
	return out, err
}

// SubmitQuiz records a result. An empty TestType is sent as "quiz".
func (c *Client) SubmitQuiz(ctx context.Context, token string, sub QuizSubmission) (QuizResult, error) {
	if sub.TestType == "" {
		sub.TestType = "quiz"
	}
	var out struct {
		Result QuizResult `json:"result"`
	}
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/quiz/submit",
		token:   token,
		body:    sub,
		failure: "could not save quiz result",
	}, &out)
	return out.Result, err
}

func (c *Client) QuizHistory(ctx context.Context, token string, page, perPage int) (QuizHistoryPage, error) {
	var out QuizHistoryPage
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/quiz/history",
		query:   pageQuery(page, perPage, 20),
		token:   token,
		failure: "could not load quiz history",
	}, &out)
	return out, err
}

func (c *Client) QuizStats(ctx context.Context, token string) (QuizStats, error) {
	var out struct {
		Stats QuizStats `json:"stats"`
	}
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/quiz/stats",
		token:   token,
		failure: "could not load quiz statistics",
	}, &out)
	return out.Stats, err
}
