package api

import (
	"context"
	"fmt"
	"net/http"
)

// WordProgress lists the words the user has learned, newest review first.
func (c *Client) WordProgress(ctx context.Context, token string, page, perPage int) (LearnedWordPage, error) {
	var out LearnedWordPage
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/progress/words",
		query:   pageQuery(page, perPage, 50),
		token:   token,
		failure: "could not load progress",
	}, &out)
	return out, err
}

func (c *Client) MarkWordLearned(ctx context.Context, token string, wordID int, learned bool) (WordProgress, error) {
	var out WordProgress
	err := c.do(ctx, request{
		method:  http.MethodPut,
		path:    fmt.Sprintf("/progress/words/%d", wordID),
		token:   token,
		body:    map[string]bool{"learned": learned},
		failure: "could not update word status",
	}, &out)
	return out, err
}

func (c *Client) ReviewWord(ctx context.Context, token string, wordID int, correct bool) (WordProgress, error) {
	var out WordProgress
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    fmt.Sprintf("/progress/words/%d/review", wordID),
		token:   token,
		body:    map[string]bool{"correct": correct},
		failure: "could not save review",
	}, &out)
	return out, err
}

func (c *Client) UserStats(ctx context.Context, token string) (UserStats, error) {
	var out struct {
		Stats UserStats `json:"stats"`
	}
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/progress/stats",
		token:   token,
		failure: "could not load statistics",
	}, &out)
	return out.Stats, err
}

func (c *Client) DailyProgress(ctx context.Context, token string) (DailyProgress, error) {
	var out struct {
		Daily DailyProgress `json:"daily"`
	}
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/progress/daily",
		token:   token,
		failure: "could not load daily progress",
	}, &out)
	return out.Daily, err
}

func (c *Client) StartSession(ctx context.Context, token, sessionType string) (Session, error) {
	var out struct {
		Session Session `json:"session"`
	}
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/progress/sessions",
		token:   token,
		body:    map[string]string{"session_type": sessionType},
		failure: "could not start session",
	}, &out)
	return out.Session, err
}

func (c *Client) UpdateSession(ctx context.Context, token string, id int, update SessionUpdate) (Session, error) {
	var out struct {
		Session Session `json:"session"`
	}
	err := c.do(ctx, request{
		method:  http.MethodPut,
		path:    fmt.Sprintf("/progress/sessions/%d", id),
		token:   token,
		body:    update,
		failure: "could not update session",
	}, &out)
	return out.Session, err
}

func (c *Client) Sessions(ctx context.Context, token string, page, perPage int) (SessionPage, error) {
	var out SessionPage
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/progress/sessions",
		query:   pageQuery(page, perPage, 20),
		token:   token,
		failure: "could not load sessions",
	}, &out)
	return out, err
}
