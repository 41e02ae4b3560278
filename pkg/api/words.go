package api

import (
	"context"
	"fmt"
	"net/http"
)

// WordQuery filters ListWords. Zero values mean no filter and the first page.
type WordQuery struct {
	Level    string
	Category string
	Page     int
	PerPage  int
}

func (c *Client) ListWords(ctx context.Context, token string, q WordQuery) (WordPage, error) {
	query := pageQuery(q.Page, q.PerPage, 50)
	if q.Level != "" {
		query.Set("level", q.Level)
	}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	var out WordPage
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/words",
		query:   query,
		token:   token,
		failure: "could not load words",
	}, &out)
	return out, err
}

func (c *Client) GetWord(ctx context.Context, token string, id int) (Word, error) {
	var out struct {
		Word Word `json:"word"`
	}
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    fmt.Sprintf("/words/%d", id),
		token:   token,
		failure: "word not found",
	}, &out)
	return out.Word, err
}

func (c *Client) DailyWord(ctx context.Context, token string) (DailyWord, error) {
	var out DailyWord
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/words/daily",
		token:   token,
		failure: "could not load the daily word",
	}, &out)
	return out, err
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out struct {
		Categories []string `json:"categories"`
	}
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/words/categories",
		failure: "could not load categories",
	}, &out)
	return out.Categories, err
}

func (c *Client) Levels(ctx context.Context) ([]string, error) {
	var out struct {
		Levels []string `json:"levels"`
	}
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/words/levels",
		failure: "could not load levels",
	}, &out)
	return out.Levels, err
}
