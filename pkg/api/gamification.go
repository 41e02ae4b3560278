package api

import (
	"context"
	"net/http"
)

func (c *Client) Streak(ctx context.Context, token string) (Streak, error) {
	var out Streak
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/gamification/streak",
		token:   token,
		failure: "could not load streak",
	}, &out)
	return out, err
}

// LogActivity records today's activity and returns the updated streak.
func (c *Client) LogActivity(ctx context.Context, token string) (Streak, error) {
	var out Streak
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/gamification/activity",
		token:   token,
		failure: "could not log activity",
	}, &out)
	return out, err
}

func (c *Client) Achievements(ctx context.Context, token string) ([]Achievement, error) {
	var out []Achievement
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/gamification/achievements",
		token:   token,
		failure: "could not load achievements",
	}, &out)
	return out, err
}

func (c *Client) MyAchievements(ctx context.Context, token string) ([]UserAchievement, error) {
	var out []UserAchievement
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/gamification/my-achievements",
		token:   token,
		failure: "could not load your achievements",
	}, &out)
	return out, err
}
