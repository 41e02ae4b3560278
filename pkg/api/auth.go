package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type AuthResult struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	FirebaseUID string `json:"firebase_uid,omitempty"`
}

// ProfileUpdate carries only the fields to change.
type ProfileUpdate struct {
	Username      *string `json:"username,omitempty"`
	LanguageLevel *string `json:"language_level,omitempty"`
	DailyGoal     *int    `json:"daily_goal,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email, password = strings.TrimSpace(email), strings.TrimSpace(password)
	if email == "" || password == "" {
		return AuthResult{}, errors.New("email and password are required")
	}
	var out AuthResult
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/auth/login",
		body:    map[string]string{"email": email, "password": password},
		failure: "login failed",
	}, &out)
	return out, err
}

// Register creates an account. An empty username defaults to the local part
// of the email address.
func (c *Client) Register(ctx context.Context, reg Registration) (User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Password = strings.TrimSpace(reg.Password)
	if reg.Username == "" {
		reg.Username, _, _ = strings.Cut(reg.Email, "@")
	}
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/auth/register",
		body:    reg,
		failure: "registration failed",
	}, &out)
	return out.User, err
}

func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/auth/me",
		token:   token,
		failure: "could not load user",
	}, &out)
	return out.User, err
}

func (c *Client) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, request{
		method:  http.MethodPut,
		path:    "/auth/profile",
		token:   token,
		body:    update,
		failure: "could not update profile",
	}, &out)
	return out.User, err
}
