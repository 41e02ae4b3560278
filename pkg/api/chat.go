package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// DefaultConversationTitle is used when CreateConversation gets no title.
const DefaultConversationTitle = "New English Practice"

func (c *Client) Conversations(ctx context.Context, token string) ([]Conversation, error) {
	var out []Conversation
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/chat/conversations",
		token:   token,
		failure: "could not load conversations",
	}, &out)
	return out, err
}

func (c *Client) CreateConversation(ctx context.Context, token, title string) (Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultConversationTitle
	}
	var out Conversation
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/chat/conversations",
		token:   token,
		body:    map[string]string{"title": title},
		failure: "could not create conversation",
	}, &out)
	return out, err
}

func (c *Client) Messages(ctx context.Context, token string, conversationID int) ([]ChatMessage, error) {
	var out []ChatMessage
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    fmt.Sprintf("/chat/conversations/%d/messages", conversationID),
		token:   token,
		failure: "could not load messages",
	}, &out)
	return out, err
}

func (c *Client) AddMessage(ctx context.Context, token string, conversationID int, role, content string) (ChatMessage, error) {
	if role != RoleUser && role != RoleAssistant {
		return ChatMessage{}, fmt.Errorf("invalid message role %q", role)
	}
	var out ChatMessage
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    fmt.Sprintf("/chat/conversations/%d/messages", conversationID),
		token:   token,
		body:    map[string]string{"role": role, "content": content},
		failure: "could not send message",
	}, &out)
	return out, err
}
