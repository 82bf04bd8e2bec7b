package api

import (
	"context"
	"fmt"
	"net/http"
)

// SendMessage posts a chat turn and waits for the complete model reply.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	if req.Role == "" {
		req.Role = "user"
	}

	var msg Message
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", req, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// GetMessage returns a single message.
func (c *Client) GetMessage(ctx context.Context, messageID int) (*Message, error) {
	var msg Message
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/messages/%d", messageID), nil, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// DeleteMessage removes a message owned by the current user.
func (c *Client) DeleteMessage(ctx context.Context, messageID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/messages/%d", messageID), nil, nil)
}

// GetUserMessages pages through every message a user has sent.
func (c *Client) GetUserMessages(ctx context.Context, userID, skip, limit int) ([]Message, error) {
	path := fmt.Sprintf("/messages/user/%d?%s", userID, pageQuery(skip, limit))

	messages := []Message{}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}
