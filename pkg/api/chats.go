package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListChats returns the active chats of a user, most recently updated first.
// A backend that answers with a single object yields a one element slice.
func (c *Client) ListChats(ctx context.Context, userID int) ([]Chat, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/messages/user-chats/%d", userID), nil, &raw); err != nil {
		return nil, err
	}

	return decodeChatList(raw)
}

func decodeChatList(raw json.RawMessage) ([]Chat, error) {
	trimmed := bytes.TrimSpace(raw)

	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return []Chat{}, nil

	case trimmed[0] == '{':
		var chat Chat
		if err := json.Unmarshal(trimmed, &chat); err != nil {
			return nil, fmt.Errorf("decoding chat: %w", err)
		}
		return []Chat{chat}, nil

	case trimmed[0] == '[':
		chats := []Chat{}
		if err := json.Unmarshal(trimmed, &chats); err != nil {
			return nil, fmt.Errorf("decoding chat list: %w", err)
		}
		return chats, nil

	default:
		return nil, fmt.Errorf("unexpected chat list response: %.64s", trimmed)
	}
}

// CreateChat starts a new chat. An empty title becomes DefaultChatTitle.
func (c *Client) CreateChat(ctx context.Context, userID int, title string) (*Chat, error) {
	if title == "" {
		title = DefaultChatTitle
	}

	body := struct {
		UserID int    `json:"user_id"`
		Title  string `json:"title"`
	}{userID, title}

	var chat Chat
	if err := c.doJSON(ctx, http.MethodPost, "/messages/chat", body, &chat); err != nil {
		return nil, err
	}

	return &chat, nil
}

// GetChat returns a chat with its latest messages.
func (c *Client) GetChat(ctx context.Context, chatID int) (*ChatDetail, error) {
	var detail ChatDetail
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/messages/chat/%d", chatID), nil, &detail); err != nil {
		return nil, err
	}

	return &detail, nil
}

// GetChatMessages pages through the messages of a chat in chronological order.
func (c *Client) GetChatMessages(ctx context.Context, chatID, skip, limit int) ([]Message, error) {
	path := fmt.Sprintf("/messages/chat/%d/messages?%s", chatID, pageQuery(skip, limit))

	messages := []Message{}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// UpdateChatTitle renames a chat.
func (c *Client) UpdateChatTitle(ctx context.Context, chatID int, title string) (*Chat, error) {
	body := struct {
		Title string `json:"title"`
	}{title}

	var chat Chat
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/messages/chat/%d", chatID), body, &chat); err != nil {
		return nil, err
	}

	return &chat, nil
}

// DeleteChat soft-deletes a chat.
func (c *Client) DeleteChat(ctx context.Context, chatID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/messages/chat/%d", chatID), nil, nil)
}

// GenerateTitle asks the backend to title a chat from its messages and
// returns the new title.
func (c *Client) GenerateTitle(ctx context.Context, chatID int) (string, error) {
	var resp struct {
		Title string `json:"title"`
	}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/chats/%d/generate-title", chatID), nil, &resp); err != nil {
		return "", err
	}

	return resp.Title, nil
}

func pageQuery(skip, limit int) string {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	return q.Encode()
}
