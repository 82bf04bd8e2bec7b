// Package testutils provides an in-process fake of the SeAgent backend for
// client and command tests.
package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/seagent/pkg/api"
)

// FakeToken is the access token every fake login returns.
const FakeToken = "fake-token"

const timeLayout = "2006-01-02 15:04:05"

// FakeUser is an account known to the fake backend.
type FakeUser struct {
	ID       int
	Password string
	Email    string
}

// RecordedRequest is a request the fake backend received.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Accept        string
	Body          string
}

// FakeBackend serves the SeAgent REST and stream endpoints from memory.
// Configure exported fields before issuing requests.
type FakeBackend struct {
	Server *httptest.Server

	mu sync.Mutex

	// RequireAuth rejects requests without "Bearer FakeToken" on protected
	// endpoints.
	RequireAuth bool

	// LegacyAuth answers login and register with a bare access_token.
	LegacyAuth bool

	// StreamChunks, when set, are written verbatim (and flushed one by one)
	// for every stream request. Otherwise the reply echoes the message.
	StreamChunks []string

	// StreamStatus, when non-zero, fails stream requests with that status.
	StreamStatus int

	Users       map[string]FakeUser
	Chats       map[int]*api.Chat
	Messages    map[int][]api.Message
	Collections []string
	Uploads     map[string][]string
	Requests    []RecordedRequest

	nextUserID int
	nextChatID int
	nextMsgID  int
}

// NewFakeBackend starts a fake backend with one user, "ada" / "secret".
func NewFakeBackend() *FakeBackend {
	b := &FakeBackend{
		RequireAuth: true,
		Users:       map[string]FakeUser{"ada": {ID: 1, Password: "secret", Email: "ada@example.com"}},
		Chats:       map[int]*api.Chat{},
		Messages:    map[int][]api.Message{},
		Uploads:     map[string][]string{},
		nextUserID:  2,
		nextChatID:  1,
		nextMsgID:   1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.handleLogin)
	mux.HandleFunc("POST /api/auth/register", b.handleRegister)
	mux.HandleFunc("GET /api/messages/user-chats/{user}", b.protected(b.handleListChats))
	mux.HandleFunc("POST /api/messages/chat", b.protected(b.handleCreateChat))
	mux.HandleFunc("GET /api/messages/chat/{id}", b.protected(b.handleGetChat))
	mux.HandleFunc("PUT /api/messages/chat/{id}", b.protected(b.handleUpdateChat))
	mux.HandleFunc("DELETE /api/messages/chat/{id}", b.protected(b.handleDeleteChat))
	mux.HandleFunc("GET /api/messages/chat/{id}/messages", b.protected(b.handleChatMessages))
	mux.HandleFunc("GET /api/messages/user/{user}", b.protected(b.handleUserMessages))
	mux.HandleFunc("GET /api/messages/{id}", b.protected(b.handleGetMessage))
	mux.HandleFunc("DELETE /api/messages/{id}", b.protected(b.handleDeleteMessage))
	mux.HandleFunc("POST /api/api/chat", b.protected(b.handleSend))
	mux.HandleFunc("POST /api/api/chat/stream", b.protected(b.handleStream))
	mux.HandleFunc("POST /api/api/chats/{id}/generate-title", b.protected(b.handleGenerateTitle))
	mux.HandleFunc("POST /api/knowledge/upload", b.protected(b.handleUpload))
	mux.HandleFunc("GET /api/knowledge/collections", b.protected(b.handleCollections))
	mux.HandleFunc("DELETE /api/knowledge/collections/{name}", b.protected(b.handleDeleteCollection))

	b.Server = httptest.NewServer(b.record(mux))

	return b
}

// URL is the API root to configure a client with.
func (b *FakeBackend) URL() string {
	return b.Server.URL + "/api"
}

// Close shuts the server down.
func (b *FakeBackend) Close() {
	b.Server.Close()
}

// AddChat seeds a chat for userID and returns it.
func (b *FakeBackend) AddChat(userID int, title string) api.Chat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.addChatLocked(userID, title)
}

// LastRequest returns the most recent request matching method and path
// prefix, and whether one was found.
func (b *FakeBackend) LastRequest(method, pathPrefix string) (RecordedRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range slices.Backward(b.Requests) {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			return r, true
		}
	}
	return RecordedRequest{}, false
}

func (b *FakeBackend) addChatLocked(userID int, title string) *api.Chat {
	now := time.Now().Format(timeLayout)
	chat := &api.Chat{
		ID:        b.nextChatID,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Chats[chat.ID] = chat
	b.nextChatID++
	return chat
}

func (b *FakeBackend) addMessageLocked(chatID int, userID *int, text, role string) api.Message {
	msg := api.Message{
		ID:        b.nextMsgID,
		ChatID:    chatID,
		UserID:    userID,
		Message:   text,
		Timestamp: time.Now().Format(timeLayout),
		Role:      role,
	}
	b.nextMsgID++
	b.Messages[chatID] = append(b.Messages[chatID], msg)

	if chat, ok := b.Chats[chatID]; ok {
		chat.MessageCount = len(b.Messages[chatID])
		chat.LastMessage = text
	}

	return msg
}

func (b *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(strings.NewReader(string(body)))
		}

		b.mu.Lock()
		b.Requests = append(b.Requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.RequestURI(),
			Authorization: r.Header.Get("Authorization"),
			Accept:        r.Header.Get("Accept"),
			Body:          string(body),
		})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		required := b.RequireAuth
		b.mu.Unlock()

		if required && r.Header.Get("Authorization") != "Bearer "+FakeToken {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r)
	}
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.Users[req.Username]
	if !ok || u.Password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "用户名或密码不正确")
		return
	}

	b.writeAuthLocked(w, req.Username, u)
}

func (b *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.Users[req.Username]; ok {
		writeDetail(w, http.StatusBadRequest, "用户名已被注册")
		return
	}

	u := FakeUser{ID: b.nextUserID, Password: req.Password, Email: req.Email}
	b.nextUserID++
	b.Users[req.Username] = u

	b.writeAuthLocked(w, req.Username, u)
}

func (b *FakeBackend) writeAuthLocked(w http.ResponseWriter, username string, u FakeUser) {
	if b.LegacyAuth {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": FakeToken, "token_type": "bearer"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": map[string]string{"access_token": FakeToken, "token_type": "bearer"},
		"user":  api.User{ID: u.ID, Username: username, Email: u.Email},
	})
}

func (b *FakeBackend) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt(w, r, "user")
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	chats := []api.Chat{}
	for _, c := range b.Chats {
		if c.UserID == userID {
			chats = append(chats, *c)
		}
	}
	slices.SortFunc(chats, func(x, y api.Chat) int { return y.ID - x.ID })

	writeJSON(w, http.StatusOK, chats)
}

func (b *FakeBackend) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int    `json:"user_id"`
		Title  string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON(w, http.StatusOK, b.addChatLocked(req.UserID, req.Title))
}

func (b *FakeBackend) handleGetChat(w http.ResponseWriter, r *http.Request) {
	b.withChat(w, r, func(chat *api.Chat) {
		msgs := slices.Clone(b.Messages[chat.ID])
		slices.Reverse(msgs)
		if msgs == nil {
			msgs = []api.Message{}
		}
		writeJSON(w, http.StatusOK, api.ChatDetail{Chat: *chat, Messages: msgs})
	})
}

func (b *FakeBackend) handleUpdateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	b.withChat(w, r, func(chat *api.Chat) {
		if req.Title != "" {
			chat.Title = req.Title
		}
		chat.UpdatedAt = time.Now().Format(timeLayout)
		writeJSON(w, http.StatusOK, chat)
	})
}

func (b *FakeBackend) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	b.withChat(w, r, func(chat *api.Chat) {
		delete(b.Chats, chat.ID)
		delete(b.Messages, chat.ID)
		writeJSON(w, http.StatusOK, map[string]string{"detail": "聊天已删除"})
	})
}

func (b *FakeBackend) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	b.withChat(w, r, func(chat *api.Chat) {
		writeJSON(w, http.StatusOK, page(b.Messages[chat.ID], r))
	})
}

func (b *FakeBackend) handleUserMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt(w, r, "user")
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var all []api.Message
	for _, msgs := range b.Messages {
		for _, m := range msgs {
			if m.UserID != nil && *m.UserID == userID && m.Role == "user" {
				all = append(all, m)
			}
		}
	}
	slices.SortFunc(all, func(x, y api.Message) int { return x.ID - y.ID })

	writeJSON(w, http.StatusOK, page(all, r))
}

func (b *FakeBackend) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	b.withMessage(w, r, func(chatID, idx int) {
		writeJSON(w, http.StatusOK, b.Messages[chatID][idx])
	})
}

func (b *FakeBackend) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	b.withMessage(w, r, func(chatID, idx int) {
		b.Messages[chatID] = slices.Delete(b.Messages[chatID], idx, idx+1)
		writeJSON(w, http.StatusOK, map[string]string{"detail": "消息已删除"})
	})
}

func (b *FakeBackend) handleSend(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSend(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.Chats[req.ChatID]; !ok {
		writeDetail(w, http.StatusNotFound, "聊天不存在或已被删除")
		return
	}

	uid := parseUserID(req.UserID)
	b.addMessageLocked(req.ChatID, uid, req.Message, req.Role)
	reply := b.addMessageLocked(req.ChatID, uid, replyFor(req), "model")

	writeJSON(w, http.StatusOK, reply)
}

func (b *FakeBackend) handleStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSend(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	status := b.StreamStatus
	chunks := slices.Clone(b.StreamChunks)
	_, exists := b.Chats[req.ChatID]
	if status == 0 && exists {
		uid := parseUserID(req.UserID)
		b.addMessageLocked(req.ChatID, uid, req.Message, req.Role)
		b.addMessageLocked(req.ChatID, uid, replyFor(req), "model")
	}
	b.mu.Unlock()

	switch {
	case status != 0:
		writeDetail(w, status, "stream unavailable")
		return
	case !exists:
		writeDetail(w, http.StatusNotFound, "聊天不存在或已被删除")
		return
	}

	if chunks == nil {
		chunks = []string{
			"data: [INTERMEDIATE_START]thinking\n\n",
			"data: [MODEL_RESPONSE]" + replyFor(req) + "\n\n",
			"data: [DONE]\n\n",
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for _, chunk := range chunks {
		if _, err := io.WriteString(w, chunk); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (b *FakeBackend) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	b.withChat(w, r, func(chat *api.Chat) {
		msgs := b.Messages[chat.ID]
		if len(msgs) == 0 {
			writeDetail(w, http.StatusBadRequest, "没有足够的消息生成标题")
			return
		}
		title := []rune(msgs[0].Message)
		if len(title) > 10 {
			title = title[:10]
		}
		chat.Title = string(title)
		writeJSON(w, http.StatusOK, map[string]string{"title": chat.Title})
	})
}

func (b *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer file.Close()

	collection := r.FormValue("collection_name")
	if collection == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "collection_name is required")
		return
	}

	if !api.IsUploadable(header.Filename) {
		writeDetail(w, http.StatusBadRequest, "不支持的文件类型")
		return
	}

	content, _ := io.ReadAll(file)

	b.mu.Lock()
	defer b.mu.Unlock()

	if !slices.Contains(b.Collections, collection) {
		b.Collections = append(b.Collections, collection)
	}
	b.Uploads[collection] = append(b.Uploads[collection], header.Filename+":"+string(content))

	writeJSON(w, http.StatusOK, api.UploadResult{
		Status:  "success",
		Message: fmt.Sprintf("文件 %s 已成功上传到知识库 %s", header.Filename, collection),
	})
}

func (b *FakeBackend) handleCollections(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string][]string{"collections": slices.Clone(b.Collections)})
}

func (b *FakeBackend) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := slices.Index(b.Collections, name)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("知识库集合 %s 不存在", name))
		return
	}
	b.Collections = slices.Delete(b.Collections, idx, idx+1)
	delete(b.Uploads, name)

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("知识库集合 %s 已成功删除", name),
	})
}

func (b *FakeBackend) withChat(w http.ResponseWriter, r *http.Request, fn func(*api.Chat)) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	chat, ok := b.Chats[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "聊天不存在或已被删除")
		return
	}
	fn(chat)
}

func (b *FakeBackend) withMessage(w http.ResponseWriter, r *http.Request, fn func(chatID, idx int)) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for chatID, msgs := range b.Messages {
		for i, m := range msgs {
			if m.ID == id {
				fn(chatID, i)
				return
			}
		}
	}
	writeDetail(w, http.StatusNotFound, "消息不存在")
}

func decodeSend(w http.ResponseWriter, r *http.Request) (api.SendMessageRequest, bool) {
	var req api.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return req, false
	}
	return req, true
}

func replyFor(req api.SendMessageRequest) string {
	if req.CollectionName != "" {
		return fmt.Sprintf("echo(%s): %s", req.CollectionName, req.Message)
	}
	return "echo: " + req.Message
}

func parseUserID(s string) *int {
	id, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &id
}

func page(msgs []api.Message, r *http.Request) []api.Message {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	out := []api.Message{}
	for i := skip; i < len(msgs) && len(out) < limit; i++ {
		out = append(out, msgs[i])
	}
	return out
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return v, true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
