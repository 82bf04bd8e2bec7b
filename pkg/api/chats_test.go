package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/sse"
	testutils "github.com/papercomputeco/seagent/pkg/utils/test"
)

var _ = Describe("Chats and messages", func() {
	var (
		ctx     context.Context
		backend *testutils.FakeBackend
		client  *api.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = testutils.NewFakeBackend()
		DeferCleanup(backend.Close)

		var err error
		client, err = api.New(api.Config{BaseURL: backend.URL(), Tokens: staticToken(testutils.FakeToken)})
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates a chat with the default title", func() {
		chat, err := client.CreateChat(ctx, 1, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(chat.Title).To(Equal(api.DefaultChatTitle))
		Expect(chat.UserID).To(Equal(1))

		req, _ := backend.LastRequest(http.MethodPost, "/api/messages/chat")
		Expect(req.Body).To(MatchJSON(`{"user_id":1,"title":"新对话"}`))
	})

	It("lists chats newest first", func() {
		backend.AddChat(1, "first")
		backend.AddChat(1, "second")
		backend.AddChat(2, "someone else")

		chats, err := client.ListChats(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(chats).To(HaveLen(2))
		Expect(chats[0].Title).To(Equal("second"))
	})

	It("returns an empty slice when the user has no chats", func() {
		chats, err := client.ListChats(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(chats).NotTo(BeNil())
		Expect(chats).To(BeEmpty())
	})

	DescribeTable("normalizes the chat list shape",
		func(body string, count int) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			c, err := api.New(api.Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())

			chats, err := c.ListChats(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(chats).To(HaveLen(count))
		},
		Entry("array", `[{"id":1},{"id":2}]`, 2),
		Entry("single object", `{"id":1,"title":"only"}`, 1),
		Entry("null", `null`, 0),
	)

	It("rejects an unexpected chat list body", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`"nope"`))
		}))
		defer server.Close()

		c, err := api.New(api.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = c.ListChats(ctx, 1)
		Expect(err).To(MatchError(ContainSubstring("unexpected chat list response")))
	})

	It("sends a message and reads it back", func() {
		chat := backend.AddChat(1, "t")

		reply, err := client.SendMessage(ctx, api.SendMessageRequest{
			ChatID:         chat.ID,
			UserID:         "1",
			Message:        "hello",
			CollectionName: "docs",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Role).To(Equal("model"))
		Expect(reply.Message).To(Equal("echo(docs): hello"))

		req, _ := backend.LastRequest(http.MethodPost, "/api/api/chat")
		var body map[string]any
		Expect(json.Unmarshal([]byte(req.Body), &body)).To(Succeed())
		Expect(body["user_id"]).To(Equal("1"))
		Expect(body["role"]).To(Equal("user"))
		Expect(body["collection_name"]).To(Equal("docs"))

		msgs, err := client.GetChatMessages(ctx, chat.ID, 0, 50)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[0].Message).To(Equal("hello"))

		req, _ = backend.LastRequest(http.MethodGet, "/api/messages/chat/")
		Expect(req.Path).To(HaveSuffix("limit=50&skip=0"))

		detail, err := client.GetChat(ctx, chat.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(detail.Chat.MessageCount).To(Equal(2))
		Expect(detail.Messages[0].Role).To(Equal("model"))

		msg, err := client.GetMessage(ctx, msgs[0].ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Message).To(Equal("hello"))

		mine, err := client.GetUserMessages(ctx, 1, 0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(mine).To(HaveLen(1))

		Expect(client.DeleteMessage(ctx, msgs[0].ID)).To(Succeed())
		_, err = client.GetMessage(ctx, msgs[0].ID)
		var serr *sse.StatusError
		Expect(errors.As(err, &serr)).To(BeTrue())
		Expect(serr.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("omits empty optional fields", func() {
		chat := backend.AddChat(1, "t")

		_, err := client.SendMessage(ctx, api.SendMessageRequest{ChatID: chat.ID, Message: "hi"})
		Expect(err).NotTo(HaveOccurred())

		req, _ := backend.LastRequest(http.MethodPost, "/api/api/chat")
		Expect(req.Body).To(MatchJSON(`{"chat_id":1,"message":"hi","role":"user"}`))
	})

	It("renames, titles, and deletes a chat", func() {
		chat := backend.AddChat(1, "old")

		updated, err := client.UpdateChatTitle(ctx, chat.ID, "new")
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Title).To(Equal("new"))

		_, err = client.SendMessage(ctx, api.SendMessageRequest{ChatID: chat.ID, Message: "how do goroutines work"})
		Expect(err).NotTo(HaveOccurred())

		title, err := client.GenerateTitle(ctx, chat.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(title).To(Equal("how do gor"))

		Expect(client.DeleteChat(ctx, chat.ID)).To(Succeed())

		_, err = client.GetChat(ctx, chat.ID)
		var serr *sse.StatusError
		Expect(errors.As(err, &serr)).To(BeTrue())
		Expect(serr.Detail).To(Equal("聊天不存在或已被删除"))
	})
})
