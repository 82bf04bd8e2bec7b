package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/sse"
	testutils "github.com/papercomputeco/seagent/pkg/utils/test"
)

type staticToken string

func (t staticToken) Token() (string, error) { return string(t), nil }

type failingToken struct{}

func (failingToken) Token() (string, error) { return "", errors.New("keychain locked") }

var _ = Describe("New", func() {
	It("requires a base URL", func() {
		_, err := api.New(api.Config{})
		Expect(err).To(MatchError(ContainSubstring("base URL is required")))
	})

	It("rejects non-HTTP schemes", func() {
		_, err := api.New(api.Config{BaseURL: "ftp://example.com"})
		Expect(err).To(MatchError(ContainSubstring("must use http or https")))
	})

	It("trims trailing slashes", func() {
		c, err := api.New(api.Config{BaseURL: "http://localhost:8000/api/"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.BaseURL()).To(Equal("http://localhost:8000/api"))
	})
})

var _ = Describe("Client", func() {
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
		client, err = api.New(api.Config{
			BaseURL: backend.URL(),
			Tokens:  staticToken(testutils.FakeToken),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("authentication", func() {
		It("logs in and returns the token and user", func() {
			res, err := client.Login(ctx, "ada", "secret")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.AccessToken).To(Equal(testutils.FakeToken))
			Expect(res.TokenType).To(Equal("bearer"))
			Expect(res.User).To(Equal(&api.User{ID: 1, Username: "ada", Email: "ada@example.com"}))
		})

		It("accepts the legacy bare token shape", func() {
			backend.LegacyAuth = true

			res, err := client.Login(ctx, "ada", "secret")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.AccessToken).To(Equal(testutils.FakeToken))
			Expect(res.User).To(BeNil())
		})

		It("surfaces the backend detail on bad credentials", func() {
			_, err := client.Login(ctx, "ada", "wrong")
			Expect(errors.Is(err, api.ErrUnauthorized)).To(BeTrue())

			var serr *sse.StatusError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(serr.Detail).To(Equal("用户名或密码不正确"))
		})

		It("registers a new account", func() {
			res, err := client.Register(ctx, "lin", "pw", "lin@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.User.Username).To(Equal("lin"))
			Expect(res.User.ID).To(Equal(2))
		})

		It("rejects a duplicate registration", func() {
			_, err := client.Register(ctx, "ada", "pw", "x@example.com")

			var serr *sse.StatusError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(serr.Detail).To(Equal("用户名已被注册"))
		})

		It("rejects a response without a token", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"user":{"id":1}}`))
			}))
			defer server.Close()

			c, err := api.New(api.Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.Login(ctx, "ada", "secret")
			Expect(err).To(MatchError(api.ErrMalformedAuthResponse))
		})
	})

	Describe("authorization header", func() {
		It("sends the bearer token", func() {
			_, err := client.ListCollections(ctx)
			Expect(err).NotTo(HaveOccurred())

			req, ok := backend.LastRequest(http.MethodGet, "/api/knowledge/collections")
			Expect(ok).To(BeTrue())
			Expect(req.Authorization).To(Equal("Bearer " + testutils.FakeToken))
		})

		It("omits the header without a token", func() {
			c, err := api.New(api.Config{BaseURL: backend.URL(), Tokens: staticToken("")})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.ListCollections(ctx)
			Expect(errors.Is(err, api.ErrUnauthorized)).To(BeTrue())

			req, _ := backend.LastRequest(http.MethodGet, "/api/knowledge/collections")
			Expect(req.Authorization).To(BeEmpty())
		})

		It("fails before sending when the token source fails", func() {
			c, err := api.New(api.Config{BaseURL: backend.URL(), Tokens: failingToken{}})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.ListCollections(ctx)
			Expect(err).To(MatchError(ContainSubstring("keychain locked")))
		})
	})

	Describe("error bodies", func() {
		serve := func(status int, body string) *api.Client {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(body))
			}))
			DeferCleanup(server.Close)

			c, err := api.New(api.Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())
			return c
		}

		DescribeTable("extracts a readable detail",
			func(status int, body, detail string) {
				_, err := serve(status, body).ListCollections(ctx)

				var serr *sse.StatusError
				Expect(errors.As(err, &serr)).To(BeTrue())
				Expect(serr.StatusCode).To(Equal(status))
				Expect(serr.Detail).To(Equal(detail))
			},
			Entry("string detail", 500, `{"detail":"处理请求失败"}`, "处理请求失败"),
			Entry("structured detail", 422, `{"detail":[{"loc":["body","chat_id"]}]}`, `[{"loc":["body","chat_id"]}]`),
			Entry("plain text body", 502, "bad gateway\n", "bad gateway"),
			Entry("empty body", 503, "", ""),
		)
	})

	Describe("timeouts", func() {
		It("bounds non-streaming requests", func() {
			release := make(chan struct{})
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer server.Close()
			defer close(release)

			c, err := api.New(api.Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.ListCollections(ctx)
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		})
	})
})
