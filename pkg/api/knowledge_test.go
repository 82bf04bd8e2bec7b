package api_test

import (
	"context"
	"errors"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/sse"
	testutils "github.com/papercomputeco/seagent/pkg/utils/test"
)

var _ = Describe("Knowledge", func() {
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

	It("returns an empty list with no collections", func() {
		names, err := client.ListCollections(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(names).NotTo(BeNil())
		Expect(names).To(BeEmpty())
	})

	It("uploads a file as multipart form data", func() {
		res, err := client.UploadKnowledgeFile(ctx, "/tmp/notes.txt", strings.NewReader("goroutines are cheap"), "go")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal("success"))

		Expect(backend.Uploads).To(HaveKeyWithValue("go", []string{"notes.txt:goroutines are cheap"}))

		names, err := client.ListCollections(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"go"}))
	})

	It("requires a collection name", func() {
		_, err := client.UploadKnowledgeFile(ctx, "a.txt", strings.NewReader(""), "")
		Expect(err).To(MatchError(ContainSubstring("collection name is required")))
	})

	It("reports unsupported file types from the backend", func() {
		_, err := client.UploadKnowledgeFile(ctx, "image.png", strings.NewReader("x"), "go")

		var serr *sse.StatusError
		Expect(errors.As(err, &serr)).To(BeTrue())
		Expect(serr.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("deletes a collection", func() {
		backend.Collections = []string{"go", "rust"}

		msg, err := client.DeleteCollection(ctx, "go")
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(ContainSubstring("go"))

		names, err := client.ListCollections(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"rust"}))
	})

	DescribeTable("IsUploadable",
		func(name string, ok bool) {
			Expect(api.IsUploadable(name)).To(Equal(ok))
		},
		Entry("txt", "a.txt", true),
		Entry("upper-case pdf", "Report.PDF", true),
		Entry("csv", "data.csv", true),
		Entry("markdown", "README.md", false),
		Entry("no extension", "Makefile", false),
	)
})
