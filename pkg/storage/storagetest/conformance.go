// Package storagetest holds the behaviour every storage.Driver must share,
// run by each driver's suite.
package storagetest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/seagent/pkg/storage"
)

// turnAt builds a completed turn that started at offset from base.
func turnAt(chatID int, prompt string, base time.Time, offset time.Duration) *storage.Turn {
	t := storage.NewTurn(chatID, prompt, "docs")
	t.StartedAt = base.Add(offset)
	t.CompletedAt = t.StartedAt.Add(time.Second)
	t.Response = "reply to " + prompt
	t.ToolEvents = []string{"[TOOL_CALL_START]{}"}
	return t
}

// DescribeDriver registers the shared driver tests. open is called before
// each test and the returned driver is closed after it.
func DescribeDriver(open func() storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
		base   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = open()
		base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put and Get", func() {
		It("round-trips every field", func() {
			turn := turnAt(4, "what is a goroutine", base, 0)
			turn.ToolEvents = []string{"[TOOL_CALL_START]{\"name\":\"search\"}", "[TOOL_RESULT_START]ok"}
			turn.Err = "stream transport: reset"

			Expect(driver.Put(ctx, turn)).To(Succeed())

			got, err := driver.Get(ctx, turn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(turn.ID))
			Expect(got.ChatID).To(Equal(4))
			Expect(got.Prompt).To(Equal(turn.Prompt))
			Expect(got.Response).To(Equal(turn.Response))
			Expect(got.ToolEvents).To(Equal(turn.ToolEvents))
			Expect(got.Collection).To(Equal("docs"))
			Expect(got.StartedAt).To(BeTemporally("==", turn.StartedAt))
			Expect(got.CompletedAt).To(BeTemporally("==", turn.CompletedAt))
			Expect(got.Err).To(Equal(turn.Err))
		})

		It("keeps a zero completion time", func() {
			turn := turnAt(1, "pending", base, 0)
			turn.CompletedAt = time.Time{}

			Expect(driver.Put(ctx, turn)).To(Succeed())

			got, err := driver.Get(ctx, turn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.CompletedAt.IsZero()).To(BeTrue())
			Expect(got.Duration()).To(BeZero())
		})

		It("replaces a turn stored under the same ID", func() {
			turn := turnAt(1, "q", base, 0)
			Expect(driver.Put(ctx, turn)).To(Succeed())

			turn.Response = "updated"
			Expect(driver.Put(ctx, turn)).To(Succeed())

			got, err := driver.Get(ctx, turn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Response).To(Equal("updated"))

			all, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("rejects a nil turn", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrNilTurn))
		})

		It("returns NotFoundError for unknown IDs", func() {
			id := uuid.New()
			_, err := driver.Get(ctx, id)

			var nf storage.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.ID).To(Equal(id))
		})
	})

	Describe("listing", func() {
		It("lists turns of one chat oldest first", func() {
			second := turnAt(1, "second", base, time.Minute)
			first := turnAt(1, "first", base, 0)
			other := turnAt(2, "other", base, 30*time.Second)

			for _, t := range []*storage.Turn{second, first, other} {
				Expect(driver.Put(ctx, t)).To(Succeed())
			}

			turns, err := driver.ListByChat(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].Prompt).To(Equal("first"))
			Expect(turns[1].Prompt).To(Equal("second"))

			all, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[1].Prompt).To(Equal("other"))
		})

		It("returns an empty slice for an unknown chat", func() {
			turns, err := driver.ListByChat(ctx, 99)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).NotTo(BeNil())
			Expect(turns).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		It("removes a turn", func() {
			turn := turnAt(1, "q", base, 0)
			Expect(driver.Put(ctx, turn)).To(Succeed())

			Expect(driver.Delete(ctx, turn.ID)).To(Succeed())

			_, err := driver.Get(ctx, turn.ID)
			Expect(errors.As(err, &storage.NotFoundError{})).To(BeTrue())
		})

		It("returns NotFoundError for unknown IDs", func() {
			err := driver.Delete(ctx, uuid.New())
			Expect(errors.As(err, &storage.NotFoundError{})).To(BeTrue())
		})
	})
}
