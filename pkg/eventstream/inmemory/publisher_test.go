package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/seagent/pkg/eventstream"
	"github.com/papercomputeco/seagent/pkg/eventstream/inmemory"
)

var _ = Describe("Publisher", func() {
	ctx := context.Background()

	It("keeps events in publish order", func() {
		p := inmemory.NewPublisher()
		first := &eventstream.TurnRecordedEvent{EventID: "1"}
		second := &eventstream.TurnRecordedEvent{EventID: "2"}

		Expect(p.PublishTurn(ctx, first)).To(Succeed())
		Expect(p.PublishTurn(ctx, second)).To(Succeed())
		Expect(p.Events()).To(Equal([]*eventstream.TurnRecordedEvent{first, second}))
	})

	It("returns ErrNilTurnEvent for nil events", func() {
		Expect(inmemory.NewPublisher().PublishTurn(ctx, nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("refuses events after Close", func() {
		p := inmemory.NewPublisher()
		Expect(p.Close()).To(Succeed())
		Expect(p.PublishTurn(ctx, &eventstream.TurnRecordedEvent{})).To(HaveOccurred())
	})
})
