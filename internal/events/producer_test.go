package events

import (
	"bytes"
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", Ordered, func() {
	Context("write", func() {
		It("drains the buffer to the writer", func() {
			w := newTestWriter()
			ep := NewEventProducer(w)

			err := ep.Write(context.TODO(), CacheMessageKind, bytes.NewReader([]byte("msg1")))
			Expect(err).To(BeNil())
			err = ep.Write(context.TODO(), JobMessageKind, bytes.NewReader([]byte("msg2")))
			Expect(err).To(BeNil())

			Eventually(w.Len, 2*time.Second).Should(Equal(2))
			Expect(w.Get(0).Context.GetType()).To(Equal(CacheMessageKind))
			Expect(w.Get(1).Context.GetType()).To(Equal(JobMessageKind))
			Expect(w.Get(0).Context.GetSource()).To(Equal(eventSource))

			ep.Close()
		})

		It("applies the topic and capacity options", func() {
			w := newTestWriter()
			ep := NewEventProducer(w,
				WithOutputTopic("tradewatt.designer.events.audit"),
				WithBufferCapacity(2),
			)
			Expect(ep.buffer.cap).To(Equal(2))

			err := ep.Write(context.TODO(), CacheMessageKind, bytes.NewReader([]byte("msg")))
			Expect(err).To(BeNil())

			Eventually(w.Len, 2*time.Second).Should(Equal(1))
			Expect(w.Topic(0)).To(Equal("tradewatt.designer.events.audit"))

			ep.Close()
		})

		It("refuses writes beyond the buffer cap", func() {
			ep := &EventProducer{
				buffer: newBuffer(1),
				writer: &StdoutWriter{},
			}

			Expect(ep.buffer.PushBack(&message{Data: []byte("held")})).To(BeNil())

			err := ep.Write(context.TODO(), CacheMessageKind, bytes.NewReader([]byte("msg")))
			Expect(err).To(MatchError(ErrBufferFull))
		})
	})
})

type testwriter struct {
	lock     sync.Mutex
	messages []cloudevents.Event
	topics   []string
}

func newTestWriter() *testwriter {
	return &testwriter{messages: []cloudevents.Event{}}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.messages = append(t.messages, e)
	t.topics = append(t.topics, topic)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	return nil
}

func (t *testwriter) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.messages)
}

func (t *testwriter) Get(i int) cloudevents.Event {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.messages[i]
}

func (t *testwriter) Topic(i int) string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.topics[i]
}
