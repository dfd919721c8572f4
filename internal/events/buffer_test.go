package events

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("buffer", Ordered, func() {
	Context("buffer", func() {
		It("add successfully", func() {
			buffer := newBuffer(0)

			err := buffer.PushBack(&message{Kind: CacheMessageKind, Data: []byte("msg1")})
			Expect(err).To(BeNil())
			Expect(buffer.Size()).To(Equal(1))
			Expect(buffer.head).NotTo(BeNil())
			Expect(buffer.tail).NotTo(BeNil())

			err = buffer.PushBack(&message{Kind: CacheMessageKind, Data: []byte("msg2")})
			Expect(err).To(BeNil())
			Expect(buffer.Size()).To(Equal(2))

			Expect(buffer.head.Data).To(Equal([]byte("msg1")))
			Expect(buffer.tail.Data).To(Equal([]byte("msg2")))
		})

		It("pops in order", func() {
			buffer := newBuffer(0)

			for _, d := range []string{"msg1", "msg2", "msg3"} {
				Expect(buffer.PushBack(&message{Kind: JobMessageKind, Data: []byte(d)})).To(BeNil())
			}
			Expect(buffer.Size()).To(Equal(3))

			for _, d := range []string{"msg1", "msg2", "msg3"} {
				m := buffer.Pop()
				Expect(m).NotTo(BeNil())
				Expect(m.Data).To(Equal([]byte(d)))
			}
			Expect(buffer.Size()).To(Equal(0))
			Expect(buffer.head).To(BeNil())
			Expect(buffer.tail).To(BeNil())

			Expect(buffer.Pop()).To(BeNil())
		})

		It("drops when the cap is reached", func() {
			buffer := newBuffer(2)

			Expect(buffer.PushBack(&message{Data: []byte("msg1")})).To(BeNil())
			Expect(buffer.PushBack(&message{Data: []byte("msg2")})).To(BeNil())

			err := buffer.PushBack(&message{Data: []byte("msg3")})
			Expect(err).To(MatchError(ErrBufferFull))
			Expect(buffer.Size()).To(Equal(2))

			buffer.Pop()
			Expect(buffer.PushBack(&message{Data: []byte("msg4")})).To(BeNil())
		})
	})
})
