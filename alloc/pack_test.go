package alloc_test

import (
	"github.com/icap-oss/icapd/alloc"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PackAllocator", func() {
	It("keeps cur <= end and tracks data size across front and rear allocations, with pop", func() {
		buf := make([]byte, 4096)
		p := alloc.NewPack(buf, 16)

		for i := 0; i < 3; i++ {
			_, err := p.AllocFront(100)
			Expect(err).NotTo(HaveOccurred())
		}
		for i := 0; i < 2; i++ {
			_, err := p.AllocRear(200)
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(p.Cur()).To(BeNumerically("<=", p.End()))
		Expect(p.DataSize()).To(Equal(3*112 + 2*208))

		// pop the third front item and the second rear item
		Expect(p.SetStartPos(2 * 112)).To(Succeed())
		Expect(p.SetEndPos(len(buf) - 208)).To(Succeed())
		Expect(p.DataSize()).To(Equal(2*112 + 1*208))

		remaining := p.End() - p.Cur()
		_, err := p.AllocFront(remaining)
		Expect(err).NotTo(HaveOccurred())

		_, err = p.AllocFront(1)
		Expect(err).To(HaveOccurred())
	})

	It("rejects SetStartPos/SetEndPos that would violate cur <= end", func() {
		p := alloc.NewPack(make([]byte, 64), 8)
		Expect(p.SetStartPos(100)).To(HaveOccurred())
		Expect(p.SetEndPos(-5)).To(Succeed()) // negative restores original end
	})
})

var _ = Describe("PoolAllocator", func() {
	It("reuses freed items and counts hits", func() {
		pool := alloc.NewPool(64)
		a := pool.AllocItem()
		pool.FreeItem(a)
		b := pool.AllocItem()
		Expect(b).To(BeIdenticalTo(a))

		allocCount, hits := pool.Counters()
		Expect(allocCount).To(Equal(uint64(2)))
		Expect(hits).To(Equal(uint64(1)))
	})

	It("treats a pre-reset item's Free as a stale no-op", func() {
		pool := alloc.NewPool(32)
		a := pool.AllocItem()
		pool.Reset()
		// must not panic and must not resurrect a into the new generation's free list
		pool.FreeItem(a)
		b := pool.AllocItem()
		Expect(b).NotTo(BeIdenticalTo(a))
	})
})
