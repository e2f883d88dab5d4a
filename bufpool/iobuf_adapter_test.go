package bufpool_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/icap-oss/icapd/bufpool"
)

var _ = Describe("FixedClassPool", func() {
	It("round-trips a buffer through Get and Put", func() {
		p := bufpool.New()
		fc := bufpool.NewFixedClassPool(p, 512)

		buf, err := fc.Get()
		Expect(err).NotTo(HaveOccurred())
		Expect(len(buf)).To(BeNumerically(">=", 512))

		Expect(fc.Put(buf)).To(Succeed())
	})
})
