package simplearray_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/icap-oss/icapd/container/simplearray"
	"github.com/icap-oss/icapd/container/typeops"
)

var _ = Describe("Array", func() {
	It("appends and finds items by name in order", func() {
		a := simplearray.New[string](make([]byte, 4096), typeops.StringOps{})

		Expect(a.Append("host", "icap.example.com")).To(Succeed())
		Expect(a.Append("service", "avscan")).To(Succeed())

		Expect(a.Len()).To(Equal(2))
		Expect(a.Find("service")).To(Equal(1))
		Expect(a.At(0).Value).To(Equal("icap.example.com"))
	})

	It("fails once the backing block is exhausted", func() {
		a := simplearray.New[string](make([]byte, 32), typeops.StringOps{})
		err := error(nil)
		for i := 0; i < 100 && err == nil; i++ {
			err = a.Append("k", "some longer value to exhaust the block")
		}
		Expect(err).To(HaveOccurred())
	})

	It("resets to empty and reclaims its backing block", func() {
		a := simplearray.New[string](make([]byte, 4096), typeops.StringOps{})
		Expect(a.Append("a", "1")).To(Succeed())
		a.Reset()
		Expect(a.Len()).To(Equal(0))
		Expect(a.DataSize()).To(Equal(0))
	})
})
