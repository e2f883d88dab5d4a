package dynarray_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/icap-oss/icapd/container/dynarray"
	"github.com/icap-oss/icapd/container/typeops"
)

var _ = Describe("Array", func() {
	It("grows past a single chunk by chaining new ones", func() {
		a := dynarray.New[int](64, nil, typeops.IntOps{})
		for i := 0; i < 50; i++ {
			Expect(a.Append("item", i)).To(Succeed())
		}
		Expect(a.Len()).To(Equal(50))
	})

	It("iterates in append order", func() {
		a := dynarray.New[int](4096, nil, typeops.IntOps{})
		for i := 0; i < 5; i++ {
			a.Append("n", i)
		}
		var seen []int
		a.Iterate(func(_ string, v int) { seen = append(seen, v) })
		Expect(seen).To(Equal([]int{0, 1, 2, 3, 4}))
	})

	It("finds the first item by name", func() {
		a := dynarray.New[int](4096, nil, typeops.IntOps{})
		a.Append("a", 1)
		a.Append("b", 2)
		v, ok := a.Find("b")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(2))
	})

	It("resets to empty", func() {
		a := dynarray.New[int](4096, nil, typeops.IntOps{})
		a.Append("a", 1)
		a.Reset()
		Expect(a.Len()).To(Equal(0))
		_, ok := a.Find("a")
		Expect(ok).To(BeFalse())
	})
})
