package monitor_test

import (
	"os"
	"path/filepath"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/icap-oss/icapd/monitor"
)

var _ = Describe("PIDFile", func() {
	It("writes the current pid and removes it on release", func() {
		path := filepath.Join(GinkgoT().TempDir(), "icapd.pid")
		p := monitor.NewPIDFile(path)

		Expect(p.Acquire()).To(Succeed())
		raw, err := os.ReadFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(strconv.Atoi(string(raw))).To(Equal(os.Getpid()))

		Expect(p.Release()).To(Succeed())
		_, err = os.Stat(path)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("refuses to acquire over a pid file naming a live process", func() {
		path := filepath.Join(GinkgoT().TempDir(), "icapd.pid")
		Expect(os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)).To(Succeed())

		p := monitor.NewPIDFile(path)
		Expect(p.Acquire()).To(HaveOccurred())
	})

	It("acquires over a stale pid file naming a dead process", func() {
		path := filepath.Join(GinkgoT().TempDir(), "icapd.pid")
		Expect(os.WriteFile(path, []byte("999999999"), 0644)).To(Succeed())

		p := monitor.NewPIDFile(path)
		Expect(p.Acquire()).To(Succeed())
		defer p.Release()
	})

	It("is a no-op for an empty path", func() {
		p := monitor.NewPIDFile("")
		Expect(p.Acquire()).To(Succeed())
		Expect(p.Release()).To(Succeed())
	})

	It("never removes a pid file that no longer names this process", func() {
		path := filepath.Join(GinkgoT().TempDir(), "icapd.pid")
		p := monitor.NewPIDFile(path)
		Expect(p.Acquire()).To(Succeed())

		Expect(os.WriteFile(path, []byte("1"), 0644)).To(Succeed())
		Expect(p.Release()).To(Succeed())

		_, err := os.Stat(path)
		Expect(err).ToNot(HaveOccurred())
	})
})
