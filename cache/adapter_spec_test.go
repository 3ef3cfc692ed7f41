package cache_test

import (
	"bytes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/h3tier/h3cache/cache"
	"github.com/h3tier/h3cache/store"
	"github.com/h3tier/h3cache/store/kvdriver"
	"github.com/h3tier/h3cache/store/memdriver"
)

var _ = Describe("Adapter", func() {
	var (
		hot, cold *memdriver.Driver
		adapter   *cache.Adapter
	)

	BeforeEach(func() {
		hot = memdriver.New()
		cold = memdriver.New()
		cold.CreateBucket("b1", 0)
		adapter = cache.NewWithDrivers(hot, cold, 0)
	})

	Describe("ReadObject on a cold-only object", func() {
		var data []byte

		BeforeEach(func() {
			data = bytes.Repeat([]byte("x"), 5<<20)
			Expect(cold.CreateObject("b1", "o1", data, 0)).To(Succeed())
		})

		It("populates hot and stamps CachedAt on cold", func() {
			got, done, err := adapter.ReadObject("b1", "o1", 0, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())
			Expect(got).To(Equal(data))

			info, err := hot.InfoObject("b1", "o1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Size).To(Equal(int64(len(data))))

			_, _, err = cold.ReadObjectMetadata("b1", "o1", cache.MetaCachedAt, 0)
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports the populate in Stat()", func() {
			_, _, err := adapter.ReadObject("b1", "o1", 0, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			st := adapter.Stat()
			Expect(st.Misses).To(Equal(uint64(1)))
			Expect(st.Populates).To(Equal(uint64(1)))
		})
	})

	Describe("ReadObject on a hot hit", func() {
		It("serves directly from hot without populating again", func() {
			hot.CreateBucket("b1", 0)
			hot.CreateObject("b1", "o1", []byte("hot bytes"), 0)
			cold.CreateObject("b1", "o1", []byte("cold bytes"), 0)

			got, _, err := adapter.ReadObject("b1", "o1", 0, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]byte("hot bytes")))
			Expect(adapter.Stat().Populates).To(Equal(uint64(0)))
		})
	})

	Describe("WriteObject at a nonzero offset on a cold-only object", func() {
		It("populates before writing", func() {
			Expect(cold.CreateObject("b1", "o1", []byte("0123456789"), 0)).To(Succeed())

			err := adapter.WriteObject("b1", "o1", []byte("AB"), 2, 0)
			Expect(err).NotTo(HaveOccurred())

			got, _, err := hot.ReadObject("b1", "o1", 0, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]byte("01AB456789")))
		})
	})

	Describe("WriteObject at offset 0", func() {
		It("discards any prior hot copy without touching cold", func() {
			hot.CreateBucket("b1", 0)
			hot.CreateObject("b1", "o1", []byte("stale"), 0)

			Expect(adapter.WriteObject("b1", "o1", []byte("fresh"), 0, 0)).To(Succeed())

			got, _, err := hot.ReadObject("b1", "o1", 0, 5, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]byte("fresh")))

			_, err = cold.InfoObject("b1", "o1", 0)
			Expect(store.Is(err, store.KindNotExists)).To(BeTrue())
		})
	})
})

var _ = Describe("Adapter against a kv:// cold tier", func() {
	var (
		hot     *memdriver.Driver
		cold    *kvdriver.Driver
		adapter *cache.Adapter
	)

	BeforeEach(func() {
		hot = memdriver.New()
		var err error
		cold, err = kvdriver.Open(":memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(cold.CreateBucket("b1", 0)).To(Succeed())
		adapter = cache.NewWithDrivers(hot, cold, 0)
	})

	AfterEach(func() {
		Expect(cold.Close()).To(Succeed())
	})

	It("populates hot from a buntdb-backed cold store and stamps CachedAt", func() {
		data := bytes.Repeat([]byte("y"), 3<<20)
		Expect(cold.CreateObject("b1", "o1", data, 0)).To(Succeed())

		got, done, err := adapter.ReadObject("b1", "o1", 0, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(BeTrue())
		Expect(got).To(Equal(data))

		info, err := hot.InfoObject("b1", "o1", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Size).To(Equal(int64(len(data))))

		_, _, err = cold.ReadObjectMetadata("b1", "o1", cache.MetaCachedAt, 0)
		Expect(err).NotTo(HaveOccurred())
	})
})
