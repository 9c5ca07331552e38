package storageutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
	"github.com/papercomputeco/recall/pkg/storage/sqlite"
	storageutils "github.com/papercomputeco/recall/pkg/storage/utils"
)

var _ = Describe("NewStore", func() {
	ctx := context.Background()

	It("builds the in-memory driver", func() {
		store, err := storageutils.NewStore(ctx, &storageutils.NewStoreOpts{
			Driver:  "memory",
			Variant: storage.Variant{Embeddings: true, Dimensions: 3},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(store).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		Expect(store.Variant().Dimensions).To(Equal(uint(3)))
	})

	It("builds an in-memory sqlite driver by default", func() {
		store, err := storageutils.NewStore(ctx, &storageutils.NewStoreOpts{Driver: "sqlite", Table: "turns"})
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		Expect(store).To(BeAssignableToTypeOf(&sqlite.Driver{}))
		Expect(store.EnsureSchema(ctx)).To(Succeed())
	})

	It("rejects unknown drivers", func() {
		_, err := storageutils.NewStore(ctx, &storageutils.NewStoreOpts{Driver: "mongo"})
		Expect(err).To(MatchError(ContainSubstring("unsupported storage driver")))
	})
})
