package vectorutils_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/vector/chroma"
	vectorutils "github.com/papercomputeco/recall/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	ctx := context.Background()

	It("builds a chroma driver against the target URL", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"id": "coll-1", "name": "turns"})
		}))
		defer server.Close()

		d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: "chroma",
			TargetURL:    server.URL,
			Collection:   "turns",
			Dimensions:   3,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()
		Expect(d).To(BeAssignableToTypeOf(&chroma.Driver{}))
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{ProviderType: "pinecone"})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})
})
