package postgres_test

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/postgres"
	"github.com/papercomputeco/recall/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("RECALL_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("RECALL_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

// scratchTable returns a unique table name and drops it when the test ends.
func scratchTable(ctx context.Context, dsn string) string {
	table := "recall_test_" + uuid.NewString()[:8]
	DeferCleanup(func() {
		d, err := postgres.NewDriver(ctx, dsn, postgres.WithTable(table))
		if err != nil {
			return
		}
		defer d.Close()
		_ = d.Drop(ctx)
	})
	return table
}

var _ = Describe("Driver", func() {
	storagetest.DriverBehaviors(func(v storage.Variant) storage.Driver {
		ctx := context.Background()
		dsn := connStr()
		d, err := postgres.NewDriver(ctx, dsn, postgres.WithVariant(v), postgres.WithTable(scratchTable(ctx, dsn)))
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	It("returns an unavailable error for an unreachable server", func() {
		_, err := postgres.NewDriver(context.Background(),
			"host=invalid port=9999 user=bad dbname=bad sslmode=disable connect_timeout=1")
		Expect(err).To(MatchError(storage.ErrUnavailable))
		fmt.Fprintf(GinkgoWriter, "expected error: %v\n", err)
	})

	It("refuses a table of the other variant", func() {
		ctx := context.Background()
		dsn := connStr()
		table := scratchTable(ctx, dsn)

		plain, err := postgres.NewDriver(ctx, dsn, postgres.WithTable(table))
		Expect(err).NotTo(HaveOccurred())
		defer plain.Close()
		Expect(plain.EnsureSchema(ctx)).To(Succeed())

		embedded, err := postgres.NewDriver(ctx, dsn, postgres.WithTable(table),
			postgres.WithVariant(storage.Variant{Embeddings: true, Dimensions: 3}))
		Expect(err).NotTo(HaveOccurred())
		defer embedded.Close()
		Expect(embedded.EnsureSchema(ctx)).To(MatchError(storage.ErrSchemaInit))
	})

	It("tolerates concurrent schema creation", func() {
		ctx := context.Background()
		dsn := connStr()
		table := scratchTable(ctx, dsn)

		errs := make(chan error, 4)
		for range 4 {
			go func() {
				defer GinkgoRecover()
				d, err := postgres.NewDriver(ctx, dsn, postgres.WithTable(table))
				if err != nil {
					errs <- err
					return
				}
				defer d.Close()
				errs <- d.EnsureSchema(ctx)
			}()
		}
		for range 4 {
			Expect(<-errs).NotTo(HaveOccurred())
		}
	})
})
