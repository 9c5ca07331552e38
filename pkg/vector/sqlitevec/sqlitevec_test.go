package sqlitevec_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/sqlitevec"
)

var _ = Describe("SQLiteVecDriver", func() {
	Describe("NewSQLiteVecDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ""}, logger.Nop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ":memory:"}, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	It("should implement vector.Driver interface", func() {
		var _ vector.Driver = (*sqlitevec.SQLiteVecDriver)(nil)
	})

	Context("with an open driver", func() {
		var (
			ctx    context.Context
			driver *sqlitevec.SQLiteVecDriver
		)

		BeforeEach(func() {
			ctx = context.Background()
			var err error
			driver, err = sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.Add(ctx, []vector.Document{
				{TurnID: 1, UserID: "alice", Embedding: []float32{1, 0, 0, 0}},
				{TurnID: 2, UserID: "alice", Embedding: []float32{0, 1, 0, 0}},
				{TurnID: 3, UserID: "alice", Embedding: []float32{0.9, 0.1, 0, 0}},
				{TurnID: 4, UserID: "bob", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing when given empty docs", func() {
			Expect(driver.Add(ctx, nil)).To(Succeed())
		})

		It("should return the closest turns of the user, best first", func() {
			results, err := driver.Query(ctx, "alice", []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].TurnID).To(Equal(int64(1)))
			Expect(results[1].TurnID).To(Equal(int64(3)))
			Expect(results[0].Score).To(BeNumerically(">=", results[1].Score))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-5))
		})

		It("should never return another user's turns", func() {
			results, err := driver.Query(ctx, "bob", []float32{0, 1, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].TurnID).To(Equal(int64(4)))
			Expect(results[0].UserID).To(Equal("bob"))
		})

		It("should replace the embedding of a re-added turn", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{TurnID: 2, UserID: "alice", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())

			results, err := driver.Query(ctx, "alice", []float32{1, 0, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[1].Score).To(BeNumerically("~", 1.0, 1e-5))
		})

		It("should return nothing for a non-positive topK", func() {
			results, err := driver.Query(ctx, "alice", []float32{1, 0, 0, 0}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("should reject mismatched dimensions", func() {
			err := driver.Add(ctx, []vector.Document{{TurnID: 9, UserID: "alice", Embedding: []float32{1}}})
			Expect(errors.Is(err, vector.ErrDimensions)).To(BeTrue())

			_, err = driver.Query(ctx, "alice", []float32{1, 0}, 1)
			Expect(errors.Is(err, vector.ErrDimensions)).To(BeTrue())
		})
	})
})
