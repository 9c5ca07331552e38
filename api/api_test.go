package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
)

var _ = Describe("Server", func() {
	var (
		server *Server
		mem    *testutils.MockMemoryDriver
		m      *metrics.Metrics
		now    time.Time
	)

	BeforeEach(func() {
		mem = testutils.NewMockMemoryDriver()
		m = metrics.New(prometheus.NewRegistry())
		now = time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

		var err error
		server, err = NewServer(Config{
			ListenAddr: ":0",
			Memory:     mem,
			Metrics:    m,
			Clock:      func() time.Time { return now },
			MCPHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("mcp ok"))
			}),
		}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	get := func(path string) (*http.Response, string) {
		req, err := http.NewRequest(http.MethodGet, path, nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, string(body)
	}

	It("requires a memory driver", func() {
		_, err := NewServer(Config{}, nil)
		Expect(err).To(MatchError(ContainSubstring("memory driver is required")))
	})

	It("answers ping", func() {
		resp, body := get("/ping")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(body).To(Equal(`"pong"`))
	})

	Describe("GET /v1/memory/:user_id", func() {
		It("returns the recalled memory", func() {
			mem.RecallResult = memory.Recollection{Text: "[yesterday [2025-10-28]] user: my dog is Rex", Items: 1, Dated: true}

			resp, body := get("/v1/memory/alice?query=when%20did%20I%20mention%20my%20dog")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out MemoryResponse
			Expect(json.Unmarshal([]byte(body), &out)).To(Succeed())
			Expect(out.UserID).To(Equal("alice"))
			Expect(out.Query).To(Equal("when did I mention my dog"))
			Expect(out.Items).To(Equal(1))
			Expect(out.Dated).To(BeTrue())

			Expect(mem.Queries).To(HaveLen(1))
			Expect(mem.Queries[0].UserID).To(Equal("alice"))
			Expect(mem.Queries[0].Now).To(Equal(now))
		})

		It("returns 502 when recall fails", func() {
			mem.RecallErr = errors.New("store down")
			resp, body := get("/v1/memory/alice")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))
			Expect(body).To(ContainSubstring("memory recall failed"))
		})
	})

	It("exposes metrics", func() {
		m.Retrieval("local", metrics.OutcomeOK)

		resp, body := get("/metrics")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(body).To(ContainSubstring(`recall_memory_retrievals_total{outcome="ok",source="local"} 1`))
	})

	It("mounts the MCP handler", func() {
		req, err := http.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{}"))
		Expect(err).NotTo(HaveOccurred())
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("mcp ok"))
	})
})
