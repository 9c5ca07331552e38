package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/embeddings"
	"github.com/papercomputeco/recall/pkg/embeddings/ollama"
)

var _ = Describe("Embedder", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
	)

	BeforeEach(func() {
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(server.Close)
	})

	newEmbedder := func() *ollama.Embedder {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "test-embed"})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("posts the model and input to /api/embed", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/api/embed"))

			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body).To(Equal(map[string]string{"model": "test-embed", "input": "hello"}))

			_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
		}

		vec, err := newEmbedder().Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.1, 0.2, 0.3}))
	})

	It("fails on a non-200 status", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}

		_, err := newEmbedder().Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
		Expect(err.Error()).To(ContainSubstring("404"))
	})

	It("fails on an empty response", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[]}`))
		}

		_, err := newEmbedder().Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
	})

	It("fails on malformed JSON", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}

		_, err := newEmbedder().Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
	})

	It("treats a deadline as unavailable", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"embeddings":[[1]]}`))
		}

		e := embeddings.WithTimeout(newEmbedder(), 20*time.Millisecond)
		_, err := e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
	})

	It("does not call the server for blank text", func() {
		handler = func(http.ResponseWriter, *http.Request) {
			defer GinkgoRecover()
			Fail("unexpected request")
		}

		_, err := newEmbedder().Embed(context.Background(), " ")
		Expect(err).To(MatchError(embeddings.ErrEmptyText))
	})

	It("rejects a vector of the wrong size", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
		}

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Dimensions: 768})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
		Expect(err.Error()).To(ContainSubstring("returned 3 dimensions, configured 768"))
	})
})
