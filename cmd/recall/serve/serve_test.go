package servecmder

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/config"
)

var _ = Describe("NewServeCmd", func() {
	It("registers the listen, memory and store flags", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
		for _, name := range []string{"listen", "memory-mode", "storage-driver", "sqlite", "user", "json"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("defaults the listen address from the config", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(config.NewDefaultConfig().API.Listen))
	})

	It("writes debug JSON to the log file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "serve.log")
		c := &serveCommander{logFile: path}

		log, closeLog, err := c.newLogger()
		Expect(err).NotTo(HaveOccurred())
		log.Debug("opening store", "driver", "sqlite")
		closeLog()

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"opening store"`))
		Expect(string(data)).To(ContainSubstring(`"driver":"sqlite"`))
	})

	It("rejects an unwritable log file", func() {
		c := &serveCommander{logFile: "/nonexistent/dir/serve.log"}
		_, _, err := c.newLogger()
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})

	It("fails before listening when the store cannot be opened", func() {
		cfg := config.NewDefaultConfig()
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.SQLitePath = "/nonexistent/dir/recall.db"

		err := (&serveCommander{}).run(context.Background(), cfg)
		Expect(err).To(HaveOccurred())
	})
})
