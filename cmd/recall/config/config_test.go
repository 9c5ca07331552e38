package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/recall/cmd/recall/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// A local .recall dir is picked up ahead of the home directory.
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".recall"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
	})

	Describe("set subcommand", func() {
		It("writes config.toml", func() {
			_, err := run("set", "memory.user_id", "alice")
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(filepath.Join(tmpDir, ".recall", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`user_id = "alice"`))
		})

		It("rejects unknown keys", func() {
			_, err := run("set", "invalid_key", "value")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects values that fail validation", func() {
			_, err := run("set", "storage.driver", "mysql")
			Expect(err).To(MatchError(ContainSubstring("invalid storage.driver")))

			_, statErr := os.Stat(filepath.Join(tmpDir, ".recall", "config.toml"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})

		It("rejects invalid integer values", func() {
			_, err := run("set", "embedding.dimensions", "not-a-number")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			_, err := run("set", "memory.user_id")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("prints a previously set value", func() {
			_, err := run("set", "memory.known_names", "Ada,Grace")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("get", "memory.known_names")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Ada,Grace"))
		})

		It("prints the default for an unset key", func() {
			out, err := run("get", "storage.table")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("chat_history"))
		})

		It("rejects unknown keys", func() {
			_, err := run("get", "invalid_key")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			_, err := run("get")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists defaults when no config exists", func() {
			out, err := run("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("config.toml"))
			Expect(out).To(MatchRegexp(`storage\.driver\s+= "postgres"`))
		})

		It("lists values that were set", func() {
			_, err := run("set", "storage.driver", "sqlite")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`storage\.driver\s+= "sqlite"`))
		})

		It("rejects any arguments", func() {
			_, err := run("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})
