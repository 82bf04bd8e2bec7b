package configcmder_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	configcmder "github.com/papercomputeco/seagent/cmd/seagent/config"
	testutils "github.com/papercomputeco/seagent/pkg/utils/test"
)

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "seagent"}
	cmdutil.AddGlobalFlags(root)
	root.AddCommand(configcmder.NewConfigCmd())
	return root
}

var _ = Describe("NewConfigCmd", func() {
	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "seagent-config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	run := func(args ...string) (string, error) {
		args = append(append([]string{"config"}, args...), "--config-dir", tmpDir)
		out, _, err := testutils.Execute(newRoot(), "", args...)
		return out, err
	}

	Describe("set", func() {
		It("writes the value to config.toml", func() {
			out, err := run("set", "chat.collection", "handbook")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Set chat.collection = handbook"))

			data, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`collection = "handbook"`))
		})

		It("rejects unknown keys", func() {
			_, err := run("set", "proxy.provider", "anthropic")
			Expect(err).To(MatchError(ContainSubstring(`unknown config key: "proxy.provider"`)))
		})

		DescribeTable("rejects invalid values",
			func(key, value string) {
				_, err := run("set", key, value)
				Expect(err).To(HaveOccurred())
			},
			Entry("timeout", "client.timeout", "soon"),
			Entry("render mode", "chat.render", "html"),
			Entry("storage driver", "storage.driver", "mysql"),
		)

		It("requires exactly two arguments", func() {
			_, err := run("set", "chat.render")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get", func() {
		It("reads a previously set value", func() {
			_, err := run("set", "chat.render", "plain")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("get", "chat.render")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`chat\.render\s+plain`))
		})

		It("shows defaults for keys not in the file", func() {
			out, err := run("get", "client.api_target")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("http://localhost:8000/api"))
		})

		It("marks empty keys as not set", func() {
			out, err := run("get", "chat.collection")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			_, err := run("get", "invalid_key")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list", func() {
		It("shows every key in section order", func() {
			_, err := run("set", "storage.driver", "none")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`(?s)client\.api_target.*client\.timeout\s+30s.*chat\.render\s+markdown.*storage\.driver\s+none.*storage\.postgres_dsn`))
		})

		It("rejects any arguments", func() {
			_, err := run("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})
