package authcmder_test

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/seagent/cmd/seagent/auth"
	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	"github.com/papercomputeco/seagent/pkg/credentials"
	"github.com/papercomputeco/seagent/pkg/dotdir"
	testutils "github.com/papercomputeco/seagent/pkg/utils/test"
)

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "seagent"}
	cmdutil.AddGlobalFlags(root)
	root.AddCommand(authcmder.NewAuthCmd())
	return root
}

var _ = Describe("Auth Command", func() {
	var (
		tmpDir  string
		backend *testutils.FakeBackend
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "auth-test-*")
		Expect(err).NotTo(HaveOccurred())

		backend = testutils.NewFakeBackend()
	})

	AfterEach(func() {
		backend.Close()
		os.RemoveAll(tmpDir)
	})

	run := func(stdin string, args ...string) (string, error) {
		args = append(args, "--config-dir", tmpDir, "--api-target", backend.URL())
		out, _, err := testutils.Execute(newRoot(), stdin, args...)
		return out, err
	}

	storedCreds := func() *credentials.Credentials {
		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		creds, err := mgr.Load()
		Expect(err).NotTo(HaveOccurred())
		return creds
	}

	Describe("NewAuthCmd", func() {
		It("has login, register, logout and whoami subcommands", func() {
			cmd := authcmder.NewAuthCmd()
			names := []string{}
			for _, sub := range cmd.Commands() {
				names = append(names, sub.Name())
			}
			Expect(names).To(ConsistOf("login", "register", "logout", "whoami"))
		})
	})

	Describe("login", func() {
		It("stores the token and user from piped input", func() {
			out, err := run("ada\nsecret\n", "auth", "login")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Logged in as"))
			Expect(out).To(ContainSubstring("ada"))

			creds := storedCreds()
			Expect(creds.Token.AccessToken).To(Equal(testutils.FakeToken))
			Expect(creds.Token.TokenType).To(Equal("bearer"))
			Expect(creds.User.ID).To(Equal(1))
			Expect(creds.User.Username).To(Equal("ada"))
		})

		It("takes the username from --username", func() {
			_, err := run("secret\n", "auth", "login", "-u", "ada")
			Expect(err).NotTo(HaveOccurred())
			Expect(storedCreds().User.Email).To(Equal("ada@example.com"))
		})

		It("stores only the token from a legacy backend", func() {
			backend.LegacyAuth = true

			out, err := run("secret\n", "auth", "login", "-u", "ada")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Token stored"))

			creds := storedCreds()
			Expect(creds.Token.AccessToken).To(Equal(testutils.FakeToken))
			Expect(creds.User).To(BeNil())
		})

		It("fails on a wrong password without storing anything", func() {
			_, err := run("nope\n", "auth", "login", "-u", "ada")
			Expect(err).To(MatchError(ContainSubstring("用户名或密码不正确")))
			Expect(storedCreds().Token).To(BeNil())
		})

		It("fails when no password is provided", func() {
			_, err := run("", "auth", "login", "-u", "ada")
			Expect(err).To(MatchError(cmdutil.ErrNoInput))
		})
	})

	Describe("register", func() {
		It("creates the account and logs in", func() {
			out, err := run("secret\n", "auth", "register", "-u", "grace", "--email", "grace@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Registered"))

			creds := storedCreds()
			Expect(creds.User.Username).To(Equal("grace"))
			Expect(creds.User.ID).To(Equal(2))
			Expect(backend.Users).To(HaveKey("grace"))
		})

		It("reports a taken username", func() {
			_, err := run("secret\n", "auth", "register", "-u", "ada")
			Expect(err).To(MatchError(ContainSubstring("用户名已被注册")))
		})
	})

	Describe("logout", func() {
		It("removes the token, user and session", func() {
			_, err := run("secret\n", "auth", "login", "-u", "ada")
			Expect(err).NotTo(HaveOccurred())

			ddm := dotdir.NewManager()
			Expect(ddm.SaveSession(&dotdir.SessionState{ChatID: 4}, tmpDir)).To(Succeed())

			out, err := run("", "auth", "logout")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Logged out"))

			creds := storedCreds()
			Expect(creds.Token).To(BeNil())
			Expect(creds.User).To(BeNil())

			session, err := ddm.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(session).To(BeNil())
		})
	})

	Describe("whoami", func() {
		It("shows the stored user", func() {
			_, err := run("secret\n", "auth", "login", "-u", "ada")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("", "auth", "whoami")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("ada"))
			Expect(out).To(ContainSubstring("id 1"))
			Expect(out).To(ContainSubstring("ada@example.com"))
		})

		It("returns ErrNotAuthenticated when logged out", func() {
			out, err := run("", "auth", "whoami")
			Expect(err).To(MatchError(credentials.ErrNotAuthenticated))
			Expect(out).To(ContainSubstring("Not logged in"))
		})
	})
})
