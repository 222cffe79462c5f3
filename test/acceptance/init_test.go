package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("village init", func() {
	var tmpDir, repoDir string

	BeforeEach(func() {
		tmpDir, repoDir = setupTestRepo("init-")
		writeFile(filepath.Join(repoDir, "village.yaml"), `gates:
  - name: lint
    run: "echo lint ok"
`)
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("writes the statusline config", func() {
		cmd := exec.Command(binaryPath, "init", repoDir, "--path", filepath.Join(repoDir, "village.yaml"))
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		data, err := os.ReadFile(filepath.Join(repoDir, ".claude", "settings.local.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("statusLine"))
	})

	It("installs a pre-commit hook when gates are configured", func() {
		cmd := exec.Command(binaryPath, "init", repoDir, "--path", filepath.Join(repoDir, "village.yaml"))
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		data, err := os.ReadFile(filepath.Join(repoDir, ".git", "hooks", "pre-commit"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("village gate"))
	})

	It("is idempotent - running twice does not duplicate the hook block", func() {
		cmd1 := exec.Command(binaryPath, "init", repoDir, "--path", filepath.Join(repoDir, "village.yaml"))
		Expect(cmd1.Run()).To(Succeed())
		cmd2 := exec.Command(binaryPath, "init", repoDir, "--path", filepath.Join(repoDir, "village.yaml"))
		output, err := cmd2.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("already present"))
	})

	It("installs a post-commit hook to pick up newly ready tasks", func() {
		cmd := exec.Command(binaryPath, "init", repoDir, "--path", filepath.Join(repoDir, "village.yaml"))
		Expect(cmd.Run()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(repoDir, ".git", "hooks", "post-commit"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("village queue"))
	})
})
