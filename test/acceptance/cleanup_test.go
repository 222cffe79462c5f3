package acceptance_test

import (
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("village cleanup", func() {
	var tmpDir, repoDir string

	BeforeEach(func() {
		tmpDir, repoDir = setupTestRepo("cleanup-")
		writeFile(filepath.Join(repoDir, "village.yaml"), `session_name: village-cleanup-test
`)
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("reports nothing to clean up on a fresh repo", func() {
		cmd := exec.Command(binaryPath, "cleanup", "--path", filepath.Join(repoDir, "village.yaml"))
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("Nothing to clean up"))
	})

	It("detects a worktree with no matching lock as an orphan", func() {
		runGit(repoDir, "worktree", "add", "-b", "worktree-orphan-task", filepath.Join(repoDir, ".worktrees", "orphan-task"), "main")

		cmd := exec.Command(binaryPath, "cleanup", "--path", filepath.Join(repoDir, "village.yaml"))
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("orphan worktree"))
		Expect(string(output)).To(ContainSubstring("orphan-task"))
	})

	It("removes the orphan worktree with --apply", func() {
		runGit(repoDir, "worktree", "add", "-b", "worktree-orphan-task2", filepath.Join(repoDir, ".worktrees", "orphan-task2"), "main")

		cmd := exec.Command(binaryPath, "cleanup", "--apply", "--path", filepath.Join(repoDir, "village.yaml"))
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		list := runGitOutput(repoDir, "worktree", "list")
		Expect(list).NotTo(ContainSubstring("orphan-task2"))
	})
})
