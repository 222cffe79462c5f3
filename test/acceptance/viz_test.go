package acceptance_test

import (
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("village viz", func() {
	var tmpDir, repoDir string

	BeforeEach(func() {
		tmpDir, repoDir = setupTestRepo("viz-")
		writeFile(filepath.Join(repoDir, "village.yaml"), `concerns:
  - name: security
    watches: completed
    prompt: "Review for security issues"
  - name: docs
    watches: security
    prompt: "Update documentation"
`)
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("draws the concern chain as a tree rooted at completed", func() {
		cmd := exec.Command(binaryPath, "viz", "--path", filepath.Join(repoDir, "village.yaml"))
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		out := string(output)
		Expect(out).To(ContainSubstring("completed"))
		Expect(out).To(ContainSubstring("security"))
		Expect(out).To(ContainSubstring("docs"))
	})
})
