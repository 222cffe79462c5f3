package acceptance_test

import (
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("village ready", func() {
	var tmpDir, repoDir string

	BeforeEach(func() {
		tmpDir, repoDir = setupTestRepo("ready-")
		writeFile(filepath.Join(repoDir, "village.yaml"), `session_name: village-ready-test
`)
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("reports the environment is not ready before `village up` has run", func() {
		cmd := exec.Command(binaryPath, "ready", "--path", filepath.Join(repoDir, "village.yaml"))
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("not ready"))
		Expect(string(output)).To(ContainSubstring("village up"))
	})

	It("reports ready JSON with environment_ready false", func() {
		cmd := exec.Command(binaryPath, "ready", "--json", "--path", filepath.Join(repoDir, "village.yaml"))
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring(`"EnvironmentReady": false`))
	})
})
