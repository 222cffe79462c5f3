package acceptance_test

import (
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("village gate", func() {
	var tmpDir, repoDir string

	BeforeEach(func() {
		tmpDir, repoDir = setupTestRepo("gate-")
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	writeGateConfig := func(repoDir, content string) {
		writeFile(filepath.Join(repoDir, "village.yaml"), content)
	}

	Context("with a passing gate", func() {
		BeforeEach(func() {
			writeGateConfig(repoDir, `gates:
  - name: lint
    run: "echo lint passed"
`)
		})

		It("exits with code 0", func() {
			cmd := exec.Command(binaryPath, "gate", "--path", filepath.Join(repoDir, "village.yaml"))
			err := cmd.Run()
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("with a failing gate", func() {
		BeforeEach(func() {
			writeGateConfig(repoDir, `gates:
  - name: lint
    run: "exit 1"
`)
		})

		It("exits with a non-zero code", func() {
			cmd := exec.Command(binaryPath, "gate", "--path", filepath.Join(repoDir, "village.yaml"))
			err := cmd.Run()
			Expect(err).To(HaveOccurred())
		})

		It("reports which gate failed", func() {
			cmd := exec.Command(binaryPath, "gate", "--path", filepath.Join(repoDir, "village.yaml"))
			output, _ := cmd.CombinedOutput()
			Expect(string(output)).To(ContainSubstring("lint"))
		})
	})

	Context("fail-fast behavior", func() {
		BeforeEach(func() {
			writeGateConfig(repoDir, `gates:
  - name: first
    run: "exit 1"
  - name: second
    run: "echo second ran"
`)
		})

		It("does not run the second gate after the first fails", func() {
			cmd := exec.Command(binaryPath, "gate", "--path", filepath.Join(repoDir, "village.yaml"))
			output, _ := cmd.CombinedOutput()
			Expect(string(output)).NotTo(ContainSubstring("second ran"))
		})
	})

	Context("{staged} substitution", func() {
		BeforeEach(func() {
			writeGateConfig(repoDir, `gates:
  - name: check
    run: "echo {staged}"
`)
			writeFile(filepath.Join(repoDir, "new.txt"), "new content\n")
			runGit(repoDir, "add", "new.txt")
		})

		It("substitutes staged file names into the run command", func() {
			cmd := exec.Command(binaryPath, "gate", "--path", filepath.Join(repoDir, "village.yaml"))
			output, err := cmd.CombinedOutput()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(output)).To(ContainSubstring("new.txt"))
		})
	})

	Context("with no gates configured", func() {
		BeforeEach(func() {
			writeGateConfig(repoDir, `default_agent: claude
`)
		})

		It("exits with code 0 and prints a message", func() {
			cmd := exec.Command(binaryPath, "gate", "--path", filepath.Join(repoDir, "village.yaml"))
			output, err := cmd.CombinedOutput()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(output)).To(ContainSubstring("No gates configured"))
		})
	})
})

var _ = Describe("village gate validate", func() {
	Context("with duplicate gate names", func() {
		It("reports duplicate names", func() {
			cmd := exec.Command(binaryPath, "validate", "--path", testdataPath("gates_duplicate_names.yaml"))
			output, _ := cmd.CombinedOutput()
			Expect(string(output)).To(ContainSubstring("duplicate"))
		})
	})
})
