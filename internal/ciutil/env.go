package ciutil

import "os"

// Environment variables consulted by this package.
const (
	EnvCI               = "CI"
	EnvGitHubActions    = "GITHUB_ACTIONS"
	EnvGitHubWorkspace  = "GITHUB_WORKSPACE"
	EnvGitLabCI         = "GITLAB_CI"
	EnvGitLabProjectDir = "CI_PROJECT_DIR"

	// EnvProjectRoot overrides project root detection.
	EnvProjectRoot = "TASKFLOW_PROJECT_ROOT"
)

// IsCI reports whether the process runs under a CI provider.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != ""
}

// ciWorkspace returns the checkout directory announced by the CI provider,
// or "".
func ciWorkspace() string {
	if os.Getenv(EnvGitHubActions) != "" {
		if dir := os.Getenv(EnvGitHubWorkspace); dir != "" {
			return dir
		}
	}
	if os.Getenv(EnvGitLabCI) != "" {
		return os.Getenv(EnvGitLabProjectDir)
	}
	return ""
}
