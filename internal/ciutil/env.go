package ciutil

import "os"

// Common environment variable names used across the codebase.
const (
	// CI environment detection variables
	EnvCI              = "CI"
	EnvGitHubActions   = "GITHUB_ACTIONS"
	EnvGitHubWorkspace = "GITHUB_WORKSPACE"
	EnvGitLabCI        = "GITLAB_CI"
	EnvGitLabDir       = "CI_PROJECT_DIR"
	EnvJenkinsURL      = "JENKINS_URL"
	EnvTravisCI        = "TRAVIS"
	EnvCircleCI        = "CIRCLECI"

	// EnvProjectRoot explicitly overrides project root detection.
	EnvProjectRoot = "PETCARE_PROJECT_ROOT"
)

// IsCI returns true if the current environment is a CI environment.
// It checks for common CI environment variables across different CI providers.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != "" ||
		os.Getenv(EnvJenkinsURL) != "" ||
		os.Getenv(EnvTravisCI) != "" ||
		os.Getenv(EnvCircleCI) != ""
}
