package ciutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, GoModFile), []byte("module example.com/x\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal", "deep", "pkg"), 0o755))
	return root
}

func clearCIEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvProjectRoot, EnvCI, EnvGitHubActions, EnvGitHubWorkspace, EnvGitLabCI, EnvGitLabProjectDir} {
		t.Setenv(key, "")
	}
}

func TestFindProjectRootFrom(t *testing.T) {
	root := makeProject(t)

	got, err := findProjectRootFrom(filepath.Join(root, "internal", "deep", "pkg"))
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = findProjectRootFrom(t.TempDir())
	assert.ErrorIs(t, err, ErrProjectRootNotFound)
}

func TestFindProjectRoot_Override(t *testing.T) {
	clearCIEnv(t)
	root := makeProject(t)

	t.Setenv(EnvProjectRoot, root)
	got, err := FindProjectRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	t.Setenv(EnvProjectRoot, t.TempDir())
	_, err = FindProjectRoot(nil)
	assert.ErrorIs(t, err, ErrInvalidProjectRoot)
}

func TestFindProjectRoot_GitHubWorkspace(t *testing.T) {
	clearCIEnv(t)
	root := makeProject(t)
	t.Setenv(EnvGitHubActions, "true")
	t.Setenv(EnvGitHubWorkspace, root)

	got, err := FindProjectRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, root, got)
	assert.True(t, IsCI())
}

func TestIsCI(t *testing.T) {
	clearCIEnv(t)
	assert.False(t, IsCI())

	t.Setenv(EnvCI, "true")
	assert.True(t, IsCI())
}
