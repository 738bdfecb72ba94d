package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// LogsEnv enables dumping captured logs at the end of a test.
const LogsEnv = "HERDER_TEST_LOGS"

// Project is a herd project written to a temporary directory.
type Project struct {
	Dir        string
	ConfigPath string
}

// Path returns name joined to the project directory.
func (p *Project) Path(name string) string {
	return filepath.Join(p.Dir, name)
}

// WriteProject creates a temporary root directory and writes files into it.
// Keys are slash separated paths relative to the root; configName is the key
// of the configuration file.
func WriteProject(t *testing.T, configName string, files map[string]string) *Project {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return &Project{Dir: dir, ConfigPath: filepath.Join(dir, filepath.FromSlash(configName))}
}

// DumpLogs logs buf at the end of t when LogsEnv is "true".
func DumpLogs(t *testing.T, buf *SafeBuffer) {
	t.Helper()
	t.Cleanup(func() {
		if os.Getenv(LogsEnv) == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
}
