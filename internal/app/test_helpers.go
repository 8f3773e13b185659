package app

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pubgrid/internal/testutil"
)

// SetupAppTest creates an App for system tests. It returns the App, its
// output buffer and its log buffer.
func SetupAppTest(t *testing.T, cfg Config, opts ...Option) (*App, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()

	cfg.LogLevel = "debug"
	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	testApp, err := NewApp(out, logs, validated, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("PUBGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return testApp, out, logs
}
