package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell syntax")
	}
}

func TestOS_Run(t *testing.T) {
	skipOnWindows(t)

	t.Run("captures output in the given directory and environment", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), nil, 0o644))

		var stdout, stderr bytes.Buffer
		res, err := NewOS().Run(context.Background(), Command{
			Line:   `ls; echo "$GREETING"; echo oops >&2`,
			Dir:    dir,
			Env:    EnvList(map[string]string{"GREETING": "hello", "PATH": os.Getenv("PATH")}),
			Stdout: &stdout,
			Stderr: &stderr,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "marker\nhello\n", stdout.String())
		assert.Equal(t, "oops\n", stderr.String())
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		res, err := NewOS().Run(context.Background(), Command{Line: "exit 3"})
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
	})

	t.Run("deadline kills the process", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		res, err := NewOS().Run(ctx, Command{Line: "sleep 5"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Equal(t, -1, res.ExitCode)
		assert.Less(t, time.Since(start), 4*time.Second)
	})

	t.Run("missing directory fails to start", func(t *testing.T) {
		_, err := NewOS().Run(context.Background(), Command{Line: "true", Dir: filepath.Join(t.TempDir(), "missing")})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "failed to start"))
	})
}

func TestEnvList(t *testing.T) {
	got := EnvList(map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, []string{"A=1", "B=2"}, got)
}
