package main

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mirseo/updrm/engine"
	"github.com/mirseo/updrm/internal/fixture"
)

func run(t *testing.T, args ...string) (string, error) {
	out, _, err := runLogged(t, args...)
	return out, err
}

// runLogged runs the app and also returns what it logged.
func runLogged(t *testing.T, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run(append([]string{"updrm"}, args...))
	return out.String(), errOut.String(), err
}

func TestReadPayload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "payload.bin")
	require.NoError(t, ioutil.WriteFile(file, []byte{0, 1, 2}, 0644))

	testCases := []struct {
		testCase string
		text     string
		file     string
		wantErr  bool
	}{
		{"Text only", "hello", "", false},
		{"File only", "", file, false},
		{"Both", "hello", file, true},
		{"Neither", "", "", true},
		{"Missing file", "", filepath.Join(dir, "missing"), true},
	}
	for _, tc := range testCases {
		t.Run(tc.testCase, func(t *testing.T) {
			_, err := readPayload(tc.text, tc.file)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// Ensure write followed by read prints the payload back.
func TestWriteReadCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.png")
	require.NoError(t, ioutil.WriteFile(path, fixture.PNG(32, 32), 0644))

	_, err := run(t, "--level", "error", "write", "--file", path, "--data", `{"id":1}`)
	require.NoError(t, err)

	out, err := run(t, "--level", "error", "read", "--file", path)
	require.NoError(t, err)
	require.Equal(t, `{"id":1}`, out)

	dst := filepath.Join(t.TempDir(), "payload.out")
	_, err = run(t, "read", "-f", path, "-o", dst)
	require.NoError(t, err)
	data, err := ioutil.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"id":1}`), data)

	out, err = run(t, "info", "--file", path)
	require.NoError(t, err)
	require.Contains(t, out, "format: png")
	require.Contains(t, out, "embedded: yes")
}

// Ensure typed engine errors reach the caller.
func TestReadCommandNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.pdf")
	require.NoError(t, ioutil.WriteFile(path, fixture.PDF(1), 0644))

	_, err := run(t, "read", "--file", path)
	require.Error(t, err)
	require.ErrorIs(t, err, engine.ErrNotFound)
}

// Ensure log lines carry the command name and respect the level flag.
func TestCommandLogPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.png")
	require.NoError(t, ioutil.WriteFile(path, fixture.PNG(32, 32), 0644))

	_, logged, err := runLogged(t, "--level", "debug", "write", "--file", path, "--data", "x")
	require.NoError(t, err)
	require.Contains(t, logged, "[write] ")

	_, logged, err = runLogged(t, "--level", "debug", "info", "--file", path)
	require.NoError(t, err)
	require.Contains(t, logged, "[info] ")

	_, logged, err = runLogged(t, "--level", "error", "read", "--file", path)
	require.NoError(t, err)
	require.NotContains(t, logged, "[read] ")
}

func TestMissingFileFlag(t *testing.T) {
	_, err := run(t, "read")
	require.Error(t, err)
}

func TestInvalidLevel(t *testing.T) {
	_, err := run(t, "--level", "loud", "info", "--file", "x.png")
	require.Error(t, err)
}
