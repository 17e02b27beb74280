package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/pollboard/internal/auth"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	globalFlags.debug = false
	globalFlags.configFile = ""

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	passwordHasher = auth.NewPasswordServiceForTest(bcrypt.MinCost)
	t.Cleanup(func() { passwordHasher = auth.NewPasswordService() })

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"argument", "", []string{"hash-password", "s3cret"}},
		{"stdin", "s3cret\n", []string{"hash-password"}},
		{"stdin without newline", "s3cret", []string{"hash-password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			hash := strings.TrimSpace(out)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
		})
	}
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := run(t, "", "hash-password")
	require.Error(t, err)
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "auth:\n  jwt_secret: \"sweep-command-test-secret\"\n" +
		"database:\n  path: \"" + filepath.ToSlash(filepath.Join(dir, "data", "polls.db")) + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	out, err := run(t, "", "--config", cfgPath, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 expired poll(s)")
}

func TestSweep_BadConfig(t *testing.T) {
	_, err := run(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "sweep")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, programName)
}
