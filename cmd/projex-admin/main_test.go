package main

import (
	"bytes"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "admin.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("DEFAULT_ADMIN_EMAIL", "root@example.com")
	t.Setenv("DEFAULT_ADMIN_PASSWORD", "rootpw1")
}

func TestRun_AddUser(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name    string
		args    []string
		stdin   string
		wantOut string
		wantErr string
	}{
		{
			name:    "prompted password",
			args:    []string{"adduser", "-name", "Ada", "-email", "ada@example.com", "-role", "admin"},
			stdin:   "secret1\n",
			wantOut: "User ada@example.com created with ID 1 and role admin",
		},
		{
			name:    "duplicate email",
			args:    []string{"adduser", "-name", "Ada", "-email", "ada@example.com", "-password", "secret1"},
			wantErr: "user ada@example.com already exists",
		},
		{
			name:    "short password",
			args:    []string{"adduser", "-name", "Bob", "-email", "bob@example.com", "-password", "123"},
			wantErr: "Please enter a password with 6 or more characters",
		},
		{
			name:    "bad role",
			args:    []string{"adduser", "-name", "Bob", "-email", "bob@example.com", "-role", "owner", "-password", "secret1"},
			wantErr: `invalid role "owner"`,
		},
		{
			name:    "missing flags",
			args:    []string{"adduser", "-name", "Bob"},
			wantErr: "missing required flags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, strings.NewReader(tt.stdin), &stdout, &stderr)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, stdout.String(), tt.wantOut)
		})
	}
}

func TestRun_SeedIsIdempotent(t *testing.T) {
	setupEnv(t)

	var out bytes.Buffer
	require.NoError(t, run([]string{"seed"}, strings.NewReader(""), &out, &out))
	assert.Contains(t, out.String(), "Default admin root@example.com created")

	out.Reset()
	require.NoError(t, run([]string{"seed"}, strings.NewReader(""), &out, &out))
	assert.Contains(t, out.String(), "already exists")
}

func TestRun_Commands(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer

	assert.ErrorContains(t, run(nil, strings.NewReader(""), &out, &out), "missing command")
	assert.ErrorContains(t, run([]string{"drop"}, strings.NewReader(""), &out, &out), `unknown command "drop"`)
	assert.ErrorIs(t, run([]string{"help"}, strings.NewReader(""), &out, &out), flag.ErrHelp)
}
