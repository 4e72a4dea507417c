package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-orderevents/internal/auth"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_DSN", "postgres://localhost/orderevents")
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("BROKER_DRIVER", "memory")
}

func TestTokenCmd(t *testing.T) {
	setEnv(t)

	out, err := run(t, "token", "--user", "7", "--role", "ADMIN")
	require.NoError(t, err)

	id, err := auth.NewJWTManager(testSecret, "sistemapedidos").ValidateAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.UserID)
	assert.Equal(t, "ADMIN", id.Role)
}

func TestPublishCmd_Memory(t *testing.T) {
	setEnv(t)

	out, err := run(t, "publish", "--topic", "order-created", "--payload", "Order 42 for user 7 created")
	require.NoError(t, err)
	assert.Contains(t, out, "published to order-created")

	_, err = run(t, "publish", "--topic", "order-failed", "--payload", "x")
	assert.Error(t, err)
}

func TestPublishCmd_RequiresFlags(t *testing.T) {
	setEnv(t)

	_, err := run(t, "publish", "--topic", "order-created")
	assert.Error(t, err)
}

func TestConfigFlag_MissingFile(t *testing.T) {
	setEnv(t)

	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "token", "--user", "1")
	assert.Error(t, err)
}
