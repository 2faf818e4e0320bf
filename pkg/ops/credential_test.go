package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialAddr(t *testing.T) {
	cred := Credential{Host: "localhost", Port: 6379}
	assert.Equal(t, "localhost:6379", cred.Addr())

	cred = Credential{Host: "::1", Port: 6380}
	assert.Equal(t, "[::1]:6380", cred.Addr())
}

func TestCredentialTestUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Port 1 on loopback refuses connections immediately.
	result := Test(ctx, Credential{Host: "127.0.0.1", Port: 1})

	assert.Equal(t, "Error", result.Status)
	assert.NotEmpty(t, result.Message, "the probe failure message is reported verbatim")
}

func TestProvisionOptions(t *testing.T) {
	opts := provisionOptions(Credential{Host: "10.0.0.1", Port: 6379})
	assert.Equal(t, "10.0.0.1:6379", opts.Addr)
	assert.Equal(t, defaultDialTimeout, opts.DialTimeout, "zero timeout falls back to the default")

	opts = provisionOptions(Credential{Host: "10.0.0.1", Port: 6379, DialTimeout: 2 * time.Second})
	assert.Equal(t, 2*time.Second, opts.DialTimeout, "a configured timeout is passed through")

	// An empty password disables authentication entirely, including the
	// user.
	opts = provisionOptions(Credential{Host: "h", Port: 1, User: "admin"})
	assert.Empty(t, opts.Username)
	assert.Empty(t, opts.Password)

	opts = provisionOptions(Credential{Host: "h", Port: 1, User: " admin ", Password: "s3cret", SSL: true})
	assert.Equal(t, "admin", opts.Username)
	assert.Equal(t, "s3cret", opts.Password)
	assert.True(t, opts.TLS)
}

func TestProvisionIsLazy(t *testing.T) {
	// Provisioning against a host that does not exist must not fail; the
	// dial happens on first use.
	store := Provision(Credential{Host: "copper.invalid", Port: 6379})
	require.NotNil(t, store)
	require.NoError(t, store.Close())
}
