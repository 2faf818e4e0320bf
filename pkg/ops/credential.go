package ops

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/flowforge/redisrun/pkg/kv"
	redkv "github.com/flowforge/redisrun/pkg/kv/redis"
)

// Credential is the flat connection record supplied by the caller. It is
// read-only for this package.
type Credential struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Database int    `json:"database" mapstructure:"database"`
	User     string `json:"user,omitempty" mapstructure:"user"`
	Password string `json:"password,omitempty" mapstructure:"password"`
	SSL      bool   `json:"ssl,omitempty" mapstructure:"ssl"`

	// DialTimeout is filled in by the host from its configuration, not by
	// the caller; zero falls back to the package default.
	DialTimeout time.Duration `json:"-" mapstructure:"-"`
}

func (c Credential) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

const defaultDialTimeout = 5 * time.Second

// Provision builds a store handle from the credential. It is side-effect-free
// until the handle is used; the first command dials the server. Empty or
// blank user/password are normalized to "no authentication" instead of being
// sent as empty strings.
func Provision(cred Credential) kv.Store {
	return redkv.NewWithOptions(provisionOptions(cred))
}

func provisionOptions(cred Credential) redkv.Options {
	user := strings.TrimSpace(cred.User)
	password := cred.Password
	if password == "" {
		user = ""
	}

	timeout := cred.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	return redkv.Options{
		Addr:        cred.Addr(),
		Username:    user,
		Password:    password,
		DB:          cred.Database,
		TLS:         cred.SSL,
		DialTimeout: timeout,
	}
}

// TestResult reports the outcome of a credential check.
type TestResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Test opens a handle, issues a liveness probe, and reports the first
// failure's message verbatim. The handle is always closed.
func Test(ctx context.Context, cred Credential) TestResult {
	store := Provision(cred)
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return TestResult{Status: "Error", Message: err.Error()}
	}
	return TestResult{Status: "OK", Message: "Connection successful!"}
}
