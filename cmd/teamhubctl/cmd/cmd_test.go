package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	userUsername, userName, userPassword = "", "", ""
	tokenSecret, tokenTTL = "", 7*24*time.Hour
	sweepRetention = 7 * 24 * time.Hour

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"sweep-notifications", "create-user", "issue-token"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

// These cases fail on flag validation before any database connection is attempted.
func TestFlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"create-user without username", []string{"create-user", "--password", "long-enough"}, "--username is required"},
		{"create-user short password", []string{"create-user", "--username", "alice", "--password", "short"}, "at least 8 characters"},
		{"issue-token without secret", []string{"issue-token", "--username", "alice"}, "--jwt-secret is required"},
		{"issue-token zero ttl", []string{"issue-token", "--username", "alice", "--jwt-secret", "x", "--ttl", "0s"}, "--ttl must be positive"},
		{"sweep zero retention", []string{"sweep-notifications", "--retention", "0s"}, "--retention must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("TEAMHUB_CTL_TEST", "set")
	assert.Equal(t, "set", envOr("TEAMHUB_CTL_TEST", "def"))
	assert.Equal(t, "def", envOr("TEAMHUB_CTL_TEST_UNSET", "def"))
}
