package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"hash-password", "--cost", "4", "correct horse"})

	require.NoError(t, root.Execute())
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
}

func TestMigrateDown_RejectsBadVersion(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate", "down", "latest"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid version")
}

func TestSeedFlags(t *testing.T) {
	cmd := newSeedCmd(&env{})
	require.NoError(t, cmd.ParseFlags([]string{"--posts", "3", "--clean"}))

	posts, err := cmd.Flags().GetInt("posts")
	require.NoError(t, err)
	assert.Equal(t, 3, posts)
	clean, err := cmd.Flags().GetBool("clean")
	require.NoError(t, err)
	assert.True(t, clean)
}
