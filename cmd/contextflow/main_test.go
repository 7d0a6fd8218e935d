package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/contextflow/internal/auth"
)

func TestReadInput(t *testing.T) {
	got, err := readInput([]string{"night", "sweats"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "night sweats", got)

	got, err = readInput(nil, strings.NewReader("  from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	_, err = readInput(nil, strings.NewReader("   "))
	assert.Error(t, err)
}

func TestParseMeta(t *testing.T) {
	meta, err := parseMeta([]string{"topic=copyright", " source = memo "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"topic": "copyright", "source": "memo"}, meta)

	_, err = parseMeta([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseMeta([]string{"user_id=someone-else"})
	assert.ErrorContains(t, err, "--user")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	secret := "cli-test-secret-that-is-long-enough-32"
	t.Setenv("JWT_SECRET", secret)

	out, err := execute(t, "token", "u1", "--scope", "memory")
	require.NoError(t, err)

	claims, err := auth.NewJWTManager(secret, "contextflow", 0).ValidateAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, []string{"memory"}, claims.Scopes)
}

func TestLearnThenRecall(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := strings.Cut(mr.Addr(), ":")
	t.Setenv("REDIS_HOST", host)
	t.Setenv("REDIS_PORT", port)
	t.Setenv("EMBEDDING_PROVIDER", "hash")
	t.Setenv("EMBEDDING_SPARSE_TOKENIZER", "word")
	t.Setenv("LLM_PROVIDER", "echo")
	dir := t.TempDir()

	out, err := execute(t, "learn", "--embedded", "--embedded-path", dir, "--user", "u1",
		"-m", "topic=clinical", "blood cultures before antibiotics")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = execute(t, "recall", "--embedded", "--embedded-path", dir, "--user", "u1", "blood", "cultures")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "blood cultures before antibiotics")

	out, err = execute(t, "recall", "--embedded", "--embedded-path", dir, "--user", "u2", "blood", "cultures")
	require.NoError(t, err)
	assert.Contains(t, out, "no matching knowledge")

	out, err = execute(t, "forget", "--embedded", "--embedded-path", dir, "--user", "u1", "--where", "topic=clinical")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1 records\n", out)
}
