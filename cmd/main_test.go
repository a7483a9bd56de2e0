package main

import (
	"bytes"
	"testing"
	"time"

	"taskflow/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line   string
		key    string
		val    string
		wantOK bool
	}{
		{line: "API_MODE=live", key: "API_MODE", val: "live", wantOK: true},
		{line: `  JWT_SECRET = "s3cret" `, key: "JWT_SECRET", val: "s3cret", wantOK: true},
		{line: "KAFKA_BROKERS='a:1,b:2'", key: "KAFKA_BROKERS", val: "a:1,b:2", wantOK: true},
		{line: "EMPTY=", key: "EMPTY", val: "", wantOK: true},
		{line: "# comment"},
		{line: ""},
		{line: "=novalue"},
		{line: "no-equals"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			key, val, ok := parseEnvLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.key, key)
				assert.Equal(t, tt.val, val)
			}
		})
	}
}

func TestMintToken(t *testing.T) {
	now := time.Now()
	signed, err := mintToken("s", "u1", time.Hour, now)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	_, err = mintToken("", "u1", time.Hour, now)
	assert.Error(t, err)
	_, err = mintToken("s", "", time.Hour, now)
	assert.Error(t, err)
}

func TestSeedData(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	projects, todos := seedData("seed", 3, 20, now)
	require.Len(t, projects, 3)
	require.Len(t, todos, 20)

	ids := map[string]bool{}
	for _, td := range todos {
		require.NoError(t, td.Validate())
		assert.Equal(t, "seed", td.UserID)
		assert.Equal(t, td.Status == models.StatusDone, td.CompletedAt != nil)
		ids[td.ID] = true
	}
	assert.Len(t, ids, 20)

	require.NotNil(t, todos[9].ParentTodoID)
	assert.Equal(t, todos[8].ID, *todos[9].ParentTodoID)
	assert.Equal(t, *todos[8].ProjectID, *todos[9].ProjectID)

	_, bare := seedData("seed", 0, 2, now)
	assert.Nil(t, bare[0].ProjectID)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "taskflow version "+Version+"\n", out.String())
}
