package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadClaimsArg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.jsonl")
	content := `{"id":"c1","user_id":"u1","merchant":"Cafe","amount":100}
{"id":"c2","user_id":"u2","merchant":"Taxi","amount":12.5}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	claims, err := readClaimsArg(path)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, "c1", claims[0].ID)
	assert.Equal(t, "Taxi", claims[1].Merchant)
}

func TestReadClaimsArg_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("\n# nothing\n"), 0644))

	_, err := readClaimsArg(path)
	assert.Error(t, err)
}

func TestWriteJSON_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, writeJSON(path, map[string]int{"n": 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got["n"])
}
