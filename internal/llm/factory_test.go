package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{name: "disabled", config: Config{}, wantNil: true},
		{name: "openai", config: Config{Provider: "openai", APIKey: "k"}, wantName: "openai"},
		{name: "claude alias", config: Config{Provider: "Claude", APIKey: "k"}, wantName: "anthropic"},
		{name: "ollama", config: Config{Provider: "ollama"}, wantName: "ollama"},
		{name: "gemini without key", config: Config{Provider: "gemini"}, wantErr: true},
		{name: "openai without key", config: Config{Provider: "openai"}, wantErr: true},
		{name: "unknown", config: Config{Provider: "bard"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}
