package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsp-client/src/config"
	"lsp-client/src/internal/constants"
)

func TestConfiguredRequestTimeoutReachesClient(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.RequestTimeoutSeconds = 90

	client, err := buildClient(cfg, "go")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, client.RequestTimeout())
}

func TestDefaultRequestTimeoutWhenUnset(t *testing.T) {
	client, err := buildClient(config.GetDefaultConfig(), "go")
	require.NoError(t, err)
	assert.Equal(t, constants.GetRequestTimeout("go"), client.RequestTimeout())
}

func TestBuildClientRejectsUnknownLanguage(t *testing.T) {
	_, err := buildClient(config.GetDefaultConfig(), "cobol")
	assert.Error(t, err)
}
