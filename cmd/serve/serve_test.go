package serve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalanapp/dalan-go/internal/conf"
)

func TestPortFlagBindsToSettings(t *testing.T) {
	settings := &conf.Settings{}
	settings.WebServer.Port = "8080"

	cmd := Command(settings)
	require.NoError(t, cmd.Flags().Set("port", "9090"))
	assert.Equal(t, "9090", settings.WebServer.Port)
}
