package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndApplyDefaultsFillsZeroValues(t *testing.T) {
	var config UnifiedConfiguration

	config.ValidateAndApplyDefaults()

	assert.Equal(t, "https://api.odcloud.kr/api/gov24/v3", config.Upstream.BaseURL)
	assert.Equal(t, 30*time.Second, config.Upstream.HTTPRequestTimeout)
	assert.Equal(t, 3, config.Upstream.MaxRetryAttempts)
	assert.Equal(t, 100, config.Sync.PageSize)
	assert.Equal(t, 6*time.Hour, config.Sync.Interval)
	assert.Equal(t, 1000, config.Sync.MaxTotalPages)
	assert.Equal(t, 15*time.Minute, config.Cache.DefaultTTL)
	assert.Equal(t, "subsidy-backend", config.Logging.ServiceName)
}

func TestLoadFromJSONKeepsOverridesAndFillsRest(t *testing.T) {
	var config UnifiedConfiguration

	err := config.LoadFromJSON([]byte(`{"sync":{"page_size":250},"upstream":{"max_retries":5}}`))

	require.NoError(t, err)
	assert.Equal(t, 250, config.Sync.PageSize)
	assert.Equal(t, 5, config.Upstream.MaxRetryAttempts)
	assert.Equal(t, "https://api.odcloud.kr/api/gov24/v3", config.Upstream.BaseURL)
	assert.Equal(t, 15*time.Minute, config.Cache.DefaultTTL)
}

func TestLoadFromJSONRejectsMalformedInput(t *testing.T) {
	var config UnifiedConfiguration

	err := config.LoadFromJSON([]byte(`{"sync":`))

	assert.Error(t, err)
}

func TestConfigJSONRoundTrip(t *testing.T) {
	original := NewDefaultUnifiedConfiguration()
	original.Sync.PageSize = 42

	data, err := original.ToJSON()
	require.NoError(t, err)

	var restored UnifiedConfiguration
	require.NoError(t, restored.LoadFromJSON(data))

	assert.Equal(t, original.Sync.PageSize, restored.Sync.PageSize)
	assert.Equal(t, original.Upstream, restored.Upstream)
	assert.Equal(t, original.Database, restored.Database)
	assert.Equal(t, original.Cache, restored.Cache)
}
