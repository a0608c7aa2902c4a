package marketdata

import (
	"encoding/json"
	"testing"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ProviderRegistryTestSuite struct {
	suite.Suite
}

func TestProviderRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(ProviderRegistryTestSuite))
}

func (suite *ProviderRegistryTestSuite) TestGetSupportedProviders() {
	suite.Equal([]string{"binance", "csv", "file", "polygon"}, GetSupportedProviders())
}

func (suite *ProviderRegistryTestSuite) TestGetProviderInfo() {
	testCases := []struct {
		name         string
		displayName  string
		requiresAuth bool
		remote       bool
	}{
		{"polygon", "Polygon.io", true, true},
		{"binance", "Binance", false, true},
		{"file", "Parquet or CSV file", false, false},
		{"csv", "CSV file", false, false},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			info, err := GetProviderInfo(tc.name)
			suite.Require().NoError(err)
			suite.Equal(tc.name, info.Name)
			suite.Equal(tc.displayName, info.DisplayName)
			suite.Equal(tc.requiresAuth, info.RequiresAuth)
			suite.Equal(tc.remote, info.Remote)
			suite.NotEmpty(info.Description)
		})
	}
}

func (suite *ProviderRegistryTestSuite) TestGetProviderInfoInvalidProvider() {
	_, err := GetProviderInfo("invalid")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
	suite.Contains(err.Error(), "unsupported provider")
}

func (suite *ProviderRegistryTestSuite) TestGetDownloadConfigSchema() {
	schema, err := GetDownloadConfigSchema()
	suite.Require().NoError(err)

	var schemaMap map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &schemaMap))

	properties, ok := schemaMap["properties"].(map[string]any)
	suite.Require().True(ok)

	for _, field := range []string{"provider", "ticker", "startDate", "endDate", "interval", "apiKey"} {
		suite.Contains(properties, field)
	}

	required, ok := schemaMap["required"].([]any)
	suite.Require().True(ok)
	suite.ElementsMatch([]any{"provider", "ticker", "startDate", "endDate"}, required)

	provider, ok := properties["provider"].(map[string]any)
	suite.Require().True(ok)
	suite.Equal([]any{"polygon", "binance"}, provider["enum"])
}
