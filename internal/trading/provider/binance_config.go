package tradingprovider

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
)

// BinanceProviderConfig contains configuration for Binance trading.
type BinanceProviderConfig struct {
	ApiKey    string `json:"apiKey" validate:"required"`
	SecretKey string `json:"secretKey" validate:"required"`
	// BaseURL overrides the REST endpoint, e.g. for a local mock server.
	BaseURL string `json:"baseUrl,omitempty" validate:"omitempty,url"`
	Testnet bool   `json:"testnet"`
	// RequestsPerSecond bounds the client side request rate. Zero disables limiting.
	RequestsPerSecond float64 `json:"requestsPerSecond" validate:"gte=0"`
}

// Validate validates the BinanceProviderConfig struct.
func (c *BinanceProviderConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeMissingCredentials, "invalid binance provider config", err)
	}

	return nil
}
