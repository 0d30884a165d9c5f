package torbox

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/amaumene/resolvarr/internal/config"
	"github.com/sirupsen/logrus"
)

// Client talks to the TorBox debrid API. Credentials are injected at
// construction from the config struct, never read from ambient state,
// so multiple accounts and tests can run side by side.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new TorBox client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.TorBoxAPIKey == "" {
		return nil, fmt.Errorf("TorBox API key is required")
	}

	return &Client{
		apiKey:  cfg.TorBoxAPIKey,
		baseURL: strings.TrimRight(cfg.TorBoxAPIURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.DebridTimeout(),
		},
		logger: logger,
	}, nil
}
