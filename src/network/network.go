package network

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/logger"
	"market-sync/src/models"
)

// NetworkManager performs single-shot GET requests for the snapshot path.
// It deliberately does not retry: snapshot fetch failures surface to the
// caller as typed errors for an explicit user-triggered refetch.
type NetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
	token  string
}

// -----------------------------------------------------------------------------

func NewNetworkManager(cfg *models.MConfig, token string, log *logger.Logger) *NetworkManager {
	return &NetworkManager{
		Config: cfg,
		Logger: log,
		token:  token,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request and returns the body bytes.
// Non-2xx responses come back as *helpers.SnapshotError carrying the status
// code; transport failures come back as *helpers.NetworkError.
func (nm *NetworkManager) Get(urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, &helpers.NetworkError{MarketSyncError: helpers.MarketSyncError{Message: "invalid url", Cause: err}}
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	req, err := http.NewRequest("GET", reqUrl.String(), nil)
	if err != nil {
		return nil, &helpers.NetworkError{MarketSyncError: helpers.MarketSyncError{Message: "build request", Cause: err}}
	}

	if nm.Config.Network.UserAgent != "" {
		req.Header.Set("User-Agent", nm.Config.Network.UserAgent)
	}
	if nm.token != "" {
		req.Header.Set("Authorization", "Bearer "+nm.token)
	}

	resp, err := nm.Client.Do(req)
	if err != nil {
		nm.Logger.Info("Request failed: %v", err)
		return nil, &helpers.NetworkError{MarketSyncError: helpers.MarketSyncError{Message: "request failed", Cause: err}}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		nm.Logger.Info("Bad status %d for %s", resp.StatusCode, reqUrl.Path)
		return nil, helpers.NewSnapshotError(resp.StatusCode, fmt.Sprintf("GET %s", reqUrl.Path), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &helpers.NetworkError{MarketSyncError: helpers.MarketSyncError{Message: "read body", Cause: err}}
	}

	return body, nil
}
