package interfaces

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for HTTP requests.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request to the specified URL with parameters.
	// Returns the response body as bytes or a typed helpers.SnapshotError /
	// helpers.NetworkError. No retries: the snapshot path surfaces failures
	// to the caller for explicit refetch.
	Get(url string, params map[string]string) ([]byte, error)
}
