// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// ProviderHTTPClient is shared by outbound payment provider calls. Checkout
// requests block on it, so the timeout stays well under the gateway's.
var ProviderHTTPClient = &http.Client{
	Timeout: 20 * time.Second,
}
