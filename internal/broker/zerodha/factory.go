package zerodha

import (
	"net/http"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// newKiteClient builds an authenticated Kite Connect client.
func newKiteClient(apiKey, accessToken string, timeout time.Duration) kiteAPI {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	kc.SetHTTPClient(&http.Client{Timeout: timeout})
	return kc
}
