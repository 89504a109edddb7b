// Package spaclient is a client for the Bestway smart hub cloud API used by
// Bestway (Lay-Z-Spa) hot tubs.
//
// The API authenticates every request with a signature over the app id, app
// secret, a per-request nonce and a timestamp. A session token is minted from
// the visitor endpoint and cached client-side; state is read from the
// thing_shadow endpoint and changed through the command endpoint.
//
// # Usage Example
//
//	client := spaclient.NewClient(spaclient.Credentials{
//	    AppID:          "...",
//	    AppSecret:      "...",
//	    DeviceID:       "...",
//	    ProductID:      "...",
//	    RegistrationID: "...",
//	    VisitorID:      "...",
//	    ClientID:       "...",
//	})
//	defer client.Close()
//
//	snap, err := client.FetchState(ctx)
//	if err != nil {
//	    log.Fatal(spaclient.ShortMessage(err))
//	}
//	temp, _ := snap.Int("water_temperature")
//
//	// Turn the heater on
//	_, err = client.SetState(ctx, "heater_state", 2)
//
// # Token Handling
//
// Tokens are cached for TokenTTL (23h by default, just under the presumed
// server lifetime). A response with code 10001 means the server rejected the
// token: the client drops it, mints a new one and retries the call exactly
// once. There is no backoff; callers poll again on their own schedule.
//
// # Error Handling
//
// All API failures are *APIError values. Use IsConnectionError, IsAuthError,
// IsMalformedResponseError and IsProtocolError to distinguish them.
package spaclient
