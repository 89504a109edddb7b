// Package discovery advertises and finds bestway-bridge instances over mDNS.
//
// A bridge registers itself as a "_bestway-spa._tcp" service with TXT
// records naming the spa device id and the bridge version. Clients browse for
// that service type to locate bridges without configuration.
//
// # Usage Example
//
//	// Advertise a bridge
//	ad, err := discovery.Advertise("Bestway Spa", 8089, deviceID, version.Version)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ad.Shutdown()
//
//	// Find bridges
//	bridges, err := discovery.NewScanner().Scan(ctx)
//	for _, b := range bridges {
//	    fmt.Println(b, b.BaseURL())
//	}
package discovery
