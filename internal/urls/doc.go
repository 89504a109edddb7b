// Package urls provides centralized constants for the documentation URLs
// shown in troubleshooting hints and command help.
//
// Usage:
//
//	import "github.com/muurk/bestway-spa/internal/urls"
//
//	fmt.Printf("Credential guide: %s\n", urls.Credentials)
package urls
