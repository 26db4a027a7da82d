// Package csda provides a Go client for NASA's Commercial Smallsat Data
// Acquisition (CSDA) program API.
//
// CSDA authenticates users through Earthdata Login. The client runs the
// Earthdata Login redirect handshake once, keeps the resulting bearer
// token, and uses it for every later request.
//
// # Installation
//
//	go get github.com/nasa-impact/csda-go
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/nasa-impact/csda-go"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    // Log in with EARTHDATA_USERNAME and EARTHDATA_PASSWORD
//	    client, err := csda.Open(ctx, csda.EnvCredential())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer client.Close()
//
//	    for vendor, err := range client.Vendors(ctx) {
//	        if err != nil {
//	            log.Fatal(err)
//	        }
//	        fmt.Println(vendor.Name)
//	    }
//	}
//
// # Client Configuration
//
// The client is configured using functional options:
//
//	client := csda.New(
//	    csda.WithBaseURL(csda.StagingURL),
//	    csda.WithTimeout(2*time.Minute),
//	    csda.WithLogger(slog.Default()),
//	)
//	if err := client.Login(ctx, csda.NetrcAuth{}); err != nil {
//	    log.Fatal(err)
//	}
//
// # Credentials
//
// A [Credential] authenticates the single request sent to Earthdata Login.
// It is never stored on the client. [BasicAuth], [NetrcAuth] and
// [EnvCredential] cover the usual sources.
//
// # Error Handling
//
// Every failure is an [*Error], possibly wrapped with the operation that
// failed:
//
//	err := client.Login(ctx, cred)
//	var apiErr *csda.Error
//	if errors.As(err, &apiErr) && apiErr.Code == csda.CodeAuthResolutionRequired {
//	    fmt.Println("Authorize the application at", apiErr.ResolutionURL)
//	}
//
// Use errors.Is with [ErrAuth], [ErrHTTP] or [ErrPrecondition] to test
// the category.
//
// # Thread Safety
//
// Log in before sharing a [Client]. Once logged in it is safe for
// concurrent use by multiple goroutines.
package csda
