// package server exposes the recommendation service over HTTP.
//
// The package provides a small router with middleware support, the browser
// sign-in flow (authorization code + state cookie), and the JSON API routes.
// All API responses share the actionResponse envelope: {success, tracks?,
// summary?, message?, data?}.
package server
