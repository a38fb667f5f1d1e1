// Package app wires biolink together with go.uber.org/fx.
//
// Core provides configuration, logging, metrics, OpenTelemetry, MongoDB,
// email and the analytics service. Web adds Redis, login, billing, domains
// and the HTTP servers. Providers that own a connection also contribute a
// Closer to the "closers" value group; binaries collect them with
// CollectClosers and hand them to an observability.ShutdownManager.
package app
