// Package health serves the relay's liveness, readiness, and version probes.
//
// Liveness always answers 200 while the process runs. Readiness runs the
// registered component checks concurrently, each under its own timeout, and
// answers 503 when any of them fails. Components that are switched off
// (a provider without credentials, a disabled journal) are registered with
// RegisterDisabled and reported without affecting readiness.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("journal", store.Ping)
//	checker.RegisterDisabled("paypal", "PAYPAL_CLIENT_ID not set")
//	health.Register(mux, checker, health.Paths{}, health.VersionInfo{Version: "1.0.0"})
package health
