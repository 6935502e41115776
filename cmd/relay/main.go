// Relay is the backend of the Pictora image website.
//
// It serves a cached image display proxy, a download proxy, text-to-image
// and image-to-image generation relays in front of BigModel and Stability,
// and the PayPal order endpoints, with secrets kept server-side.
//
// Usage:
//
//	# Start with defaults and environment-provided secrets
//	relay run
//
//	# Start with a config file and reload it on change
//	relay run --config /etc/relay/config.yaml --watch
//
//	# Check a config file
//	relay validate --config config.yaml --output yaml
//
//	# Show the latest journal records
//	relay journal recent --limit 20
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}
