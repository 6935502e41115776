// Package generation relays image generation requests to the upstream
// providers.
//
// BigModel (POST /api/generate) turns {prompt, size} into a CogView call
// and normalizes the result to {artifacts: [{url, base64}]}. Stability
// (POST /api/generate-image-to-image) sends the base64 init image and
// weighted text prompts as a multipart form with fixed parameters
// (image strength 0.35, cfg scale 7, 30 steps, 1 sample) and returns the
// provider's JSON as-is.
//
// Each handler makes exactly one upstream call. A missing API key is
// reported as a configuration error without contacting the provider, and
// a Stability content_moderation rejection becomes a 403.
package generation
