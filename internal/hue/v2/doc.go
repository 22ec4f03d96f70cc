// Package v2 provides a small Hue V2 API (CLIP) client.
//
// It covers what the combined light needs: reading lights, updating on/dimming,
// and the SSE event stream. huego only speaks the V1 API and has no event stream.
//
// The V2 API uses HTTPS with self-signed certificates (requires TLS skip verify).
package v2
