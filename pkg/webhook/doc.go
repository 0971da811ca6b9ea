// Package webhook signs, sends and verifies JSON webhooks.
//
// Sender posts JSON payloads with retries (via pkg/retry), an optional
// circuit breaker and HMAC-SHA256 signing. Call is the request/response
// variant used for gateway APIs that answer with a JSON document.
//
// Signatures bind the payload to a unix timestamp:
//
//	hex(HMAC-SHA256(secret, "<timestamp>.<payload>"))
//
// and travel in the X-Webhook-Signature, X-Webhook-Timestamp and
// X-Webhook-ID headers. Verify checks the signature in constant time and
// rejects timestamps outside the allowed age window.
package webhook
