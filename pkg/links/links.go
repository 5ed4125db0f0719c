// Package links builds the retrieval artifact for a secret: the link a
// recipient follows to redeem it and a QR encoding of that same link.
package links

import "errors"

// Artifact pairs the retrieval link with its QR representation. Both are
// derived, transient values; nothing caches or persists them.
type Artifact struct {
	// URL is the retrieval link. It is a pure composition of the configured
	// base URL and the secret name, not a capability token: anyone who knows
	// the name and the base URL can reconstruct it.
	URL string
	// QRCode is a data:image/png;base64 URI whose payload decodes to URL.
	QRCode string
}

var (
	ErrMissingBaseURL = errors.New("links: base url is required")
	ErrMissingName    = errors.New("links: secret name is required")
	ErrEncoding       = errors.New("links: qr encoding failed")
)
