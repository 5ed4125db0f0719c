package links

import (
	"encoding/base64"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURIPrefix = "data:image/png;base64,"

// Builder composes retrieval artifacts from a fixed base URL. Building is
// deterministic: the same name always yields byte-identical output modulo
// PNG encoding, and the link itself is a pure string composition.
type Builder struct {
	baseURL  string
	size     int
	recovery qrcode.RecoveryLevel
}

// Option configures the builder.
type Option func(*Builder)

// WithQRSize overrides the QR image edge length in pixels (defaults to 256).
func WithQRSize(px int) Option {
	return func(b *Builder) {
		if px > 0 {
			b.size = px
		}
	}
}

// WithRecoveryLevel overrides the QR error-correction level.
func WithRecoveryLevel(level qrcode.RecoveryLevel) Option {
	return func(b *Builder) {
		b.recovery = level
	}
}

// NewBuilder creates a builder. A missing base URL is a construction error,
// not a malformed link at send time.
func NewBuilder(baseURL string, opts ...Option) (*Builder, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	builder := &Builder{
		baseURL:  baseURL,
		size:     256,
		recovery: qrcode.Medium,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(builder)
		}
	}
	return builder, nil
}

// Build composes the retrieval artifact for a secret name. The QR payload
// encodes the exact link string with no additional data.
func (b *Builder) Build(name string) (Artifact, error) {
	if name == "" {
		return Artifact{}, ErrMissingName
	}
	link := b.baseURL + "?secret=" + name
	png, err := qrcode.Encode(link, b.recovery, b.size)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return Artifact{
		URL:    link,
		QRCode: dataURIPrefix + base64.StdEncoding.EncodeToString(png),
	}, nil
}
