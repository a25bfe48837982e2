// Package qrcode builds check-in URLs and renders them as PNG images.
package qrcode

import (
	"encoding/base64"
	"fmt"
	"net/url"

	goqrcode "github.com/skip2/go-qrcode"
)

// Renderer turns redemption URLs into PNG QR codes.
type Renderer struct {
	baseURL string
	size    int
}

// NewRenderer returns a renderer for URLs under baseURL with images of size pixels.
func NewRenderer(baseURL string, size int) *Renderer {
	if size <= 0 {
		size = 256
	}
	return &Renderer{baseURL: baseURL, size: size}
}

// URL returns {baseURL}?qr_token={token}, preserving any query the base already has.
func (r *Renderer) URL(token string) (string, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid redemption base url: %w", err)
	}
	q := u.Query()
	q.Set("qr_token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// PNG encodes content as a QR code image.
func (r *Renderer) PNG(content string) ([]byte, error) {
	png, err := goqrcode.Encode(content, goqrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// Render returns the redemption URL of token and its base64 PNG.
func (r *Renderer) Render(token string) (link string, imageBase64 string, err error) {
	link, err = r.URL(token)
	if err != nil {
		return "", "", err
	}
	png, err := r.PNG(link)
	if err != nil {
		return "", "", err
	}
	return link, base64.StdEncoding.EncodeToString(png), nil
}
