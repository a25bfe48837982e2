package qrcode

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRendererURL(t *testing.T) {
	r := NewRenderer("https://school.example/checkin", 128)
	link, err := r.URL("AbC123")
	require.NoError(t, err)
	assert.Equal(t, "https://school.example/checkin?qr_token=AbC123", link)

	withQuery := NewRenderer("https://school.example/checkin?lang=es", 128)
	link, err = withQuery.URL("tok")
	require.NoError(t, err)
	assert.Equal(t, "https://school.example/checkin?lang=es&qr_token=tok", link)
}

func TestRendererRender(t *testing.T) {
	r := NewRenderer("http://localhost:8080/api/v1/qr/redeem", 0)
	link, img, err := r.Render("XyZ987")
	require.NoError(t, err)
	assert.Contains(t, link, "qr_token=XyZ987")

	raw, err := base64.StdEncoding.DecodeString(img)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, pngMagic))
}
