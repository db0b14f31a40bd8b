package receipt_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/aretw0/splitbill/internal/receipt"
	"github.com/aretw0/splitbill/pkg/ports"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecoder_RoundTrip(t *testing.T) {
	matrix, err := qrcode.NewQRCodeWriter().Encode(validCode, gozxing.BarcodeFormat_QR_CODE, 300, 300, nil)
	require.NoError(t, err)

	text, err := receipt.NewDecoder().Decode(context.Background(), encodePNG(t, matrix))
	require.NoError(t, err)
	assert.Equal(t, validCode, text)
}

func TestDecoder_NoCode(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range blank.Pix {
		blank.Pix[i] = uint8(color.White.Y >> 8)
	}

	_, err := receipt.NewDecoder().Decode(context.Background(), encodePNG(t, blank))
	assert.ErrorIs(t, err, ports.ErrCodeNotFound)
}

func TestDecoder_NotAnImage(t *testing.T) {
	_, err := receipt.NewDecoder().Decode(context.Background(), []byte("hello"))
	assert.ErrorIs(t, err, ports.ErrCodeNotFound)
}
