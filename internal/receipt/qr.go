package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/aretw0/splitbill/pkg/ports"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder reads QR codes from images. It implements ports.CodeDecoder.
type Decoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewDecoder creates a Decoder that tries hard on noisy photos.
func NewDecoder() *Decoder {
	return &Decoder{hints: map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}}
}

var _ ports.CodeDecoder = (*Decoder)(nil)

// Decode returns the text of the first QR code in a JPEG, PNG or GIF image.
func (d *Decoder) Decode(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: unreadable image: %v", ports.ErrCodeNotFound, err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ports.ErrCodeNotFound, err)
	}

	res, err := qrcode.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		var re gozxing.ReaderException
		if errors.As(err, &re) {
			return "", fmt.Errorf("%w: %v", ports.ErrCodeNotFound, err)
		}
		return "", fmt.Errorf("decoding qr code: %w", err)
	}
	return res.GetText(), nil
}
