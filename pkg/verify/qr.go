// Package verify implements the QR membership verification flow: decode the
// posted QR image, scrape the linked contact card, check the email against
// the SmallStreet membership store, assign the matching role and record the
// result.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/smallstreet/megabot/pkg/utils"
	"go.uber.org/zap"
)

// Decoder extracts the text payload of a QR code image reachable at a URL.
type Decoder interface {
	Decode(ctx context.Context, imageURL string) (string, error)
}

// QRDecoder is the gozxing-backed Decoder.
type QRDecoder struct {
	http   *http.Client
	logger *zap.Logger
}

func NewQRDecoder(logger *zap.Logger) *QRDecoder {
	return &QRDecoder{
		http:   &http.Client{Timeout: 20 * time.Second},
		logger: logger,
	}
}

// Decode fetches the image and reads its QR code, retrying once in
// try-harder mode for low-quality uploads.
func (d *QRDecoder) Decode(ctx context.Context, imageURL string) (string, error) {
	img, err := d.fetchImage(ctx, imageURL)
	if err != nil {
		return "", err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("prepare image for decoding: %w", err)
	}

	reader := qrcode.NewQRCodeReader()

	result, err := reader.Decode(bmp, nil)
	if err == nil {
		return result.GetText(), nil
	}

	d.logger.Debug("QR decode failed, retrying in try-harder mode", zap.Error(err))
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err = reader.Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableQR, err)
	}
	return result.GetText(), nil
}

func (d *QRDecoder) fetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch attachment: %w", err)
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch attachment: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableQR, err)
	}
	return img, nil
}
