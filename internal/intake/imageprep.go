package intake

import (
	"bytes"
	"fmt"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/disintegration/imaging"
)

// DefaultMaxImageDimension bounds the longer side of a normalised photo.
const DefaultMaxImageDimension = 1600

const jpegQuality = 85

// NormalizeImage decodes a photo, applies its EXIF orientation, fits it within maxDim on
// both sides and re-encodes it as JPEG.
func NormalizeImage(data []byte, maxDim int) (domain.ReceiptImage, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxImageDimension
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return domain.ReceiptImage{}, apperrors.Validationf("the photo could not be read: %v", err)
	}

	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return domain.ReceiptImage{}, fmt.Errorf("encode receipt image: %w", err)
	}
	return domain.ReceiptImage{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}
