package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
)

var (
	pngSignature  = []byte("\x89PNG\r\n\x1a\n")
	jpegSignature = []byte{0xff, 0xd8, 0xff}
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

// DetectFormat sniffs the encoded format from the leading bytes of data.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - ImageFormat: The detected format, FormatUnknown if none matched.
func DetectFormat(data []byte) ImageFormat {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return FormatPNG
	case bytes.HasPrefix(data, jpegSignature):
		return FormatJPEG
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// DecodeImage decodes PNG, JPEG or WebP bytes into a Go-native image.Image.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - image.Image: The decoded image.
//   - ImageFormat: The format that was decoded.
//   - error: ErrInvalidInput for empty data, ErrEncodingFailure if decoding fails.
func DecodeImage(data []byte) (image.Image, ImageFormat, error) {
	if len(data) == 0 {
		return nil, FormatUnknown, errors.Wrap(ErrInvalidInput, "empty image data")
	}

	reader := bytes.NewReader(data)
	format := DetectFormat(data)

	var (
		img image.Image
		err error
	)
	switch format {
	case FormatPNG:
		img, err = png.Decode(reader)
	case FormatJPEG:
		img, err = jpeg.Decode(reader)
	case FormatWebP:
		img, err = webp.Decode(reader)
	default:
		return nil, FormatUnknown, errors.Wrap(ErrEncodingFailure, "unrecognised image format")
	}
	if err != nil {
		return nil, format, errors.Wrapf(ErrEncodingFailure, "failed to decode %s: %v", format, err)
	}

	return img, format, nil
}

// Decode decodes encoded bytes into an Image.
func Decode(data []byte) (*Image, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// DecodeConfig reads the format and dimensions of encoded bytes without
// decoding the pixels.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - Encoded: The record with Data set to data.
//   - error: ErrEncodingFailure if the header cannot be parsed.
func DecodeConfig(data []byte) (Encoded, error) {
	if len(data) == 0 {
		return Encoded{}, errors.Wrap(ErrInvalidInput, "empty image data")
	}

	reader := bytes.NewReader(data)
	format := DetectFormat(data)

	var (
		cfg image.Config
		err error
	)
	switch format {
	case FormatPNG:
		cfg, err = png.DecodeConfig(reader)
	case FormatJPEG:
		cfg, err = jpeg.DecodeConfig(reader)
	case FormatWebP:
		cfg, err = webp.DecodeConfig(reader)
	default:
		return Encoded{}, errors.Wrap(ErrEncodingFailure, "unrecognised image format")
	}
	if err != nil {
		return Encoded{}, errors.Wrapf(ErrEncodingFailure, "failed to read %s header: %v", format, err)
	}

	return Encoded{Format: format, Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// EncodePNG encodes the image as a PNG using the best compression level.
//
// Arguments:
//   - img: The image to encode.
//
// Returns:
//   - []byte: The PNG bytes, owned by the caller.
//   - error: ErrInvalidInput for an invalid image, ErrEncodingFailure if encoding fails.
func EncodePNG(img *Image) ([]byte, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	if err := pngEncoder.Encode(buf, img.goImage()); err != nil {
		return nil, errors.Wrapf(ErrEncodingFailure, "failed to encode png: %v", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// ToPNG re-encodes PNG, JPEG or WebP bytes as PNG. PNG input is returned as is.
func ToPNG(data []byte) ([]byte, error) {
	if DetectFormat(data) == FormatPNG {
		return data, nil
	}
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// goImage returns an image.Image view suitable for the standard encoders.
// RGB images are expanded so the PNG encoder writes 8-bit truecolor.
func (img *Image) goImage() image.Image {
	if img.Format == PixelFormatRGB {
		rgba := image.NewRGBA(img.Bounds())
		for s, d := 0, 0; s < len(img.Pix); s, d = s+3, d+4 {
			rgba.Pix[d] = img.Pix[s]
			rgba.Pix[d+1] = img.Pix[s+1]
			rgba.Pix[d+2] = img.Pix[s+2]
			rgba.Pix[d+3] = 0xff
		}
		return rgba
	}
	return img.NRGBA()
}
