// Package imaging decodes uploaded images and encodes exported maps.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// DefaultMaxPixels bounds the decoded size of an image
const DefaultMaxPixels = 50_000_000

const mimeTGA = "image/x-tga"

// ErrUploadRejected is returned for payloads that are not a decodable image
var ErrUploadRejected = errors.New("upload rejected: not an image")

// Format is an export encoding
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// ParseFormat maps a user-supplied name onto a Format, defaulting to PNG
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", name)
	}
}

// MIMEType returns the content type of an encoded Format
func (f Format) MIMEType() string {
	return "image/" + string(f)
}

// Extension returns the file extension, without the dot
func (f Format) Extension() string {
	return string(f)
}

// Info describes a decoded image
type Info struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MIMEType string `json:"mime_type"`
}

// DetectMIMEType sniffs the content type from the leading bytes. TGA has no
// magic number and is only recognised by a successful decode.
func DetectMIMEType(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	if len(data) >= 4 && (string(data[0:4]) == "II*\x00" || string(data[0:4]) == "MM\x00*") {
		return "image/tiff"
	}
	return http.DetectContentType(data)
}

// codec decodes one format. The image package registry is not used: tga
// registers with an empty magic string and would claim every payload.
type codec struct {
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
}

var codecs = map[string]codec{
	"image/png":  {png.Decode, png.DecodeConfig},
	"image/jpeg": {jpeg.Decode, jpeg.DecodeConfig},
	"image/gif":  {gif.Decode, gif.DecodeConfig},
	"image/webp": {webp.Decode, webp.DecodeConfig},
	"image/bmp":  {bmp.Decode, bmp.DecodeConfig},
	"image/tiff": {tiff.Decode, tiff.DecodeConfig},
	mimeTGA:      {tga.Decode, tga.DecodeConfig},
}

// Decode validates and decodes a payload within DefaultMaxPixels
func Decode(data []byte) (image.Image, Info, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit validates and decodes an uploaded payload. Anything that is not
// an image, or whose header claims more than maxPixels, is rejected with
// ErrUploadRejected before pixel data is allocated.
func DecodeLimit(data []byte, maxPixels int) (image.Image, Info, error) {
	if len(data) == 0 {
		return nil, Info{}, fmt.Errorf("%w: empty payload", ErrUploadRejected)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	mimeType := DetectMIMEType(data)
	if mimeType == "application/octet-stream" {
		mimeType = mimeTGA
	}
	c, ok := codecs[mimeType]
	if !ok {
		return nil, Info{}, fmt.Errorf("%w: detected %s", ErrUploadRejected, mimeType)
	}

	cfg, err := c.decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %v", ErrUploadRejected, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, Info{}, fmt.Errorf("%w: empty image", ErrUploadRejected)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, Info{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUploadRejected, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %v", ErrUploadRejected, err)
	}

	b := img.Bounds()
	return img, Info{
		Width:    b.Dx(),
		Height:   b.Dy(),
		MIMEType: mimeType,
	}, nil
}

// Encode writes img in the requested format
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG, "":
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("failed to encode jpeg: %w", err)
		}
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
	return nil
}

// EncodeBytes is Encode into a fresh buffer
func EncodeBytes(img image.Image, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Normalize re-encodes stored map bytes as the given format, skipping the work
// when they already are.
func Normalize(data []byte, format Format) ([]byte, error) {
	if DetectMIMEType(data) == format.MIMEType() {
		return data, nil
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodeBytes(img, format)
}
