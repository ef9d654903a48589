package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/HodayaSing/ai-pos/internal/common"
	"github.com/HodayaSing/ai-pos/internal/obs"
)

const (
	DefaultMaxBytes    = 5 << 20
	DefaultMaxWidth    = 1280
	DefaultJPEGQuality = 70
	DefaultMaxPixels   = 40_000_000
)

var (
	// ErrUnsupportedType rejects anything that does not sniff as an allowed image.
	ErrUnsupportedType = errors.New("media: unsupported image type")
	ErrTooLarge        = errors.New("media: image too large")
	ErrTooManyPixels   = errors.New("media: image dimensions too large")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is a validated, possibly downscaled, image payload.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Uploader validates images and hands them to a Store. MaxPixels bounds
// width*height so a small compressed file cannot decode into a huge bitmap.
type Uploader struct {
	Store     Store
	MaxBytes  int64
	MaxWidth  int
	MaxPixels int64
	Quality   int
	Now       func() time.Time
	Rand      func() int64
}

// NewUploader applies defaults to zero values.
func NewUploader(store Store, maxBytes int64, maxWidth, quality int) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Uploader{
		Store:     store,
		MaxBytes:  maxBytes,
		MaxWidth:  maxWidth,
		MaxPixels: DefaultMaxPixels,
		Quality:   quality,
		Now:       time.Now,
		Rand:      func() int64 { return rand.Int64N(1_000_000_000) },
	}
}

// SaveUpload stores a multipart image and returns its public URL.
func (u *Uploader) SaveUpload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	url, err := u.saveUpload(ctx, fh)
	obs.ObserveUpload("upload", err)
	return url, err
}

func (u *Uploader) saveUpload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > u.MaxBytes {
		return "", u.tooLarge()
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := u.readLimited(f)
	if err != nil {
		return "", err
	}
	img, err := u.Prepare(data)
	if err != nil {
		return "", err
	}
	return u.put(ctx, "product", img)
}

// SaveGenerated stores an AI generated image. Generated files are always named .png.
func (u *Uploader) SaveGenerated(ctx context.Context, data []byte) (string, error) {
	url, err := u.saveGenerated(ctx, data)
	obs.ObserveUpload("generated", err)
	return url, err
}

func (u *Uploader) saveGenerated(ctx context.Context, data []byte) (string, error) {
	img, err := u.Prepare(data)
	if err != nil {
		return "", err
	}
	img.Ext = ".png"
	return u.put(ctx, "ai-dish", img)
}

// Prepare sniffs the payload and downscales JPEG and PNG images wider than MaxWidth.
func (u *Uploader) Prepare(data []byte) (Image, error) {
	if int64(len(data)) > u.MaxBytes {
		return Image{}, u.tooLarge()
	}
	mt := mimetype.Detect(data)
	ext, ok := "", false
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok = allowedTypes[m.String()]; ok {
			mt = m
			break
		}
	}
	if !ok {
		return Image{}, common.BadRequest("image",
			"Invalid file type. Only JPEG, PNG, GIF, and WebP images are allowed.",
			fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String()))
	}
	img := Image{Data: data, ContentType: mt.String(), Ext: ext}
	if err := u.checkDimensions(data); err != nil {
		return Image{}, err
	}
	if img.ContentType != "image/jpeg" && img.ContentType != "image/png" {
		return img, nil
	}
	resized, err := u.downscale(img)
	if err != nil {
		return Image{}, common.BadRequest("image", "Image could not be processed", err)
	}
	return resized, nil
}

// checkDimensions reads only the image header. Formats without a registered
// decoder (WebP) are stored as-is and never decoded, so they pass.
func (u *Uploader) checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil
	}
	if err != nil {
		return common.BadRequest("image", "Image could not be processed", fmt.Errorf("decode image header: %w", err))
	}
	maxPixels := u.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return common.BadRequest("image",
			fmt.Sprintf("Image dimensions too large. Maximum is %d megapixels.", maxPixels/1_000_000),
			fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height))
	}
	return nil
}

func (u *Uploader) downscale(img Image) (Image, error) {
	src, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}
	if src.Bounds().Dx() <= u.MaxWidth {
		return img, nil
	}
	dst := imaging.Resize(src, u.MaxWidth, 0, imaging.Lanczos)
	format := imaging.PNG
	if img.ContentType == "image/jpeg" {
		format = imaging.JPEG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, format, imaging.JPEGQuality(u.Quality)); err != nil {
		return Image{}, fmt.Errorf("encode image: %w", err)
	}
	img.Data = buf.Bytes()
	return img, nil
}

func (u *Uploader) put(ctx context.Context, prefix string, img Image) (string, error) {
	if u.Store == nil {
		return "", errors.New("media: store not configured")
	}
	key := fmt.Sprintf("%s-%d-%d%s", prefix, u.Now().UnixMilli(), u.Rand(), img.Ext)
	url, err := u.Store.Put(ctx, key, img.ContentType, bytes.NewReader(img.Data), int64(len(img.Data)))
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

func (u *Uploader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.MaxBytes {
		return nil, u.tooLarge()
	}
	return data, nil
}

func (u *Uploader) tooLarge() error {
	return common.NewAppError("FILE_TOO_LARGE",
		fmt.Sprintf("File too large. Maximum size is %dMB.", u.MaxBytes>>20),
		http.StatusRequestEntityTooLarge, ErrTooLarge)
}
