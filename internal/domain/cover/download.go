package cover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/edumarques81/coverfetch/internal/config"
	"github.com/edumarques81/coverfetch/internal/failure"
	"github.com/edumarques81/coverfetch/internal/version"
)

// MaxImageSize is the maximum image size to download (32MB)
const MaxImageSize = 32 * 1024 * 1024

// HTTPDownloader downloads artwork and writes it verbatim to disk.
type HTTPDownloader struct {
	httpClient     *http.Client
	userAgent      string
	maxSize        int64
	retryTransient bool
}

// DownloaderOption is a functional option for configuring the downloader.
type DownloaderOption func(*HTTPDownloader)

// WithDownloadHTTPClient sets a custom HTTP client.
func WithDownloadHTTPClient(client *http.Client) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.httpClient = client
	}
}

// WithMaxImageSize caps the accepted body size.
func WithMaxImageSize(n int64) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.maxSize = n
	}
}

// WithDownloadRetryTransient repeats the download once after a transient failure.
func WithDownloadRetryTransient(retry bool) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.retryTransient = retry
	}
}

// NewHTTPDownloader creates a downloader.
func NewHTTPDownloader(opts ...DownloaderOption) *HTTPDownloader {
	d := &HTTPDownloader{
		httpClient: &http.Client{
			Timeout: config.DefaultHTTPTimeout,
		},
		userAgent: version.UserAgent(),
		maxSize:   MaxImageSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Download fetches url and replaces the file at path with the body.
func (d *HTTPDownloader) Download(ctx context.Context, url, path string) (*DownloadResult, error) {
	data, contentType, err := d.fetch(ctx, url)
	if err != nil && d.retryTransient && failure.IsTemporary(err) {
		log.Warn().Err(err).Str("url", url).Msg("Image download failed, retrying once")
		data, contentType, err = d.fetch(ctx, url)
	}
	if err != nil {
		return nil, err
	}

	if err := config.WriteFile(path, data, 0644); err != nil {
		return nil, err
	}

	result := &DownloadResult{
		Path:        path,
		Size:        len(data),
		ContentType: contentType,
	}

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		result.Format = format
		result.Width = cfg.Width
		result.Height = cfg.Height
	} else {
		log.Warn().Err(err).Str("url", url).Msg("Downloaded artwork is not a recognized image")
	}

	return result, nil
}

func (d *HTTPDownloader) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: create request: %v", failure.ErrCatalogAPI, err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, "", fmt.Errorf("%w: http request: %v", failure.ErrCatalogAPI, err)
		}
		return nil, "", failure.Temporary(fmt.Errorf("%w: http request: %v", failure.ErrCatalogAPI, err))
	}
	defer resp.Body.Close()

	// Handle response status codes
	switch {
	case resp.StatusCode == http.StatusOK:
		// Success - read the image
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", fmt.Errorf("%w: image %s", failure.ErrNotFound, url)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		log.Warn().Str("url", url).Int("status", resp.StatusCode).Msg("Image host temporary error")
		return nil, "", failure.Temporary(fmt.Errorf("%w: unexpected status: %d", failure.ErrCatalogAPI, resp.StatusCode))
	default:
		return nil, "", fmt.Errorf("%w: unexpected status: %d", failure.ErrCatalogAPI, resp.StatusCode)
	}

	// Read one byte past the limit to detect oversized bodies
	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, "", failure.Temporary(fmt.Errorf("%w: read response: %v", failure.ErrCatalogAPI, err))
	}
	if int64(len(data)) > d.maxSize {
		return nil, "", fmt.Errorf("%w: image larger than %d bytes", failure.ErrCatalogAPI, d.maxSize)
	}

	log.Debug().Str("url", url).Int("size", len(data)).Msg("Image fetched")
	return data, resp.Header.Get("Content-Type"), nil
}
