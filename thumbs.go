package leaknews

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/eringen/leaknews/views"
)

const (
	thumbQuality  = 80
	maxSourceSize = 10 << 20 // 10MB
	thumbCacheTTL = time.Hour

	// maxSourcePixels bounds the decoded size of a source image.
	maxSourcePixels = 40_000_000
	maxRedirects    = 5
)

var (
	errSourceNotAllowed = errors.New("image source not allowed")
	errImageTooLarge    = errors.New("image dimensions too large")
)

// thumbWidths are the widths the proxy renders; requests snap up to the
// nearest one so arbitrary widths cannot flood the cache.
var thumbWidths = []int{160, 320, 640, 960, 1280}

func snapWidth(w int) int {
	for _, allowed := range thumbWidths {
		if w <= allowed {
			return allowed
		}
	}
	return thumbWidths[len(thumbWidths)-1]
}

type thumbFormat string

const (
	formatJPEG thumbFormat = "jpeg"
	formatWebP thumbFormat = "webp"
)

func (f thumbFormat) contentType() string {
	return "image/" + string(f)
}

// negotiateFormat picks WebP when the client accepts it.
func negotiateFormat(accept string) thumbFormat {
	if strings.Contains(accept, "image/webp") {
		return formatWebP
	}
	return formatJPEG
}

// processThumbnail decodes an image from src, shrinks it to at most width
// pixels wide, and encodes it in the requested format.
func processThumbnail(src io.Reader, width int, format thumbFormat) ([]byte, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxSourcePixels/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > width {
		newH := h * width / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, width, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	switch format {
	case formatWebP:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: thumbQuality}); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbQuality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func (a *App) handleThumb(c echo.Context) error {
	if !a.Config.Thumbnails {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	src, err := url.Parse(c.QueryParam("src"))
	if err != nil || !a.thumbSourceAllowed(src) {
		thumbnailsTotal.WithLabelValues("rejected").Inc()
		return c.String(http.StatusBadRequest, errSourceNotAllowed.Error())
	}

	width := views.DefaultThumbWidth
	if w, err := strconv.Atoi(c.QueryParam("w")); err == nil && w > 0 {
		width = w
	}
	width = snapWidth(width)
	format := negotiateFormat(c.Request().Header.Get(echo.HeaderAccept))
	c.Response().Header().Add(echo.HeaderVary, echo.HeaderAccept)

	ctx := c.Request().Context()
	key := fmt.Sprintf("thumb:%s:%d:%s", format, width, src.String())
	if data, ok, err := a.cache.Get(ctx, key); err == nil && ok {
		thumbnailsTotal.WithLabelValues("cached").Inc()
		return c.Blob(http.StatusOK, format.contentType(), data)
	}

	data, err := a.fetchThumbnail(ctx, src.String(), width, format)
	if err != nil {
		thumbnailsTotal.WithLabelValues("error").Inc()
		a.logger.Warn().Err(err).Str("src", src.String()).Msg("Thumbnail failed")
		return c.NoContent(http.StatusBadGateway)
	}
	if err := a.cache.Set(ctx, key, data, thumbCacheTTL); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to cache thumbnail")
	}
	thumbnailsTotal.WithLabelValues("served").Inc()
	return c.Blob(http.StatusOK, format.contentType(), data)
}

func (a *App) fetchThumbnail(ctx context.Context, src string, width int, format thumbFormat) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.Config.UserAgent)
	resp, err := a.thumbClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image source returned %s", resp.Status)
	}
	return processThumbnail(io.LimitReader(resp.Body, maxSourceSize), width, format)
}

// thumbSourceAllowed reports whether u is an http(s) URL on an allowed host.
func (a *App) thumbSourceAllowed(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return views.ImageHostAllowed(a.Config.ThumbnailHosts, u.Hostname())
}

// newThumbClient derives the image fetch client from the app's HTTP client.
// Every redirect hop is checked against the host allowlist.
func (a *App) newThumbClient() *http.Client {
	c := *a.httpClient
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if !a.thumbSourceAllowed(req.URL) {
			return fmt.Errorf("%w: redirect to %s", errSourceNotAllowed, req.URL.Host)
		}
		return nil
	}
	return &c
}
