package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
)

// Downloader copies remote objects to local files through a scheme-keyed
// set of transports.
type Downloader struct {
	transports map[string]Transport
	progress   io.Writer
}

// NewDownloader creates a downloader with the http, https, file and s3
// transports. A non-nil progress writer receives a progress bar.
func NewDownloader(progress io.Writer, s3opts S3Options) *Downloader {
	httpTransport := NewHTTPTransport()
	return &Downloader{
		transports: map[string]Transport{
			"http":  httpTransport,
			"https": httpTransport,
			"file":  FileTransport{},
			"":      FileTransport{},
			"s3":    NewS3Transport(s3opts),
		},
		progress: progress,
	}
}

// SetTransport registers t for scheme, replacing any existing transport.
func (d *Downloader) SetTransport(scheme string, t Transport) {
	d.transports[strings.ToLower(scheme)] = t
}

// DownloadToFile downloads rawURL to destPath via a temp file and rename.
func (d *Downloader) DownloadToFile(ctx context.Context, rawURL, destPath string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	transport, ok := d.transports[strings.ToLower(u.Scheme)]
	if !ok {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	logger.DebugKV(ctx, "downloading", "url", u.Redacted(), "dest", destPath)
	start := time.Now()

	body, size, err := transport.Open(ctx, u)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	var dst io.Writer = tmpFile
	var bar *progressbar.ProgressBar
	if d.progress != nil {
		bar = newProgressBar(d.progress, size, filepath.Base(destPath))
		dst = io.MultiWriter(tmpFile, bar)
	}

	written, err := io.Copy(dst, contextReader{ctx: ctx, r: body})
	if err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("short download: got %d of %d bytes", written, size)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	logger.DebugKV(ctx, "downloaded", "bytes", written, "duration", time.Since(start))
	return nil
}

func newProgressBar(w io.Writer, size int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

// ProgressWriter picks the progress destination for a mode ("auto",
// "always", "never"). Auto shows progress only when w is a terminal.
func ProgressWriter(mode string, w *os.File) io.Writer {
	if w == nil {
		return nil
	}
	switch mode {
	case "always":
		return w
	case "never":
		return nil
	default:
		if term.IsTerminal(int(w.Fd())) {
			return w
		}
		return nil
	}
}

// contextReader stops a copy as soon as ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
