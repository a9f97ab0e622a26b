package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/catalog"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
)

// DocFiles are the optional documentation files shipped in release archives.
var DocFiles = []string{"README.md", "LICENSE"}

// Options configures a Fetcher.
type Options struct {
	// TempRoot is the parent of per-fetch working directories. Empty uses
	// the system temp dir.
	TempRoot string
	// Keyring is an OpenPGP public keyring. Empty disables signature checks.
	Keyring string
	// Progress receives a download progress bar when non-nil.
	Progress io.Writer
	// S3 configures the s3:// transport.
	S3 S3Options
}

// Fetcher orchestrates download, verification and extraction of one artifact.
type Fetcher struct {
	tempRoot   string
	downloader *Downloader
	verifier   *Verifier
	extractor  *Extractor
}

// NewFetcher creates a fetcher.
func NewFetcher(opts Options) *Fetcher {
	return &Fetcher{
		tempRoot:   opts.TempRoot,
		downloader: NewDownloader(opts.Progress, opts.S3),
		verifier:   NewVerifier(opts.Keyring),
		extractor:  NewExtractor(),
	}
}

// Fetch downloads art into a fresh working directory, verifies it and
// unpacks it. On error nothing is left on disk; on success the caller owns
// the payload and must Close it.
func (f *Fetcher) Fetch(ctx context.Context, art catalog.Artifact) (_ *Payload, retErr error) {
	ctx = logger.WithName(ctx, "fetch")

	if err := ValidateChecksum(art.SHA256); err != nil {
		return nil, &IntegrityError{
			Artifact: art,
			Method:   VerificationSHA256,
			Expected: art.SHA256,
			Err:      err,
		}
	}

	if f.tempRoot != "" {
		if err := os.MkdirAll(f.tempRoot, 0o700); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(f.tempRoot, art.Name+"-")
	if err != nil {
		return nil, fmt.Errorf("create working dir: %w", err)
	}

	payload := &Payload{Artifact: art, Dir: dir}
	defer func() {
		if retErr != nil {
			if err := payload.Close(); err != nil {
				logger.WarnKV(ctx, "failed to clean up working dir", "dir", dir, "error", err)
			}
		}
	}()

	fileName := art.FileName()
	if fileName == "" {
		fileName = catalog.ArchiveName(art.Name, art.Version, art.Key())
	}
	payload.ArchivePath = filepath.Join(dir, fileName)

	logger.InfoKV(ctx, "downloading artifact", "platform", art.Key().String(), "url", art.URL)
	if err := f.downloader.DownloadToFile(ctx, art.URL, payload.ArchivePath); err != nil {
		return nil, fmt.Errorf("download %s: %w", art.URL, err)
	}

	actual, err := f.verifier.VerifySHA256(payload.ArchivePath, art.SHA256)
	if err != nil {
		return nil, &IntegrityError{
			Artifact: art,
			Method:   VerificationSHA256,
			Expected: art.SHA256,
			Actual:   actual,
			Err:      err,
		}
	}
	payload.SHA256 = actual
	payload.Verified = VerificationSHA256

	if err := f.verifySignature(ctx, art, payload); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "artifact verified", "method", payload.Verified.String(), "sha256", actual)

	contentsDir := filepath.Join(dir, "contents")
	if err := f.extractor.ExtractTarGz(payload.ArchivePath, contentsDir); err != nil {
		return nil, fmt.Errorf("extract %s: %w", fileName, err)
	}

	binPath, err := FindFile(contentsDir, art.Name)
	if err != nil {
		return nil, err
	}
	if binPath == "" {
		return nil, fmt.Errorf("binary %s not found in %s", art.Name, fileName)
	}
	payload.BinaryPath = binPath

	for _, doc := range DocFiles {
		p, err := FindFile(contentsDir, doc)
		if err != nil {
			return nil, err
		}
		if p != "" {
			payload.Docs = append(payload.Docs, p)
		}
	}

	logger.DebugKV(ctx, "artifact unpacked", "binary", binPath, "docs", len(payload.Docs))
	return payload, nil
}

func (f *Fetcher) verifySignature(ctx context.Context, art catalog.Artifact, payload *Payload) error {
	switch {
	case art.SignatureURL == "":
		return nil
	case !f.verifier.HasKeyring():
		logger.WarnKV(ctx, "artifact is signed but no keyring is configured; relying on sha256",
			"signature", art.SignatureURL)
		return nil
	}

	sigPath := payload.ArchivePath + ".sig"
	if err := f.downloader.DownloadToFile(ctx, art.SignatureURL, sigPath); err != nil {
		return fmt.Errorf("download signature %s: %w", art.SignatureURL, err)
	}

	if err := f.verifier.VerifySignature(payload.ArchivePath, sigPath); err != nil {
		return &IntegrityError{
			Artifact: art,
			Method:   VerificationGPG,
			Err:      err,
		}
	}

	payload.Verified = VerificationGPG
	return nil
}
