// Package fetch downloads, verifies and unpacks a release archive.
//
// # Security Model
//
// An archive is never unpacked before it is verified:
//   - The expected SHA256 must be a real 64-digit hex digest. Unset or
//     placeholder digests fail closed before any network I/O.
//   - The downloaded archive's SHA256 must match exactly.
//   - When the artifact names a detached signature and a keyring is
//     configured, the OpenPGP signature must verify as well.
//
// Any failure is an *IntegrityError and leaves nothing behind.
//
// # Transports
//
// The archive URL's scheme selects the transport:
//   - https, http: HTTP client with TLS 1.2 or newer
//   - s3: AWS S3 mirror (s3://bucket/key), credentials from the default chain
//   - file or no scheme: local file
//
// Transport errors are returned wrapped and are not retried.
//
// # Usage
//
//	f := fetch.NewFetcher(fetch.Options{Keyring: "/etc/pass-cli/release.asc"})
//	payload, err := f.Fetch(ctx, artifact)
//	if err != nil {
//	    return err
//	}
//	defer payload.Close()
//	// payload.BinaryPath, payload.Docs
package fetch
