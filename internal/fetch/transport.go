package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "passcli-installer/1.0"
	// maxRedirects bounds redirect chains (GitHub release assets redirect once)
	maxRedirects = 10
)

// Transport opens a remote object for reading. size is -1 when unknown.
type Transport interface {
	Open(ctx context.Context, u *url.URL) (body io.ReadCloser, size int64, err error)
}

// HTTPTransport fetches http and https URLs.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransport creates an HTTP transport that refuses TLS below 1.2.
func NewHTTPTransport() *HTTPTransport {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	return &HTTPTransport{
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: base,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: DefaultUserAgent,
	}
}

// Open issues a GET request and returns the response body.
func (t *HTTPTransport) Open(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, resp.ContentLength, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, u.Redacted())
	default:
		resp.Body.Close()
		return nil, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// FileTransport reads file:// URLs and bare paths.
type FileTransport struct{}

// Open opens the local file named by u.
func (FileTransport) Open(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	path := u.Path
	if path == "" {
		path = u.Opaque
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, 0, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, fmt.Errorf("open file: %s is a directory", path)
	}

	return f, info.Size(), nil
}

// S3GetObjectAPI is the part of the S3 client the transport needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures the S3 mirror transport. Empty fields fall back to
// the AWS default configuration chain.
type S3Options struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// S3Transport reads s3://bucket/key URLs.
type S3Transport struct {
	opts S3Options

	once   sync.Once
	client S3GetObjectAPI
	err    error
}

// NewS3Transport creates an S3 transport. The AWS client is built on first
// use, so hosts that never see an s3:// URL need no AWS configuration.
func NewS3Transport(opts S3Options) *S3Transport {
	return &S3Transport{opts: opts}
}

// NewS3TransportWithClient creates an S3 transport over an existing client.
func NewS3TransportWithClient(client S3GetObjectAPI) *S3Transport {
	t := &S3Transport{client: client}
	t.once.Do(func() {})
	return t
}

func (t *S3Transport) init(ctx context.Context) (S3GetObjectAPI, error) {
	t.once.Do(func() {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if t.opts.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(t.opts.Region))
		}
		if t.opts.Endpoint != "" {
			loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(&endpointResolver{URL: t.opts.Endpoint}))
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			t.err = fmt.Errorf("load aws config: %w", err)
			return
		}

		t.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = t.opts.UsePathStyle
		})
	})
	return t.client, t.err
}

// Open fetches the object named by u.
func (t *S3Transport) Open(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, 0, fmt.Errorf("invalid s3 url %q: want s3://bucket/key", u.String())
	}

	client, err := t.init(ctx)
	if err != nil {
		return nil, 0, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, u.String())
		}
		return nil, 0, fmt.Errorf("get object: %w", err)
	}

	return out.Body, -1, nil
}

// endpointResolver pins every AWS service to a custom endpoint (MinIO and
// other S3-compatible mirrors).
type endpointResolver struct {
	URL string
}

func (r *endpointResolver) ResolveEndpoint(service, region string, options ...interface{}) (aws.Endpoint, error) {
	return aws.Endpoint{
		URL:               r.URL,
		HostnameImmutable: true,
		SigningRegion:     region,
	}, nil
}
