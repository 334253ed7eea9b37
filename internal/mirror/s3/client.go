// Package s3 provides a transfer.Fetcher that reads the NCBI genomes tree
// from its open-data S3 mirror instead of the HTTPS front end. The bucket
// mirrors the path layout under ftp.ncbi.nlm.nih.gov, so manifest ftp_path
// values map directly onto object keys.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ncbitools/ncbifetch/internal/config"
	"github.com/ncbitools/ncbifetch/internal/httpx"
	"github.com/ncbitools/ncbifetch/internal/logging"
	"github.com/ncbitools/ncbifetch/internal/progress"
	"github.com/ncbitools/ncbifetch/internal/transfer"
)

// Mirror implements transfer.Fetcher against the open-data bucket.
type Mirror struct {
	client *s3.Client
	bucket string
	retry  httpx.RetryConfig
	log    *logging.Logger
}

var _ transfer.Fetcher = (*Mirror)(nil)

// NewMirror creates a Mirror with anonymous credentials. The open-data
// bucket does not require an AWS account.
func NewMirror(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Mirror, error) {
	httpClient, err := httpx.NewTransferClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Mirror.Region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
		awsconfig.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3 mirror client: %w", err)
	}

	return &Mirror{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Mirror.Bucket,
		retry:  httpx.DefaultRetryConfig(),
		log:    log,
	}, nil
}

// keyFor maps an ftp.ncbi.nlm.nih.gov URL onto the mirror's object key:
// the URL path without its leading slash.
func keyFor(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("bad download URL %q: %w", rawURL, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("download URL %q has no path", rawURL)
	}
	return key, nil
}

// Get retrieves a small object into memory.
func (m *Mirror) Get(ctx context.Context, rawURL string) ([]byte, error) {
	key, err := keyFor(rawURL)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = httpx.ExecuteWithRetry(ctx, m.retry, func() error {
		out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(m.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", m.bucket, key, err)
	}
	return data, nil
}

// FetchFile downloads an object to dest with the same partial-file and
// timestamp-skip semantics as the HTTPS downloader.
func (m *Mirror) FetchFile(ctx context.Context, rawURL, dest string, opts transfer.Options) (transfer.Result, error) {
	start := time.Now()

	key, err := keyFor(rawURL)
	if err != nil {
		return transfer.Result{Status: transfer.StatusFailed, Duration: time.Since(start)}, err
	}

	if opts.IfNewer {
		skip, err := m.upToDate(ctx, key, dest)
		if err != nil {
			m.log.Debugf("freshness probe failed for %s, downloading: %v", key, err)
		} else if skip {
			return transfer.Result{Status: transfer.StatusSkipped, Path: dest, Duration: time.Since(start)}, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return transfer.Result{Status: transfer.StatusFailed, Duration: time.Since(start)},
			fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	var bytes int64
	err = httpx.ExecuteWithRetry(ctx, m.retry, func() error {
		out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(m.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		var body io.Reader = out.Body
		if opts.Reporter != nil {
			total := int64(-1)
			if out.ContentLength != nil {
				total = *out.ContentLength
			}
			opts.Reporter.Start(total, filepath.Base(dest))
			body = progress.NewProgressReader(out.Body, opts.Reporter)
			defer opts.Reporter.Finish()
		}

		partial := fmt.Sprintf("%s.partial-%s", dest, uuid.NewString()[:8])
		f, err := os.Create(partial)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", partial, err)
		}

		bytes, err = io.Copy(f, body)
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(partial)
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}

		if out.LastModified != nil {
			_ = os.Chtimes(partial, *out.LastModified, *out.LastModified)
		}

		if err := os.Rename(partial, dest); err != nil {
			os.Remove(partial)
			return fmt.Errorf("failed to move %s into place: %w", dest, err)
		}
		return nil
	})
	if err != nil {
		return transfer.Result{Status: transfer.StatusFailed, Duration: time.Since(start)},
			fmt.Errorf("s3://%s/%s: %w", m.bucket, key, err)
	}

	return transfer.Result{
		Status:   transfer.StatusDownloaded,
		Path:     dest,
		Bytes:    bytes,
		Duration: time.Since(start),
	}, nil
}

// upToDate compares the local file against the object's size and
// modification time.
func (m *Mirror) upToDate(ctx context.Context, key, dest string) (bool, error) {
	info, err := os.Stat(dest)
	if err != nil {
		return false, nil // no local copy
	}

	head, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, err
	}

	if head.ContentLength != nil && *head.ContentLength != info.Size() {
		return false, nil
	}
	if head.LastModified == nil {
		return false, nil
	}
	return !info.ModTime().Before(*head.LastModified), nil
}
