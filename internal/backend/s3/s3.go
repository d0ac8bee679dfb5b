// Package s3 restores objects archived in the GLACIER and DEEP_ARCHIVE storage
// classes of S3 compatible services.
package s3

import (
	"context"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/location"
	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
)

// Backend talks to an S3 bucket.
type Backend struct {
	client *minio.Client
	cfg    Config
}

// make sure that *Backend implements backend.Backend
var _ backend.Backend = &Backend{}

// NewFactory returns the factory registered for the "s3" scheme.
func NewFactory() location.Factory {
	return location.NewHTTPBackendFactory("s3", ParseConfig, Open)
}

// archived storage classes need a restore before objects can be read
var archivedClasses = map[string]bool{
	"GLACIER":      true,
	"DEEP_ARCHIVE": true,
}

func isArchived(storageClass string) bool {
	return archivedClasses[strings.ToUpper(storageClass)]
}

// Open connects to the bucket described by cfg.
func Open(_ context.Context, cfg Config, rt http.RoundTripper) (*Backend, error) {
	debug.Log("open, config %#v", cfg)

	if cfg.MaxRetries > 0 {
		minio.MaxRetry = int(cfg.MaxRetries)
	}

	providers := []credentials.Provider{
		&credentials.Static{
			Value: credentials.Value{
				AccessKeyID:     cfg.KeyID,
				SecretAccessKey: cfg.Secret.Unwrap(),
			},
		},
	}

	// an explicitly selected profile wins over the environment
	if cfg.Profile != "" {
		providers = append(providers, &credentials.FileAWSCredentials{Profile: cfg.Profile})
	}

	// Chains all credential types, in the following order:
	//  - Static credentials provided by user
	//  - Selected profile of the AWS creds file
	//  - AWS env vars (i.e. AWS_ACCESS_KEY_ID)
	//  - AWS creds file (i.e. AWS_SHARED_CREDENTIALS_FILE or ~/.aws/credentials)
	//  - IAM profile based credentials. (performs an HTTP
	//    call to a pre-defined endpoint, only valid inside
	//    configured ec2 instances)
	providers = append(providers,
		&credentials.EnvAWS{},
		&credentials.FileAWSCredentials{},
		&credentials.IAM{
			Client: &http.Client{
				Transport: http.DefaultTransport,
			},
		},
	)
	creds := credentials.NewChainCredentials(providers)

	c, err := creds.Get()
	if err != nil {
		return nil, errors.Wrap(err, "creds.Get")
	}

	if c.SignerType == credentials.SignatureAnonymous {
		debug.Log("using anonymous access for %#v", cfg.Endpoint)
	}

	opts := &minio.Options{
		Creds:     creds,
		Secure:    !cfg.UseHTTP,
		Region:    cfg.Region,
		Transport: rt,
	}

	switch strings.ToLower(cfg.BucketLookup) {
	case "", "auto":
		opts.BucketLookup = minio.BucketLookupAuto
	case "dns":
		opts.BucketLookup = minio.BucketLookupDNS
	case "path":
		opts.BucketLookup = minio.BucketLookupPath
	default:
		return nil, errors.Fatalf(`bad bucket-lookup style %q must be "auto", "path" or "dns"`, cfg.BucketLookup)
	}

	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, errors.Wrap(err, "minio.New")
	}

	return &Backend{client: client, cfg: cfg}, nil
}

// Location returns this backend's location (the bucket name).
func (be *Backend) Location() string {
	if be.cfg.Prefix != "" {
		return "s3:" + be.cfg.Bucket + "/" + be.cfg.Prefix
	}
	return "s3:" + be.cfg.Bucket
}

// List reports all objects in an archived storage class.
func (be *Backend) List(ctx context.Context, fn func(backend.Object) error) error {
	// make sure to cancel the listing when fn returns early, otherwise
	// ListObjects keeps its goroutine blocked on the result channel
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	debug.Log("listing %v with prefix %q, using ListObjectsV1(%v)", be.cfg.Bucket, be.cfg.Prefix, be.cfg.ListObjectsV1)

	listresp := be.client.ListObjects(ctx, be.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    be.cfg.Prefix,
		Recursive: true,
		UseV1:     be.cfg.ListObjectsV1,
	})

	for obj := range listresp {
		if obj.Err != nil {
			return errors.Wrap(obj.Err, "ListObjects")
		}

		if !isArchived(obj.StorageClass) {
			continue
		}

		err := fn(backend.Object{
			Key:          obj.Key,
			Size:         obj.Size,
			StorageClass: obj.StorageClass,
		})
		if err != nil {
			return err
		}
	}

	return ctx.Err()
}

func tierType(t backend.Tier) minio.TierType {
	switch t {
	case backend.TierBulk:
		return minio.TierBulk
	case backend.TierExpedited:
		return minio.TierExpedited
	default:
		return minio.TierStandard
	}
}

// Restore requests a temporary copy of key for req.Days days.
func (be *Backend) Restore(ctx context.Context, key string, req backend.RestoreRequest) error {
	var rr minio.RestoreRequest
	rr.SetDays(req.Days)
	rr.SetGlacierJobParameters(minio.GlacierJobParameters{Tier: tierType(req.Tier)})

	err := be.client.RestoreObject(ctx, be.cfg.Bucket, key, "", rr)
	if hasStatus(err, http.StatusAccepted) {
		// a new restore was started, the reply carries no body
		return nil
	}
	if hasCode(err, "RestoreAlreadyInProgress") {
		debug.Log("restore of %v already in progress", key)
		return nil
	}

	return errors.Wrap(err, "RestoreObject")
}

// Status returns the restore state of key.
func (be *Backend) Status(ctx context.Context, key string) (backend.RestoreStatus, error) {
	oi, err := be.client.StatObject(ctx, be.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return backend.RestoreStatus{}, errors.Wrap(err, "StatObject")
	}

	st := backend.RestoreStatus{Archived: isArchived(storageClass(oi))}
	if oi.Restore != nil {
		st.Ongoing = oi.Restore.OngoingRestore
		st.Ready = !oi.Restore.OngoingRestore
		st.Expiry = oi.Restore.ExpiryTime
	}

	return st, nil
}

// Close does nothing, the client holds no resources.
func (be *Backend) Close() error { return nil }

// storageClass returns the class sent in the HEAD response, which omits the
// header for STANDARD objects.
func storageClass(oi minio.ObjectInfo) string {
	if class := oi.Metadata.Get("X-Amz-Storage-Class"); class != "" {
		return class
	}
	if oi.StorageClass != "" {
		return oi.StorageClass
	}
	return "STANDARD"
}

func hasStatus(err error, status int) bool {
	var e minio.ErrorResponse
	return errors.As(err, &e) && e.StatusCode == status
}

func hasCode(err error, codes ...string) bool {
	var e minio.ErrorResponse
	if !errors.As(err, &e) {
		return false
	}
	for _, code := range codes {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Classify maps errors returned by the S3 client to retry classes.
func (be *Backend) Classify(err error) retry.Class {
	return classify(err)
}

func classify(err error) retry.Class {
	if c, ok := retry.ClassOf(err); ok {
		return c
	}

	var e minio.ErrorResponse
	if !errors.As(err, &e) {
		return retry.DefaultClassify(err)
	}

	debug.Log("classify %v (code %q, status %d)", err, e.Code, e.StatusCode)

	switch e.Code {
	case "NoSuchKey", "NoSuchBucket", "InvalidObjectState", "InvalidArgument", "MalformedXML":
		return retry.Terminal
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccountProblem", "AllAccessDisabled":
		return retry.Unauthorized
	case "SlowDown", "RequestLimitExceeded", "Throttling", "ThrottlingException", "TooManyRequests":
		return retry.Throttled
	case "ExpiredToken", "RequestTimeout", "InternalError":
		return retry.Retryable
	}

	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return retry.Throttled
	case http.StatusNotFound:
		return retry.Terminal
	case http.StatusForbidden:
		return retry.Unauthorized
	}

	return retry.DefaultClassify(err)
}
