// Package azure rehydrates blobs stored in the archive access tier of Azure
// Blob Storage.
package azure

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	azContainer "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/location"
	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
)

// Backend talks to an azure container.
type Backend struct {
	cfg          Config
	container    *azContainer.Client
	targetTier   blob.AccessTier
	listMaxItems int32
}

const defaultListMaxItems = 5000

// make sure that *Backend implements backend.Backend
var _ backend.Backend = &Backend{}

// NewFactory returns the factory registered for the "azure" scheme.
func NewFactory() location.Factory {
	return location.NewHTTPBackendFactory("azure", ParseConfig, Open)
}

func parseAccessTier(s string) (blob.AccessTier, error) {
	switch strings.ToLower(s) {
	case "", "hot":
		return blob.AccessTierHot, nil
	case "cool":
		return blob.AccessTierCool, nil
	}
	return "", errors.Fatalf("invalid rehydrate tier %q, must be Hot or Cool", s)
}

// Open connects to the container described by cfg.
func Open(_ context.Context, cfg Config, rt http.RoundTripper) (*Backend, error) {
	debug.Log("open, config %#v", cfg)
	var client *azContainer.Client
	var err error

	tier, err := parseAccessTier(cfg.RehydrateTier)
	if err != nil {
		return nil, err
	}

	if cfg.AccountName == "" {
		return nil, errors.Fatal("unable to open azure backend: account name ($AZURE_ACCOUNT_NAME) is empty")
	}

	endpointSuffix := cfg.EndpointSuffix
	if endpointSuffix == "" {
		endpointSuffix = "core.windows.net"
	}
	url := fmt.Sprintf("https://%s.blob.%s/%s", cfg.AccountName, endpointSuffix, cfg.Container)
	opts := &azContainer.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: &http.Client{Transport: rt},
		},
	}

	switch {
	case cfg.AccountKey.String() != "":
		debug.Log(" - using account key")
		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey.Unwrap())
		if err != nil {
			return nil, errors.Wrap(err, "NewSharedKeyCredential")
		}

		client, err = azContainer.NewClientWithSharedKeyCredential(url, cred, opts)
		if err != nil {
			return nil, errors.Wrap(err, "NewClientWithSharedKeyCredential")
		}
	case cfg.AccountSAS.String() != "":
		debug.Log(" - using sas token")
		sas := strings.TrimPrefix(cfg.AccountSAS.Unwrap(), "?")

		client, err = azContainer.NewClientWithNoCredential(fmt.Sprintf("%s?%s", url, sas), opts)
		if err != nil {
			return nil, errors.Wrap(err, "NewClientWithNoCredential")
		}
	default:
		var cred azcore.TokenCredential

		if cfg.ForceCliCredential {
			debug.Log(" - using AzureCLICredential")
			cred, err = azidentity.NewAzureCLICredential(nil)
			if err != nil {
				return nil, errors.Wrap(err, "NewAzureCLICredential")
			}
		} else {
			debug.Log(" - using DefaultAzureCredential")
			cred, err = azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, errors.Wrap(err, "NewDefaultAzureCredential")
			}
		}

		client, err = azContainer.NewClient(url, cred, opts)
		if err != nil {
			return nil, errors.Wrap(err, "NewClient")
		}
	}

	return &Backend{
		cfg:          cfg,
		container:    client,
		targetTier:   tier,
		listMaxItems: defaultListMaxItems,
	}, nil
}

// Location returns this backend's location (the container name).
func (be *Backend) Location() string {
	if be.cfg.Prefix != "" {
		return "azure:" + be.cfg.Container + ":/" + be.cfg.Prefix
	}
	return "azure:" + be.cfg.Container
}

// List reports all blobs in the archive access tier.
func (be *Backend) List(ctx context.Context, fn func(backend.Object) error) error {
	opts := &azContainer.ListBlobsFlatOptions{
		MaxResults: to.Ptr(be.listMaxItems),
	}
	if be.cfg.Prefix != "" {
		opts.Prefix = to.Ptr(be.cfg.Prefix)
	}
	lister := be.container.NewListBlobsFlatPager(opts)

	for lister.More() {
		resp, err := lister.NextPage(ctx)
		if err != nil {
			return errors.Wrap(err, "NextPage")
		}

		debug.Log("got %v objects", len(resp.Segment.BlobItems))

		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil || item.Properties == nil || item.Properties.AccessTier == nil {
				continue
			}
			if *item.Properties.AccessTier != blob.AccessTierArchive {
				continue
			}

			obj := backend.Object{
				Key:          *item.Name,
				StorageClass: string(*item.Properties.AccessTier),
			}
			if item.Properties.ContentLength != nil {
				obj.Size = *item.Properties.ContentLength
			}

			if err := fn(obj); err != nil {
				return err
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}

	return ctx.Err()
}

func rehydratePriority(t backend.Tier) blob.RehydratePriority {
	// there is no bulk priority, standard is the cheapest
	if t == backend.TierExpedited {
		return blob.RehydratePriorityHigh
	}
	return blob.RehydratePriorityStandard
}

// Restore moves key to the online target tier. Rehydrated blobs stay online,
// so req.Days has no effect.
func (be *Backend) Restore(ctx context.Context, key string, req backend.RestoreRequest) error {
	_, err := be.container.NewBlobClient(key).SetTier(ctx, be.targetTier, &blob.SetTierOptions{
		RehydratePriority: to.Ptr(rehydratePriority(req.Tier)),
	})
	if bloberror.HasCode(err, bloberror.BlobBeingRehydrated) {
		debug.Log("rehydration of %v already in progress", key)
		return nil
	}

	return errors.Wrap(err, "SetTier")
}

// Status returns the rehydration state of key.
func (be *Backend) Status(ctx context.Context, key string) (backend.RestoreStatus, error) {
	props, err := be.container.NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		return backend.RestoreStatus{}, errors.Wrap(err, "GetProperties")
	}

	var tier, archiveStatus string
	if props.AccessTier != nil {
		tier = *props.AccessTier
	}
	if props.ArchiveStatus != nil {
		archiveStatus = *props.ArchiveStatus
	}

	return status(tier, archiveStatus), nil
}

func status(tier, archiveStatus string) backend.RestoreStatus {
	if !strings.EqualFold(tier, string(blob.AccessTierArchive)) {
		// rehydrated or never archived
		return backend.RestoreStatus{}
	}

	return backend.RestoreStatus{
		Archived: true,
		Ongoing:  strings.HasPrefix(archiveStatus, "rehydrate-pending-to-"),
	}
}

// Close does nothing
func (be *Backend) Close() error { return nil }

// Classify maps errors returned by the azure SDK to retry classes.
func (be *Backend) Classify(err error) retry.Class {
	return classify(err)
}

func classify(err error) retry.Class {
	if c, ok := retry.ClassOf(err); ok {
		return c
	}

	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return retry.Unauthorized
	}

	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.InvalidBlobTier):
		return retry.Terminal
	case bloberror.HasCode(err, bloberror.AuthenticationFailed, bloberror.AuthorizationFailure,
		bloberror.AuthorizationPermissionMismatch, bloberror.InsufficientAccountPermissions):
		return retry.Unauthorized
	case bloberror.HasCode(err, bloberror.ServerBusy):
		return retry.Throttled
	}

	var aerr *azcore.ResponseError
	if errors.As(err, &aerr) {
		switch aerr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return retry.Throttled
		case http.StatusUnauthorized, http.StatusForbidden:
			return retry.Unauthorized
		case http.StatusNotFound:
			return retry.Terminal
		}
	}

	return retry.DefaultClassify(err)
}
