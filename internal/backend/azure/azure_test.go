package azure

import (
	"context"
	"fmt"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

func TestClassify(t *testing.T) {
	var tests = []struct {
		err   error
		class retry.Class
	}{
		{&azcore.ResponseError{ErrorCode: "BlobNotFound", StatusCode: 404}, retry.Terminal},
		{&azcore.ResponseError{ErrorCode: "InvalidBlobTier", StatusCode: 400}, retry.Terminal},
		{&azcore.ResponseError{ErrorCode: "AuthorizationPermissionMismatch", StatusCode: 403}, retry.Unauthorized},
		{&azcore.ResponseError{ErrorCode: "AuthenticationFailed", StatusCode: 403}, retry.Unauthorized},
		{&azcore.ResponseError{ErrorCode: "ServerBusy", StatusCode: 503}, retry.Throttled},
		{&azcore.ResponseError{StatusCode: 429}, retry.Throttled},
		{&azcore.ResponseError{ErrorCode: "InternalError", StatusCode: 500}, retry.Retryable},
		{errors.Wrap(&azcore.ResponseError{ErrorCode: "ServerBusy", StatusCode: 503}, "SetTier"), retry.Throttled},
		{errors.New("connection reset by peer"), retry.Retryable},
		{context.DeadlineExceeded, retry.Terminal},
	}

	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			rtest.Equals(t, test.class, classify(test.err))
		})
	}
}

func TestStatus(t *testing.T) {
	rtest.Equals(t, backend.RestoreStatus{Archived: true}, status("Archive", ""))
	rtest.Equals(t, backend.RestoreStatus{Archived: true, Ongoing: true}, status("Archive", "rehydrate-pending-to-hot"))
	rtest.Equals(t, backend.RestoreStatus{}, status("Hot", ""))
	rtest.Assert(t, status("Cool", "").Available(), "rehydrated blob not available")
}

func TestRehydratePriority(t *testing.T) {
	rtest.Equals(t, blob.RehydratePriorityStandard, rehydratePriority(backend.TierStandard))
	rtest.Equals(t, blob.RehydratePriorityStandard, rehydratePriority(backend.TierBulk))
	rtest.Equals(t, blob.RehydratePriorityHigh, rehydratePriority(backend.TierExpedited))
}

func TestParseAccessTier(t *testing.T) {
	tier, err := parseAccessTier("cool")
	rtest.OK(t, err)
	rtest.Equals(t, blob.AccessTierCool, tier)

	_, err = parseAccessTier("archive")
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)
}
