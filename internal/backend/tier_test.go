package backend_test

import (
	"testing"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

func TestTierSet(t *testing.T) {
	var tests = []struct {
		in   string
		tier backend.Tier
	}{
		{"Standard", backend.TierStandard},
		{"bulk", backend.TierBulk},
		{"EXPEDITED", backend.TierExpedited},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			var tier backend.Tier
			rtest.OK(t, tier.Set(test.in))
			rtest.Equals(t, test.tier, tier)
		})
	}
}

func TestTierInvalid(t *testing.T) {
	var tier backend.Tier
	rtest.Equals(t, "Standard", tier.String())

	err := tier.Set("Fast")
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)
	rtest.Equals(t, backend.Tier(""), tier)
}

func TestRestoreStatusAvailable(t *testing.T) {
	rtest.Assert(t, backend.RestoreStatus{}.Available(), "unarchived object not available")
	rtest.Assert(t, !backend.RestoreStatus{Archived: true, Ongoing: true}.Available(), "ongoing restore reported available")
	rtest.Assert(t, backend.RestoreStatus{Archived: true, Ready: true}.Available(), "ready restore not available")
}
