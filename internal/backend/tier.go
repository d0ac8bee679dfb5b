package backend

import (
	"strings"

	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

// Tier is the retrieval speed of a restore. Faster tiers cost more.
type Tier string

const (
	TierStandard  Tier = "Standard"
	TierBulk      Tier = "Bulk"
	TierExpedited Tier = "Expedited"
)

// Tiers lists all valid tiers.
var Tiers = []Tier{TierStandard, TierBulk, TierExpedited}

// ParseTier returns the tier named s, ignoring case.
func ParseTier(s string) (Tier, error) {
	for _, t := range Tiers {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", errors.Fatalf("invalid retrieval tier %q, must be one of Standard, Bulk, Expedited", s)
}

// String implements pflag.Value.
func (t *Tier) String() string {
	if *t == "" {
		return string(TierStandard)
	}
	return string(*t)
}

// Set implements pflag.Value.
func (t *Tier) Set(s string) error {
	tier, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// Type implements pflag.Value.
func (t *Tier) Type() string {
	return "tier"
}
