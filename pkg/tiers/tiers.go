// Package tiers defines S3 storage class and Intelligent-Tiering tier identity.
package tiers

import "strings"

// IntelligentTiering is the storage class whose cost depends on the
// access-tier refinement.
const IntelligentTiering = "INTELLIGENT_TIERING"

// Key identifies a storage tier: an S3 storage class plus, for
// Intelligent-Tiering, the access-tier refinement. Classes without
// tiering carry an empty AccessTier.
type Key struct {
	StorageClass string
	AccessTier   string
}

// String returns "CLASS" or "CLASS/TIER".
func (k Key) String() string {
	if k.AccessTier == "" {
		return k.StorageClass
	}
	return k.StorageClass + "/" + k.AccessTier
}

// PricingKey returns the price-table key for this tier.
// Intelligent-Tiering prices per access tier; every other class prices
// by storage class alone.
func (k Key) PricingKey() string {
	if k.StorageClass == IntelligentTiering && k.AccessTier != "" {
		return k.StorageClass + "_" + k.AccessTier
	}
	return k.StorageClass
}

// ParsePricingKey inverts PricingKey.
func ParsePricingKey(s string) Key {
	if tier, ok := strings.CutPrefix(s, IntelligentTiering+"_"); ok {
		return Key{StorageClass: IntelligentTiering, AccessTier: tier}
	}
	return Key{StorageClass: s}
}

// FromInventory maps raw inventory StorageClass and
// IntelligentTieringAccessTier values to a tier key. Values are
// trimmed and upper-cased. The access tier is kept only for
// INTELLIGENT_TIERING, matching how the report query groups rows;
// inventory files never populate it for other classes. Unknown
// classes pass through unchanged and price at zero.
func FromInventory(storageClass, accessTier string) Key {
	storageClass = strings.ToUpper(strings.TrimSpace(storageClass))
	accessTier = strings.ToUpper(strings.TrimSpace(accessTier))

	if storageClass != IntelligentTiering {
		accessTier = ""
	}

	return Key{StorageClass: storageClass, AccessTier: accessTier}
}

// Compare orders keys by storage class, then access tier.
func Compare(a, b Key) int {
	if c := strings.Compare(a.StorageClass, b.StorageClass); c != 0 {
		return c
	}
	return strings.Compare(a.AccessTier, b.AccessTier)
}
