package valueobjects

import (
	"fmt"
	"strings"
)

// FeatureKey identifies a meterable capability of the platform.
type FeatureKey string

const (
	// FeatureAICredits meters AI image/content generation credits.
	FeatureAICredits FeatureKey = "ai_credits"
	// FeatureCrossPosts meters automated cross-posting runs.
	FeatureCrossPosts FeatureKey = "cross_posts"
)

var validFeatureKeys = map[FeatureKey]bool{
	FeatureAICredits:  true,
	FeatureCrossPosts: true,
}

// AllFeatureKeys lists every metered capability. The anniversary sweep seeds
// a fresh cycle row for each of these.
func AllFeatureKeys() []FeatureKey {
	return []FeatureKey{FeatureAICredits, FeatureCrossPosts}
}

// ParseFeatureKey normalizes and validates a feature key string.
func ParseFeatureKey(value string) (FeatureKey, error) {
	normalized := FeatureKey(strings.ToLower(strings.TrimSpace(value)))

	if normalized == "" {
		return "", fmt.Errorf("feature key cannot be empty")
	}
	if !validFeatureKeys[normalized] {
		return "", fmt.Errorf("unknown feature key: %s", value)
	}
	return normalized, nil
}

func (f FeatureKey) String() string {
	return string(f)
}

func (f FeatureKey) IsValid() bool {
	return validFeatureKeys[f]
}
