package model

// FeatureKey identifies a priced reading mode.
type FeatureKey string

const (
	FeatureSingleCard FeatureKey = "single"
	FeatureThreeCard  FeatureKey = "three_card"
	FeatureClassic10  FeatureKey = "classic10"
)

// Plan labels are informational only; entitlements come from the quota fields.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)
