package models

// Enums represents the enum values used by the API.
type Enums struct {
	Categories []string `json:"categories"`
	Effects    []string `json:"effects"`
	Icons      []string `json:"icons"`
	States     []string `json:"states"`
	LayerKinds []string `json:"layerKinds"`
	Flags      []string `json:"flags"`
}

// FeatureFlag is a runtime switch. UpdatedAt and UpdatedBy are set only for
// overridden flags.
type FeatureFlag struct {
	Key        string     `json:"key"`
	Value      bool       `json:"value"`
	Default    bool       `json:"default"`
	Overridden bool       `json:"overridden"`
	UpdatedAt  *Timestamp `json:"updatedAt,omitempty"`
	UpdatedBy  *string    `json:"updatedBy,omitempty"`
}

// FeatureFlagList is the list of all known flags.
type FeatureFlagList struct {
	Items []FeatureFlag `json:"items"`
}

// FeatureFlagValue is one entry of an update request. Value is validated as a
// boolean by the handler so that type errors can be reported per flag.
type FeatureFlagValue struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FeatureFlagUpdateRequest sets several flags at once.
type FeatureFlagUpdateRequest struct {
	Flags []FeatureFlagValue `json:"flags"`
}
