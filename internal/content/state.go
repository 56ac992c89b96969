// Package content holds the listing content-generation domain: the
// accumulated workflow state, the partial updates steps produce, the
// reference step graph, and the step handlers themselves.
package content

import "strings"

// Field identifies one required structured listing field.
type Field string

// Required listing fields, in the order validation reports them.
const (
	FieldLocation Field = "location"
	FieldPrice    Field = "price"
	FieldBedrooms Field = "bedrooms"
	FieldFeatures Field = "features"
)

// RequiredFields lists every field validation checks, in report order.
func RequiredFields() []Field {
	return []Field{FieldLocation, FieldPrice, FieldBedrooms, FieldFeatures}
}

// ListingDetails is the structured part of a listing.
// Price and bedroom count stay strings: they arrive as free-form agent
// input ("1.2Cr", "3+study") and are never computed with.
type ListingDetails struct {
	Location string   `json:"location,omitempty"`
	Price    string   `json:"price,omitempty"`
	Bedrooms string   `json:"bedrooms,omitempty"`
	Features []string `json:"features,omitempty"`
}

// PublishResult records the outcome of a publish attempt or preview.
type PublishResult struct {
	Status  string `json:"status"` // "published", "failed", or "preview"
	Message string `json:"message"`
	PostID  string `json:"post_id,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Publish outcome statuses.
const (
	StatusPublished = "published"
	StatusFailed    = "failed"
	StatusPreview   = "preview"
)

// State is the accumulated workflow state for one session.
//
// Accumulation is append/overwrite-only: every run sees the union of
// everything the caller ever supplied plus whatever earlier runs
// produced, including possibly stale generated content from a previous
// intent. Missing is the exception - it is recomputed on every run by
// the validation step, never accumulated.
type State struct {
	SessionID    string         `json:"session_id,omitempty"`
	UserInput    string         `json:"user_input,omitempty"`
	BrandText    string         `json:"brand_text,omitempty"`
	VisualPrompt string         `json:"visual_prompt,omitempty"`
	ImageRef     string         `json:"image_ref,omitempty"`
	Listing      ListingDetails `json:"listing"`
	PostText     string         `json:"post_text,omitempty"`
	Missing      []Field        `json:"missing_info,omitempty"`
	Publish      *PublishResult `json:"publish_result,omitempty"`
	AutoPublish  bool           `json:"should_publish"`
}

// MissingFields reports which required fields the state still lacks, in
// RequiredFields order. A field that was provided but is empty or
// whitespace-only counts as missing: the agent typing a bare space is
// indistinguishable from not answering.
func (s State) MissingFields() []Field {
	var missing []Field
	if strings.TrimSpace(s.Listing.Location) == "" {
		missing = append(missing, FieldLocation)
	}
	if strings.TrimSpace(s.Listing.Price) == "" {
		missing = append(missing, FieldPrice)
	}
	if strings.TrimSpace(s.Listing.Bedrooms) == "" {
		missing = append(missing, FieldBedrooms)
	}
	if len(s.Listing.Features) == 0 {
		missing = append(missing, FieldFeatures)
	}
	return missing
}

// ParseFeatures normalizes a comma-separated feature list: entries are
// trimmed and empties dropped. The result replaces any stored list
// wholesale on merge; it is never appended.
func ParseFeatures(csv string) []string {
	parts := strings.Split(csv, ",")
	features := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := strings.TrimSpace(p); f != "" {
			features = append(features, f)
		}
	}
	return features
}

// FieldNames converts a field list to plain strings for event payloads.
func FieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}
