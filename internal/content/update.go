package content

import "github.com/rovista/listingflow/pkg/workflow"

// Update is a partial contribution to State: set fields overwrite the
// stored value, unset (nil) fields leave it alone. Both inbound caller
// messages and step results are expressed as Updates, so the session
// store and the executor share one merge path.
type Update struct {
	UserInput    *string
	BrandText    *string
	VisualPrompt *string
	ImageRef     *string
	Location     *string
	Price        *string
	Bedrooms     *string
	Features     *[]string
	PostText     *string
	Missing      *[]Field
	Publish      *PublishResult
	AutoPublish  *bool
}

// Compile-time interface check.
var _ workflow.Update[State] = Update{}

// Apply implements workflow.Update: shallow key-wise overwrite.
func (u Update) Apply(s State) State {
	if u.UserInput != nil {
		s.UserInput = *u.UserInput
	}
	if u.BrandText != nil {
		s.BrandText = *u.BrandText
	}
	if u.VisualPrompt != nil {
		s.VisualPrompt = *u.VisualPrompt
	}
	if u.ImageRef != nil {
		s.ImageRef = *u.ImageRef
	}
	if u.Location != nil {
		s.Listing.Location = *u.Location
	}
	if u.Price != nil {
		s.Listing.Price = *u.Price
	}
	if u.Bedrooms != nil {
		s.Listing.Bedrooms = *u.Bedrooms
	}
	if u.Features != nil {
		s.Listing.Features = *u.Features
	}
	if u.PostText != nil {
		s.PostText = *u.PostText
	}
	if u.Missing != nil {
		s.Missing = *u.Missing
	}
	if u.Publish != nil {
		s.Publish = u.Publish
	}
	if u.AutoPublish != nil {
		s.AutoPublish = *u.AutoPublish
	}
	return s
}

// Payload implements workflow.Update: only the set fields appear.
func (u Update) Payload() map[string]any {
	p := make(map[string]any)
	if u.UserInput != nil {
		p["user_input"] = *u.UserInput
	}
	if u.BrandText != nil {
		p["brand_text"] = *u.BrandText
	}
	if u.VisualPrompt != nil {
		p["visual_prompt"] = *u.VisualPrompt
	}
	if u.ImageRef != nil {
		p["image_ref"] = *u.ImageRef
	}
	if u.Location != nil {
		p["location"] = *u.Location
	}
	if u.Price != nil {
		p["price"] = *u.Price
	}
	if u.Bedrooms != nil {
		p["bedrooms"] = *u.Bedrooms
	}
	if u.Features != nil {
		p["features"] = *u.Features
	}
	if u.PostText != nil {
		p["post_text"] = *u.PostText
	}
	if u.Missing != nil {
		p["missing_info"] = FieldNames(*u.Missing)
	}
	if u.Publish != nil {
		p["publish_result"] = u.Publish
	}
	if u.AutoPublish != nil {
		p["should_publish"] = *u.AutoPublish
	}
	return p
}

// IsZero reports whether the update sets nothing.
func (u Update) IsZero() bool {
	return u.UserInput == nil && u.BrandText == nil && u.VisualPrompt == nil &&
		u.ImageRef == nil && u.Location == nil && u.Price == nil &&
		u.Bedrooms == nil && u.Features == nil && u.PostText == nil &&
		u.Missing == nil && u.Publish == nil && u.AutoPublish == nil
}

// StartUpdate builds the update for a turn that opens with free text.
func StartUpdate(userInput string) Update {
	return Update{UserInput: &userInput}
}

// DetailsUpdate builds the update for a turn that supplies previously
// missing structured fields. The feature list is parsed from its
// comma-separated form before the merge, replacing any stored list.
func DetailsUpdate(location, price, bedrooms, featuresCSV string, shouldPublish bool) Update {
	u := Update{AutoPublish: &shouldPublish}
	if location != "" {
		u.Location = &location
	}
	if price != "" {
		u.Price = &price
	}
	if bedrooms != "" {
		u.Bedrooms = &bedrooms
	}
	if featuresCSV != "" {
		features := ParseFeatures(featuresCSV)
		u.Features = &features
	}
	return u
}
