package navtree

// Option is one entry of an ordered id → display-name mapping used to
// populate the purpose and data-category selectors.
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NotSetLabel is the display name of the synthetic id-0 option.
const NotSetLabel = "Not set"

// PurposeOptions prepends the "Not set" option to the purpose list.
func PurposeOptions(purposes []Option) []Option {
	return withNotSet(purposes)
}

// CategoryOptions prepends the "Not set" option to the data-category list.
func CategoryOptions(categories []Option) []Option {
	return withNotSet(categories)
}

func withNotSet(items []Option) []Option {
	out := make([]Option, 0, len(items)+1)
	out = append(out, Option{ID: 0, Name: NotSetLabel})
	return append(out, items...)
}
