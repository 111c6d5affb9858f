package gemini

// promptData is the data passed to the distillation prompt template.
type promptData struct {
	Transcript string
}

// distillationResponse is the expected JSON structure of a Gemini reply.
type distillationResponse struct {
	// Rems is the array of rem drafts distilled from the transcript.
	Rems []remSchema `json:"rems"`
}

// remSchema is a single rem draft in the API response.
type remSchema struct {
	// Slug is the hierarchical identifier proposed for the rem.
	Slug string `json:"slug"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// Tags are optional topic labels.
	Tags []string `json:"tags,omitempty"`

	// Body is the concept itself, in markdown with [[slug]] wikilinks.
	Body string `json:"body"`

	// Related lists slugs of adjacent concepts.
	Related []string `json:"related,omitempty"`
}
