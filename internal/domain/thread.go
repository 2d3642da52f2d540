package domain

// Comment is a single top-level reply in a discussion thread, read-only.
type Comment struct {
	Body  string
	Score int
}

// Thread is one discussion post plus its top-level comments, as fetched from
// the discussion source. Immutable after fetch; never persisted.
type Thread struct {
	Ref      string
	Title    string
	Body     string
	Score    int
	Comments []Comment
}

// QueryContext carries the city/category pair a pipeline run is scoped to.
type QueryContext struct {
	City     string
	Category string
}
