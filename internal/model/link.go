package model

// Link is a deferred relationship: an opaque selector understood by whatever
// engine resolves links downstream, plus a human-readable label.
//
// The selector grammar (e.g. "swipe[.employee_id == 'e1']") is not
// interpreted here.
type Link struct {
	Query string
	Label string
}

func (Link) sapValue() {}

// MakeLink builds a Link. Both parts must be non-empty.
func MakeLink(query, label string) (Link, error) {
	if query == "" {
		return Link{}, &Error{Code: ErrCodeInvalidLink, Message: "link query is required", Field: "query"}
	}
	if label == "" {
		return Link{}, &Error{Code: ErrCodeInvalidLink, Message: "link label is required", Field: "label"}
	}
	return Link{Query: query, Label: label}, nil
}

// MustLink is like MakeLink but panics on error.
func MustLink(query, label string) Link {
	l, err := MakeLink(query, label)
	if err != nil {
		panic(err)
	}
	return l
}

// MarshalJSON implements json.Marshaler for Link as {"label","query"}.
func (l Link) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(l)
}
