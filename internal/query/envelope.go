package query

// Document is one listed row keyed by public field names.
type Document map[string]any

// PageRef points at a neighbouring page.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination describes the neighbours of the current page.
type Pagination struct {
	HasNextPage bool     `json:"hasNextPage"`
	HasPrevPage bool     `json:"hasPrevPage"`
	Next        *PageRef `json:"next,omitempty"`
	Prev        *PageRef `json:"prev,omitempty"`
}

// Envelope is the response body of every list endpoint.
type Envelope struct {
	Success    bool       `json:"success"`
	Count      int        `json:"count"`
	Total      int64      `json:"total"`
	Pagination Pagination `json:"pagination"`
	Data       []Document `json:"data"`
}

// NewPagination computes next/previous descriptors from the total number
// of matching rows, ignoring the window.
func NewPagination(q Query, total int64) Pagination {
	var p Pagination
	if int64(q.Page)*int64(q.Limit) < total {
		p.HasNextPage = true
		p.Next = &PageRef{Page: q.Page + 1, Limit: q.Limit}
	}
	if q.Offset() > 0 {
		p.HasPrevPage = true
		p.Prev = &PageRef{Page: q.Page - 1, Limit: q.Limit}
	}
	return p
}

// NewEnvelope wraps one page of documents.
func NewEnvelope(q Query, total int64, docs []Document) Envelope {
	if docs == nil {
		docs = []Document{}
	}
	return Envelope{
		Success:    true,
		Count:      len(docs),
		Total:      total,
		Pagination: NewPagination(q, total),
		Data:       docs,
	}
}
