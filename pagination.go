package entwine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Page one length-aware result page.
type Page struct {
	Items       *Collection `json:"items"`
	Total       int64       `json:"total"`
	PerPage     int         `json:"per_page"`
	CurrentPage int         `json:"current_page"`
	LastPage    int         `json:"last_page"`
}

// SimplePage one page without a total count: a single query fetching one
// surplus row decides whether more pages exist.
type SimplePage struct {
	Items       *Collection `json:"items"`
	PerPage     int         `json:"per_page"`
	CurrentPage int         `json:"current_page"`
	HasMore     bool        `json:"has_more"`
}

// CursorPage one keyset page with an opaque continuation cursor.
type CursorPage struct {
	Items      *Collection `json:"items"`
	PerPage    int         `json:"per_page"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// Paginate run the count and the page fetch for a classic length-aware
// pager. page is 1-based.
func (q *Query) Paginate(ctx context.Context, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return nil, fmt.Errorf("%w: per-page must be positive", ErrInvalidData)
	}

	total, err := q.clone().Count(ctx)
	if err != nil {
		return nil, err
	}

	items, err := q.clone().
		Limit(perPage).
		Offset((page - 1) * perPage).
		Get(ctx)
	if err != nil {
		return nil, err
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return &Page{
		Items:       items,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}, nil
}

// SimplePaginate fetch perPage+1 rows; the surplus row only signals that a
// next page exists and is discarded.
func (q *Query) SimplePaginate(ctx context.Context, page, perPage int) (*SimplePage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return nil, fmt.Errorf("%w: per-page must be positive", ErrInvalidData)
	}

	items, err := q.clone().
		Limit(perPage + 1).
		Offset((page - 1) * perPage).
		Get(ctx)
	if err != nil {
		return nil, err
	}

	hasMore := items.Len() > perPage
	if hasMore {
		items = NewCollection(items.All()[:perPage]...)
	}
	return &SimplePage{
		Items:       items,
		PerPage:     perPage,
		CurrentPage: page,
		HasMore:     hasMore,
	}, nil
}

type cursorPayload struct {
	Column string      `json:"c"`
	After  interface{} `json:"a"`
}

func encodeCursor(column string, after interface{}) (string, error) {
	raw, err := json.Marshal(cursorPayload{Column: column, After: after})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(cursor string) (cursorPayload, error) {
	var payload cursorPayload
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return payload, fmt.Errorf("%w: malformed cursor", ErrInvalidData)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("%w: malformed cursor", ErrInvalidData)
	}
	return payload, nil
}

// CursorPaginate keyset pagination over column ascending. Pass an empty
// cursor for the first page; an empty NextCursor means the result is
// exhausted.
func (q *Query) CursorPaginate(ctx context.Context, column string, cursor string, perPage int) (*CursorPage, error) {
	if perPage < 1 {
		return nil, fmt.Errorf("%w: per-page must be positive", ErrInvalidData)
	}

	sub := q.clone().Order(column).Limit(perPage + 1)
	if cursor != "" {
		payload, err := decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		if payload.Column != column {
			return nil, fmt.Errorf("%w: cursor built for column %q", ErrInvalidData, payload.Column)
		}
		sub.Where(column+" > ?", payload.After)
	}

	items, err := sub.Get(ctx)
	if err != nil {
		return nil, err
	}

	page := &CursorPage{PerPage: perPage}
	if items.Len() > perPage {
		kept := items.All()[:perPage]
		page.Items = NewCollection(kept...)
		next, err := encodeCursor(column, kept[len(kept)-1].Raw(columnFromName(column).Name))
		if err != nil {
			return nil, err
		}
		page.NextCursor = next
	} else {
		page.Items = items
	}
	return page, nil
}
