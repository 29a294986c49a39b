package cart

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies which part of a cart item a row refers to.
type Tag string

const (
	// TagItem addresses a whole regular item.
	TagItem    Tag = ""
	TagQuarter Tag = "quarter"
	TagFull    Tag = "full"
)

// RowRef addresses one removable row of the cart: a whole item, or one
// wholesale package size of an item.
type RowRef struct {
	CartID int64
	Tag    Tag
}

// String renders the ref as "{cartId}", "{cartId}-quarter" or "{cartId}-full".
func (r RowRef) String() string {
	id := strconv.FormatInt(r.CartID, 10)
	if r.Tag == TagItem {
		return id
	}
	return id + "-" + string(r.Tag)
}

// ParseRowRef parses the string form produced by RowRef.String.
func ParseRowRef(s string) (RowRef, error) {
	s = strings.TrimSpace(s)
	idPart, tagPart, tagged := strings.Cut(s, "-")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return RowRef{}, fmt.Errorf("row ref %q: %w", s, ErrInvalidInput)
	}
	if !tagged {
		return RowRef{CartID: id}, nil
	}
	switch Tag(tagPart) {
	case TagQuarter, TagFull:
		return RowRef{CartID: id, Tag: Tag(tagPart)}, nil
	default:
		return RowRef{}, fmt.Errorf("row ref %q: unknown presentation: %w", s, ErrInvalidInput)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r RowRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RowRef) UnmarshalText(text []byte) error {
	parsed, err := ParseRowRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
