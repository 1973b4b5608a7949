package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// StringList is the tag list of a bookmark. Older documents stored tags as
// one comma separated string; both shapes decode into the same list.
type StringList []string

func (s *StringList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var values []string

	switch t {
	case bsontype.Null, bsontype.Undefined:
		*s = StringList{}
		return nil
	case bsontype.Array:
		if err := bson.UnmarshalValue(t, data, &values); err != nil {
			return err
		}
	case bsontype.String:
		var joined string
		if err := bson.UnmarshalValue(t, data, &joined); err != nil {
			return err
		}
		values = strings.Split(joined, ",")
	default:
		return fmt.Errorf("cannot decode %s into tags", t)
	}

	*s = NewStringList(values)
	return nil
}

// MarshalBSONValue always writes an array, so tag queries never see null or
// a bare string.
func (s StringList) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if s == nil {
		return bson.MarshalValue([]string{})
	}
	return bson.MarshalValue([]string(s))
}

// NewStringList trims values and drops blanks and duplicates, keeping the
// first occurrence order.
func NewStringList(values []string) StringList {
	seen := make(map[string]struct{}, len(values))
	out := make(StringList, 0, len(values))

	for _, v := range values {
		tag := strings.TrimSpace(v)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
