// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mongostore

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/danielhkuo/rentradar/docstore"
)

// expand turns dotted field paths into nested documents for inserts and
// replacements. $set accepts dotted paths directly.
func expand(fields docstore.Fields) bson.M {
	out := bson.M{}
	for k, v := range fields {
		parts := strings.Split(k, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(bson.M)
			if !ok {
				next = bson.M{}
				m[p] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = v
	}
	return out
}

// decode flattens a raw document into dotted fields and normalizes the
// driver's types.
func decode(raw bson.M) docstore.Document {
	doc := docstore.Document{Fields: docstore.Fields{}}
	for k, v := range raw {
		if k == "_id" {
			if id, ok := v.(string); ok {
				doc.ID = id
			}
			continue
		}
		flatten(doc.Fields, k, v)
	}
	return doc
}

func flatten(dst docstore.Fields, prefix string, v any) {
	switch x := v.(type) {
	case bson.M:
		for k, inner := range x {
			flatten(dst, prefix+"."+k, inner)
		}
	case bson.D:
		for _, e := range x {
			flatten(dst, prefix+"."+e.Key, e.Value)
		}
	default:
		dst[prefix] = normalize(v)
	}
}

func normalize(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case primitive.Null, primitive.Undefined:
		return nil
	}
	return v
}
