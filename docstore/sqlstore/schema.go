// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/rentradar/docstore"
)

type kind int

const (
	kindString kind = iota
	kindFloat
	kindInt
	kindBool
	kindTime
)

type column struct {
	field string
	name  string
	kind  kind
}

type table struct {
	name    string
	columns []column
	byField map[string]column
}

func newTable(name string, cols ...column) *table {
	t := &table{name: name, columns: cols, byField: make(map[string]column, len(cols))}
	for _, c := range cols {
		t.byField[c.field] = c
	}
	return t
}

// Document fields map onto typed columns of the migrated schema.
var tables = map[string]*table{
	"reports": newTable("reports",
		column{"createdBy", "created_by", kindString},
		column{"createdAt", "created_at", kindTime},
		column{"expiresAt", "expires_at", kindTime},
		column{"location.lat", "location_lat", kindFloat},
		column{"location.lng", "location_lng", kindFloat},
		column{"price", "price", kindString},
		column{"phone", "phone", kindString},
		column{"description", "description", kindString},
		column{"imageUrl", "image_url", kindString},
		column{"status", "status", kindString},
		column{"confirmations", "confirmations", kindInt},
		column{"possibleFraudVotes", "possible_fraud_votes", kindInt},
		column{"fraudVotes", "fraud_votes", kindInt},
		column{"inactiveVotes", "inactive_votes", kindInt},
	),
	"votes": newTable("votes",
		column{"reportId", "report_id", kindString},
		column{"voterId", "voter_id", kindString},
		column{"voteType", "vote_type", kindString},
		column{"updatedAt", "updated_at", kindTime},
		column{"applied", "applied", kindBool},
	),
	"feedback": newTable("feedback",
		column{"message", "message", kindString},
		column{"type", "type", kindString},
		column{"resolved", "resolved", kindBool},
		column{"createdBy", "created_by", kindString},
		column{"createdAt", "created_at", kindTime},
	),
	"users": newTable("users",
		column{"displayName", "display_name", kindString},
		column{"email", "email", kindString},
		column{"reputationScore", "reputation_score", kindInt},
		column{"contributionsCount", "contributions_count", kindInt},
		column{"status", "status", kindString},
		column{"createdAt", "created_at", kindTime},
		column{"lastLogin", "last_login", kindTime},
	),
}

func lookupTable(collection string) (*table, error) {
	t, ok := tables[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	return t, nil
}

func (t *table) column(field string) (column, error) {
	if field == "id" {
		return column{field: "id", name: "id", kind: kindString}, nil
	}
	c, ok := t.byField[field]
	if !ok {
		return column{}, fmt.Errorf("%w: %s.%s", docstore.ErrUnknownField, t.name, field)
	}
	return c, nil
}

// encode converts a document value into a driver argument for the column.
func (c column) encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.kind {
	case kindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindFloat:
		if n, ok := docstore.Number(v); ok {
			return n, nil
		}
	case kindInt:
		if n, ok := docstore.Number(v); ok {
			return int64(n), nil
		}
	case kindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case kindTime:
		if ts, ok := v.(time.Time); ok {
			return ts.UnixMilli(), nil
		}
	}
	return nil, fmt.Errorf("field %s: unexpected value type %T", c.field, v)
}

func (c column) scanTarget() any {
	switch c.kind {
	case kindFloat:
		return new(sql.NullFloat64)
	case kindInt, kindTime:
		return new(sql.NullInt64)
	case kindBool:
		return new(sql.NullBool)
	default:
		return new(sql.NullString)
	}
}

func (c column) decode(target any) any {
	switch v := target.(type) {
	case *sql.NullString:
		if v.Valid {
			return v.String
		}
	case *sql.NullFloat64:
		if v.Valid {
			return v.Float64
		}
	case *sql.NullBool:
		if v.Valid {
			return v.Bool
		}
	case *sql.NullInt64:
		if !v.Valid {
			return nil
		}
		if c.kind == kindTime {
			return time.UnixMilli(v.Int64).UTC()
		}
		return v.Int64
	}
	return nil
}

// selectList is "id, col1, col2, ..." in column order.
func (t *table) selectList() string {
	s := "id"
	for _, c := range t.columns {
		s += ", " + c.name
	}
	return s
}

func (t *table) scanTargets(id *string) []any {
	targets := make([]any, 0, len(t.columns)+1)
	targets = append(targets, id)
	for _, c := range t.columns {
		targets = append(targets, c.scanTarget())
	}
	return targets
}

func (t *table) document(id string, targets []any) docstore.Document {
	f := make(docstore.Fields, len(t.columns))
	for i, c := range t.columns {
		f[c.field] = c.decode(targets[i+1])
	}
	return docstore.Document{ID: id, Fields: f}
}
