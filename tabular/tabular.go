// Package tabular flattens the broker's nested JSON envelopes into uniform
// flat rows. It absorbs three documented API quirks: a single-record
// collection arrives as a bare object instead of a one-element array, an
// empty collection sometimes arrives as the literal string "null", and
// nested objects are addressed by dotted paths after flattening
// (e.g. margin.fed_call).
package tabular

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Row is one flattened record, keyed by broker field name or dotted path.
type Row map[string]interface{}

// String returns the value at key rendered as a string, or "" when absent.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Float returns the numeric value at key. JSON numbers decode as float64;
// numeric strings are accepted too.
func (r Row) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns the value at key as an integer when it is integral.
func (r Row) Int(key string) (int64, bool) {
	f, ok := r.Float(key)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// Bool returns the boolean value at key.
func (r Row) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// UnexpectedShapeError reports an envelope missing the keys the caller
// expected. It is surfaced instead of an empty result so broker-side
// failures are never masked as "no data".
type UnexpectedShapeError struct {
	Path   string
	Detail string
}

func (e *UnexpectedShapeError) Error() string {
	return fmt.Sprintf("unexpected response shape at %q: %s", e.Path, e.Detail)
}

// Normalize extracts the records under envelope[collectionKey][recordKey]
// and flattens each into a Row. An empty recordKey addresses the collection
// value itself (single-object envelopes such as balances or profile).
// A nil collection, or the literal string "null", yields zero rows and no
// error.
func Normalize(envelope map[string]interface{}, collectionKey, recordKey string) ([]Row, error) {
	coll, ok := envelope[collectionKey]
	if !ok {
		return nil, &UnexpectedShapeError{Path: collectionKey, Detail: fmt.Sprintf("key missing, envelope has %v", keysOf(envelope))}
	}

	records, err := dig(coll, collectionKey, recordKey)
	if err != nil {
		return nil, err
	}

	switch rec := records.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return []Row{flatten(rec)}, nil
	case []interface{}:
		rows := make([]Row, 0, len(rec))
		for i, item := range rec {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, &UnexpectedShapeError{
					Path:   fmt.Sprintf("%s[%d]", joinPath(collectionKey, recordKey), i),
					Detail: fmt.Sprintf("want an object, got %T", item),
				}
			}
			rows = append(rows, flatten(m))
		}
		return rows, nil
	default:
		return nil, &UnexpectedShapeError{
			Path:   joinPath(collectionKey, recordKey),
			Detail: fmt.Sprintf("want an object or array, got %T", records),
		}
	}
}

// NormalizeBytes decodes a raw JSON envelope and normalizes it.
func NormalizeBytes(raw []byte, collectionKey, recordKey string) ([]Row, error) {
	var envelope map[string]interface{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &UnexpectedShapeError{Path: collectionKey, Detail: fmt.Sprintf("envelope is not a JSON object: %v", err)}
	}
	return Normalize(envelope, collectionKey, recordKey)
}

// dig resolves the record container, absorbing the "null"-string and
// JSON-null empties at both levels.
func dig(coll interface{}, collectionKey, recordKey string) (interface{}, error) {
	if empty, ok := isEmptyMarker(coll); ok {
		if empty {
			return nil, nil
		}
		return nil, &UnexpectedShapeError{Path: collectionKey, Detail: fmt.Sprintf("want an object, got string %q", coll)}
	}
	if recordKey == "" {
		return coll, nil
	}

	m, ok := coll.(map[string]interface{})
	if !ok {
		return nil, &UnexpectedShapeError{Path: collectionKey, Detail: fmt.Sprintf("want an object, got %T", coll)}
	}
	records, ok := m[recordKey]
	if !ok {
		return nil, &UnexpectedShapeError{Path: joinPath(collectionKey, recordKey), Detail: fmt.Sprintf("key missing, collection has %v", keysOf(m))}
	}
	if empty, ok := isEmptyMarker(records); ok {
		if empty {
			return nil, nil
		}
		return nil, &UnexpectedShapeError{Path: joinPath(collectionKey, recordKey), Detail: fmt.Sprintf("want an object, got string %q", records)}
	}
	return records, nil
}

// isEmptyMarker reports whether v is one of the broker's empty-collection
// encodings. The second return distinguishes "this was a string" so callers
// can reject strings that are not the "null" marker.
func isEmptyMarker(v interface{}) (empty, isMarkerKind bool) {
	switch s := v.(type) {
	case nil:
		return true, true
	case string:
		return s == "null", true
	default:
		return false, false
	}
}

func flatten(m map[string]interface{}) Row {
	row := Row{}
	flattenInto(row, "", m)
	return row
}

func flattenInto(row Row, prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenInto(row, key, nested)
			continue
		}
		row[key] = v
	}
}

func keysOf(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(a, b string) string {
	if b == "" {
		return a
	}
	return a + "." + b
}
