// SPDX-License-Identifier: MPL-2.0

package ops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
)

// Kind names one operation of the mutation protocol.
type Kind string

const (
	// Add appends a new element; duplicates are rejected.
	Add Kind = "add"
	// Change replaces a located element with another value.
	Change Kind = "change"
	// Rank moves a located element to a new index.
	Rank Kind = "rank"
	// Remove deletes a located element.
	Remove Kind = "remove"
	// ReplaceAll swaps the entire collection for a new one. Change operations
	// whose 'to' value decodes as a JSON array delegate here, so the historic
	// bulk-replace behavior stays observable under an explicit name.
	ReplaceAll Kind = "replaceAll"
)

// Operation is the tagged union applied to a scalar or array property.
type Operation struct {
	// Kind selects the operation.
	Kind Kind `json:"name"`
	// Target is the element (or element identifier) the operation acts on.
	// It may be JSON-string-encoded, in which case it is parsed first.
	Target json.RawMessage `json:"target,omitempty"`
	// To is the replacement value for change and replaceAll operations.
	To json.RawMessage `json:"to,omitempty"`
	// NewIndex is the destination position for rank operations.
	NewIndex int `json:"newIndex,omitempty"`
	// Replacement optionally substitutes the removed value in artifacts that
	// still reference it. The array handler itself ignores it; resource-level
	// cascades consume it.
	Replacement json.RawMessage `json:"replacementValue,omitempty"`
	// MappingTable carries cross-cutting state remapping for change
	// operations that swap one referenced resource for another, keyed by the
	// old value (for example workflow state names during a workflow swap).
	MappingTable map[string]string `json:"mappingTable,omitempty"`
}

// Apply executes op against items and returns the resulting collection. The
// input slice is never mutated. Identity resolution, duplicate rejection and
// bounds checks follow the protocol rules; any violation returns an error and
// leaves no partial result.
func Apply[T any](items []T, op Operation) ([]T, error) {
	switch op.Kind {
	case Add:
		return applyAdd(items, op)
	case Change:
		return applyChange(items, op)
	case Rank:
		return applyRank(items, op)
	case Remove:
		return applyRemove(items, op)
	case ReplaceAll:
		return applyReplaceAll[T](op.To)
	default:
		return nil, fmt.Errorf("unknown operation '%s'", op.Kind)
	}
}

// ApplyScalar executes op against a single scalar value. Only change
// operations are valid on scalars.
func ApplyScalar[T any](op Operation) (T, error) {
	var zero T
	if op.Kind != Change {
		return zero, fmt.Errorf("cannot perform operation '%s' on a scalar value", op.Kind)
	}
	raw := unwrapJSONString(op.To)
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, fmt.Errorf("invalid value for change operation: %w", err)
	}
	return value, nil
}

func applyAdd[T any](items []T, op Operation) ([]T, error) {
	raw := unwrapJSONString(op.Target)
	target, err := decodeAny(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid target for add operation: %w", err)
	}
	if len(matchIndexes(items, target)) > 0 {
		return nil, fmt.Errorf("target '%s' already exists in the collection", compactJSON(raw))
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("target does not match the element type: %w", err)
	}
	result := slices.Clone(items)
	return append(result, item), nil
}

func applyChange[T any](items []T, op Operation) ([]T, error) {
	toRaw := unwrapJSONString(op.To)
	if isJSONArray(toRaw) {
		return applyReplaceAll[T](op.To)
	}

	targetRaw := unwrapJSONString(op.Target)
	target, err := decodeAny(targetRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid target for change operation: %w", err)
	}
	matched := matchIndexes(items, target)
	if len(matched) == 0 {
		return nil, fmt.Errorf("cannot find target '%s' in the collection", compactJSON(targetRaw))
	}

	var to T
	if err := json.Unmarshal(toRaw, &to); err != nil {
		return nil, fmt.Errorf("'to' value does not match the element type: %w", err)
	}
	result := slices.Clone(items)
	for _, i := range matched {
		result[i] = to
	}
	// The replacement may be structurally identical to the original; treat a
	// no-op change as a resolution failure like the protocol demands.
	if reflect.DeepEqual(normalizeSlice(items), normalizeSlice(result)) {
		return nil, fmt.Errorf("cannot find target '%s' in the collection", compactJSON(targetRaw))
	}
	return result, nil
}

func applyRank[T any](items []T, op Operation) ([]T, error) {
	raw := unwrapJSONString(op.Target)
	target, err := decodeAny(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid target for rank operation: %w", err)
	}
	matched := matchIndexes(items, target)
	if len(matched) == 0 {
		return nil, fmt.Errorf("cannot find target '%s' in the collection", compactJSON(raw))
	}
	if op.NewIndex < 0 || op.NewIndex >= len(items) {
		return nil, fmt.Errorf("index %d is out of bounds [0, %d)", op.NewIndex, len(items))
	}
	from := matched[0]
	result := slices.Clone(items)
	moved := result[from]
	result = append(result[:from], result[from+1:]...)
	result = slices.Insert(result, op.NewIndex, moved)
	return result, nil
}

func applyRemove[T any](items []T, op Operation) ([]T, error) {
	raw := unwrapJSONString(op.Target)
	target, err := decodeAny(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid target for remove operation: %w", err)
	}
	matched := matchIndexes(items, target)
	if len(matched) == 0 {
		return nil, fmt.Errorf("cannot find target '%s' in the collection", compactJSON(raw))
	}
	result := make([]T, 0, len(items)-len(matched))
	for i, item := range items {
		if !slices.Contains(matched, i) {
			result = append(result, item)
		}
	}
	return result, nil
}

func applyReplaceAll[T any](to json.RawMessage) ([]T, error) {
	raw := unwrapJSONString(to)
	var replacement []T
	if err := json.Unmarshal(raw, &replacement); err != nil {
		return nil, fmt.Errorf("replacement collection does not match the element type: %w", err)
	}
	return replacement, nil
}

// matchIndexes resolves a target against the collection using three identity
// tiers: full structural equality, a name-only object matching an element's
// name, and a bare string matching an element's name. All comparisons happen
// in decoded-JSON space so struct element types and plain strings behave the
// same way.
func matchIndexes[T any](items []T, target any) []int {
	var matched []int
	for i, item := range items {
		if targetMatches(normalize(item), target) {
			matched = append(matched, i)
		}
	}
	return matched
}

func targetMatches(item, target any) bool {
	if reflect.DeepEqual(item, target) {
		return true
	}
	itemMap, itemIsMap := item.(map[string]any)
	switch t := target.(type) {
	case map[string]any:
		if itemIsMap && len(t) == 1 {
			if name, ok := t["name"]; ok {
				return reflect.DeepEqual(itemMap["name"], name)
			}
		}
	case string:
		if itemIsMap {
			return itemMap["name"] == t
		}
	}
	return false
}

// normalize round-trips a value through JSON so that typed elements compare
// against decoded operation targets.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	decoded, err := decodeAny(data)
	if err != nil {
		return v
	}
	return decoded
}

func normalizeSlice[T any](items []T) []any {
	result := make([]any, len(items))
	for i, item := range items {
		result[i] = normalize(item)
	}
	return result
}

// unwrapJSONString parses one level of JSON-string encoding: a raw value that
// is a JSON string whose contents are themselves valid JSON is replaced by
// that inner document. Anything else passes through untouched.
func unwrapJSONString(raw json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	inner := []byte(s)
	trimmed := bytes.TrimSpace(inner)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(inner) {
		return inner
	}
	return raw
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed)
}

func decodeAny(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
