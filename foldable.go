package weave

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Foldable describes how to traverse a collection by index: which keys it
// currently holds, in what order, and the value at each key. It is the
// strategy a List part (and internally a Knot's child record) uses to
// project per-key reactive sub-streams out of a snapshot.
type Foldable interface {
	// Keys returns the collection's current keys in traversal order.
	Keys(collection any) ([]string, error)

	// Value returns the element at key.
	Value(collection any, key string) (any, bool)
}

// SliceFold traverses a slice or array; keys are decimal indices.
var SliceFold Foldable = sliceFold{}

// MapFold traverses a string-keyed map in sorted key order.
var MapFold Foldable = mapFold{}

type sliceFold struct{}

func (sliceFold) Keys(collection any) ([]string, error) {
	if collection == nil {
		return nil, nil
	}
	v := reflect.ValueOf(collection)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: slice strategy got %T", ErrInvalidState, collection)
	}
	keys := make([]string, v.Len())
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys, nil
}

func (sliceFold) Value(collection any, key string) (any, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || collection == nil {
		return nil, false
	}
	v := reflect.ValueOf(collection)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}
	if i < 0 || i >= v.Len() {
		return nil, false
	}
	return v.Index(i).Interface(), true
}

type mapFold struct{}

func (mapFold) Keys(collection any) ([]string, error) {
	if collection == nil {
		return nil, nil
	}
	v := reflect.ValueOf(collection)
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: map strategy got %T", ErrInvalidState, collection)
	}
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys, nil
}

func (mapFold) Value(collection any, key string) (any, bool) {
	if collection == nil {
		return nil, false
	}
	v := reflect.ValueOf(collection)
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	mv := v.MapIndex(reflect.ValueOf(key))
	if !mv.IsValid() {
		return nil, false
	}
	return mv.Interface(), true
}

// recordFold traverses a fixed record shape: a known key set over a
// map[string]any snapshot. Keys absent from the snapshot are skipped, so a
// child that contributes no state needs no placeholder entry.
type recordFold struct {
	keys []string
}

func (r recordFold) Keys(collection any) ([]string, error) {
	m, err := asStateMap(collection)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(r.keys))
	for _, k := range r.keys {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (r recordFold) Value(collection any, key string) (any, bool) {
	m, err := asStateMap(collection)
	if err != nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

func asStateMap(collection any) (map[string]any, error) {
	if collection == nil {
		return nil, nil
	}
	m, ok := collection.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: record strategy expected map[string]any, got %T", ErrInvalidState, collection)
	}
	return m, nil
}
