package weave

import (
	"fmt"
	"reflect"

	"github.com/weaveui/weave/stream"
)

// Group is one run of consecutive values sharing a discriminant. Values
// replays the latest value to a late subscriber and then follows every
// subsequent value with the same discriminant, completing when the
// discriminant changes.
type Group struct {
	Tag    string
	Values stream.Observable[any]
}

// GroupByTag splits a stream of discriminated values into groups keyed by
// the named tag field. A new group starts whenever the discriminant changes,
// seeded with the triggering value; the previous group's sub-stream is
// completed at that instant. Upstream completion or failure terminates the
// active group first, then the outer stream.
func GroupByTag(src stream.Observable[any], tag string) stream.Observable[Group] {
	return func(obs stream.Observer[Group]) stream.Subscription {
		var current *stream.Subject[any]
		currentTag := ""

		sub := src.Subscribe(stream.Observer[any]{
			Next: func(v any) {
				t, err := tagValue(v, tag)
				if err != nil {
					if current != nil {
						current.Error(err)
						current = nil
					}
					obs.Err(err)
					return
				}
				if current != nil && t == currentTag {
					current.Next(v)
					return
				}
				if current != nil {
					current.Complete()
				}
				current = stream.NewBehavior(v)
				currentTag = t
				obs.Next(Group{Tag: t, Values: current.Observe()})
			},
			Err: func(err error) {
				if current != nil {
					current.Error(err)
					current = nil
				}
				obs.Err(err)
			},
			Complete: func() {
				if current != nil {
					current.Complete()
					current = nil
				}
				obs.Complete()
			},
		})
		return stream.NewSubscription(func() {
			sub.Unsubscribe()
			if current != nil {
				current.Complete()
			}
		})
	}
}

// tagValue extracts the discriminant from a map[string]any entry or an
// exported struct field, rendered as a string.
func tagValue(v any, tag string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: nil value has no tag %q", ErrInvalidState, tag)
	}
	if m, ok := v.(map[string]any); ok {
		t, ok := m[tag]
		if !ok {
			return "", fmt.Errorf("%w: value has no tag %q", ErrInvalidState, tag)
		}
		return formatTag(t), nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", fmt.Errorf("%w: nil value has no tag %q", ErrInvalidState, tag)
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		f := rv.FieldByName(tag)
		if f.IsValid() {
			return formatTag(f.Interface()), nil
		}
	}
	return "", fmt.Errorf("%w: %T has no tag %q", ErrInvalidState, v, tag)
}

func formatTag(t any) string {
	if s, ok := t.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", t)
}
