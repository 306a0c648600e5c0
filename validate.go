package weave

import (
	"fmt"
	"reflect"
)

// Validate provides initialization-time type safety: it checks a flow's
// declared state/action types against the part it is meant to drive, and
// re-walks the tree's shape invariants, before anything is mounted. Parts or
// flows without type information are skipped but their structure is still
// validated.
func Validate(p Part, f Flow) error {
	if err := validateShape(p, nil); err != nil {
		return err
	}
	if ft, pt := f.StateType(), p.StateType(); ft != nil && pt != nil {
		if !isTypeCompatible(ft, pt) {
			return fmt.Errorf("%w: flow produces state %v but part %s expects %v",
				ErrTypeMismatch, ft, p.variant(), pt)
		}
	}
	if ft, pt := f.ActionType(), p.ActionType(); ft != nil && pt != nil {
		if !isTypeCompatible(pt, ft) {
			return fmt.Errorf("%w: part %s emits action %v but flow expects %v",
				ErrTypeMismatch, p.variant(), pt, ft)
		}
	}
	return nil
}

func validateShape(p Part, path []string) error {
	switch v := p.(type) {
	case *Node, *Grid:
		return nil
	case *Composite:
		if len(v.grid.slots) != 1 || !isNone(v.grid.state) || !isNone(v.grid.action) {
			return fmt.Errorf("%w: composite grid %q at %v must be single-slot and stateless",
				ErrShape, v.grid.name, path)
		}
		return validateShape(v.child, path)
	case *Knot:
		slots := make(map[string]bool, len(v.grid.slots))
		for _, s := range v.grid.slots {
			slots[s] = true
		}
		for key, child := range v.children {
			if !slots[key] {
				return fmt.Errorf("%w: knot child %q at %v has no slot", ErrShape, key, path)
			}
			if err := validateShape(child, append(path, key)); err != nil {
				return err
			}
		}
		if len(v.children) != len(v.grid.slots) {
			return fmt.Errorf("%w: knot at %v fills %d of %d slots",
				ErrShape, path, len(v.children), len(v.grid.slots))
		}
		return nil
	case *List:
		return validateShape(v.of, path)
	case *Union:
		for key, member := range v.members {
			if err := validateShape(member, append(path, key)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown part %T at %v", ErrUnsupportedVariant, p, path)
	}
}

// isTypeCompatible checks whether a produced type can serve where the
// expected type is consumed, handling interface satisfaction and type
// identity.
func isTypeCompatible(produced, expected reflect.Type) bool {
	if produced == expected {
		return true
	}
	if expected.Kind() == reflect.Interface {
		return produced.Implements(expected)
	}
	if produced.Kind() == reflect.Interface && expected.Kind() == reflect.Interface {
		return true
	}
	return produced.AssignableTo(expected)
}
