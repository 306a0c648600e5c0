package weave_test

import (
	"errors"
	"testing"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/stream"
)

type groupLog struct {
	tag string
	*cellLog
}

func collectGroups(src stream.Observable[any], tag string) (*[]*groupLog, stream.Subscription) {
	logs := &[]*groupLog{}
	sub := weave.GroupByTag(src, tag).Subscribe(stream.Observer[weave.Group]{
		Next: func(g weave.Group) {
			*logs = append(*logs, &groupLog{tag: g.Tag, cellLog: watch(g.Values)})
		},
	})
	return logs, sub
}

func TestGroupByTag(t *testing.T) {
	src := stream.NewSubject[any]()
	logs, _ := collectGroups(src.Observe(), "kind")

	ev := func(kind string, n int) map[string]any {
		return map[string]any{"kind": kind, "n": n}
	}

	// A, A, B, A: the same discriminant reappearing opens a NEW group
	src.Next(ev("A", 1))
	src.Next(ev("A", 2))
	src.Next(ev("B", 3))
	src.Next(ev("A", 4))

	groups := *logs
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	wantTags := []string{"A", "B", "A"}
	for i, g := range groups {
		if g.tag != wantTags[i] {
			t.Fatalf("group %d tag = %q, want %q", i, g.tag, wantTags[i])
		}
	}

	if len(groups[0].values) != 2 {
		t.Fatalf("first group values = %v, want the seed plus one follow-up", groups[0].values)
	}
	if !groups[0].complete || !groups[1].complete {
		t.Fatal("superseded groups must complete when the discriminant changes")
	}
	if groups[2].complete {
		t.Fatal("active group completed prematurely")
	}
	if n := groups[2].values[0].(map[string]any)["n"]; n != 4 {
		t.Fatalf("third group seed n = %v, want 4", n)
	}

	src.Complete()
	if !groups[2].complete {
		t.Fatal("active group not completed on upstream completion")
	}
}

func TestGroupByTagStructField(t *testing.T) {
	type event struct {
		Kind string
		N    int
	}
	src := stream.NewSubject[any]()
	logs, _ := collectGroups(src.Observe(), "Kind")

	src.Next(event{Kind: "on", N: 1})
	src.Next(&event{Kind: "off", N: 2})

	groups := *logs
	if len(groups) != 2 || groups[0].tag != "on" || groups[1].tag != "off" {
		t.Fatalf("groups = %v", groups)
	}
}

func TestGroupByTagMissingTag(t *testing.T) {
	src := stream.NewSubject[any]()
	var gotErr error
	var seeded *cellLog
	weave.GroupByTag(src.Observe(), "kind").Subscribe(stream.Observer[weave.Group]{
		Next: func(g weave.Group) { seeded = watch(g.Values) },
		Err:  func(err error) { gotErr = err },
	})

	src.Next(map[string]any{"kind": "A"})
	src.Next(map[string]any{"other": true})

	if !errors.Is(gotErr, weave.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", gotErr)
	}
	if seeded == nil || seeded.complete || seeded.err == nil {
		t.Fatal("expected the open group to fail, not complete")
	}
}

func TestGroupByTagUnsubscribeCompletesActiveGroup(t *testing.T) {
	src := stream.NewSubject[any]()
	logs, sub := collectGroups(src.Observe(), "kind")

	src.Next(map[string]any{"kind": "A"})
	sub.Unsubscribe()

	groups := *logs
	if len(groups) != 1 || !groups[0].complete {
		t.Fatal("active group must complete when the outer subscription is dropped")
	}
	src.Next(map[string]any{"kind": "B"})
	if len(*logs) != 1 {
		t.Fatal("group emitted after unsubscribe")
	}
}
