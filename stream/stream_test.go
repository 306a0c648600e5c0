package stream_test

import (
	"errors"
	"testing"
	"time"

	"github.com/weaveui/weave/stream"
)

func collect[T any](src stream.Observable[T]) (values []T, completed bool, failed error) {
	src.Subscribe(stream.Observer[T]{
		Next:     func(v T) { values = append(values, v) },
		Err:      func(err error) { failed = err },
		Complete: func() { completed = true },
	})
	return values, completed, failed
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name string
		src  stream.Observable[int]
		want []int
	}{
		{
			name: "map",
			src:  stream.Map(stream.Of(1, 2, 3), func(n int) int { return n * 2 }),
			want: []int{2, 4, 6},
		},
		{
			name: "filter",
			src:  stream.Filter(stream.Of(1, 2, 3, 4), func(n int) bool { return n%2 == 0 }),
			want: []int{2, 4},
		},
		{
			name: "scan does not emit seed",
			src:  stream.Scan(stream.Of(1, 2, 3), 10, func(acc, n int) int { return acc + n }),
			want: []int{11, 13, 16},
		},
		{
			name: "start with",
			src:  stream.StartWith(stream.Of(2, 3), 1),
			want: []int{1, 2, 3},
		},
		{
			name: "take",
			src:  stream.Take(stream.Of(1, 2, 3, 4), 2),
			want: []int{1, 2},
		},
		{
			name: "distinct until changed",
			src: stream.DistinctUntilChanged(stream.Of(1, 1, 2, 2, 1), func(a, b int) bool {
				return a == b
			}),
			want: []int{1, 2, 1},
		},
		{
			name: "merge completes with all inputs",
			src:  stream.Merge(stream.Of(1), stream.Of(2)),
			want: []int{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, completed, failed := collect(tt.src)
			if failed != nil {
				t.Fatalf("unexpected error: %v", failed)
			}
			if !completed {
				t.Fatal("expected completion")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSubjectMulticastOrder(t *testing.T) {
	s := stream.NewSubject[int]()
	var seen []int
	s.Observe().Each(func(v int) { seen = append(seen, v*10) })
	s.Observe().Each(func(v int) { seen = append(seen, v*100) })

	s.Next(1)
	s.Next(2)

	want := []int{10, 100, 20, 200}
	if len(seen) != len(want) {
		t.Fatalf("seen %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen %v, want %v", seen, want)
		}
	}
}

func TestSubjectUnsubscribeStopsDelivery(t *testing.T) {
	s := stream.NewSubject[int]()
	count := 0
	sub := s.Observe().Each(func(int) { count++ })
	s.Next(1)
	sub.Unsubscribe()
	s.Next(2)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestBehaviorReplaysLatest(t *testing.T) {
	b := stream.NewBehavior(1)
	b.Next(2)

	var seen []int
	b.Observe().Each(func(v int) { seen = append(seen, v) })
	b.Next(3)

	if len(seen) != 2 || seen[0] != 2 || seen[1] != 3 {
		t.Fatalf("seen %v, want [2 3]", seen)
	}
}

func TestShareRefCount(t *testing.T) {
	subscribes := 0
	unsubscribes := 0
	src := stream.Observable[int](func(obs stream.Observer[int]) stream.Subscription {
		subscribes++
		obs.Next(subscribes * 100)
		return stream.NewSubscription(func() { unsubscribes++ })
	})
	shared := stream.Share(src)

	var a, b []int
	subA := shared.Subscribe(stream.Observer[int]{Next: func(v int) { a = append(a, v) }})
	subB := shared.Subscribe(stream.Observer[int]{Next: func(v int) { b = append(b, v) }})

	if subscribes != 1 {
		t.Fatalf("source subscribed %d times, want 1", subscribes)
	}
	// late subscriber gets the retained value
	if len(b) != 1 || b[0] != 100 {
		t.Fatalf("late subscriber saw %v, want [100]", b)
	}

	subA.Unsubscribe()
	if unsubscribes != 0 {
		t.Fatal("source released while a subscriber remains")
	}
	subB.Unsubscribe()
	if unsubscribes != 1 {
		t.Fatalf("source unsubscribed %d times, want 1", unsubscribes)
	}

	// remount: buffer must be gone, source re-subscribed fresh
	var c []int
	subC := shared.Subscribe(stream.Observer[int]{Next: func(v int) { c = append(c, v) }})
	defer subC.Unsubscribe()
	if subscribes != 2 {
		t.Fatalf("source subscribed %d times after remount, want 2", subscribes)
	}
	if len(c) != 1 || c[0] != 200 {
		t.Fatalf("remount saw %v, want only the fresh value [200]", c)
	}
}

func TestSwitchMapReplacesInner(t *testing.T) {
	outer := stream.NewSubject[int]()
	inners := map[int]*stream.Subject[string]{
		1: stream.NewSubject[string](),
		2: stream.NewSubject[string](),
	}
	var seen []string
	sub := stream.SwitchMap(outer.Observe(), func(k int) stream.Observable[string] {
		return inners[k].Observe()
	}).Each(func(v string) { seen = append(seen, v) })
	defer sub.Unsubscribe()

	outer.Next(1)
	inners[1].Next("a1")
	outer.Next(2)
	inners[1].Next("a2") // stale inner, must be dropped
	inners[2].Next("b1")

	if len(seen) != 2 || seen[0] != "a1" || seen[1] != "b1" {
		t.Fatalf("seen %v, want [a1 b1]", seen)
	}
}

func TestCombineLatestMapGating(t *testing.T) {
	a := stream.NewSubject[int]()
	b := stream.NewSubject[int]()
	var snaps []map[string]int
	sub := stream.CombineLatestMap(map[string]stream.Observable[int]{
		"a": a.Observe(),
		"b": b.Observe(),
	}).Each(func(m map[string]int) { snaps = append(snaps, m) })
	defer sub.Unsubscribe()

	a.Next(1)
	if len(snaps) != 0 {
		t.Fatal("emitted before all keys produced a value")
	}
	b.Next(10)
	a.Next(2)

	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	if snaps[0]["a"] != 1 || snaps[0]["b"] != 10 {
		t.Fatalf("first snapshot %v", snaps[0])
	}
	if snaps[1]["a"] != 2 || snaps[1]["b"] != 10 {
		t.Fatalf("second snapshot %v", snaps[1])
	}
}

func TestErrorPropagation(t *testing.T) {
	boom := errors.New("boom")
	src := stream.Merge(stream.Of(1), stream.Fail[int](boom))
	_, completed, failed := collect(src)
	if completed {
		t.Fatal("completed after error")
	}
	if !errors.Is(failed, boom) {
		t.Fatalf("failed = %v, want boom", failed)
	}
}

func TestDebounceVirtualTime(t *testing.T) {
	clock := stream.NewVirtualClock()
	src := stream.NewSubject[int]()
	var seen []int
	sub := stream.Debounce(src.Observe(), clock, 100*time.Millisecond).
		Each(func(v int) { seen = append(seen, v) })
	defer sub.Unsubscribe()

	src.Next(1)
	clock.Advance(50 * time.Millisecond)
	src.Next(2) // resets the window
	clock.Advance(99 * time.Millisecond)
	if len(seen) != 0 {
		t.Fatalf("emitted early: %v", seen)
	}
	clock.Advance(1 * time.Millisecond)
	if len(seen) != 1 || seen[0] != 2 {
		t.Fatalf("seen %v, want [2]", seen)
	}
}

func TestDelayPreservesOrder(t *testing.T) {
	clock := stream.NewVirtualClock()
	src := stream.NewSubject[int]()
	var seen []int
	completed := false
	sub := stream.Delay(src.Observe(), clock, 10*time.Millisecond).Subscribe(stream.Observer[int]{
		Next:     func(v int) { seen = append(seen, v) },
		Complete: func() { completed = true },
	})
	defer sub.Unsubscribe()

	src.Next(1)
	src.Next(2)
	src.Complete()
	if len(seen) != 0 {
		t.Fatal("delayed values arrived immediately")
	}
	clock.Advance(10 * time.Millisecond)
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("seen %v, want [1 2]", seen)
	}
	if !completed {
		t.Fatal("completion was not delayed through")
	}
}
