package flow

import (
	"strconv"
	"sync"
	"testing"

	"github.com/vnykmshr/liveflow/internal/testutil"
)

// track wires a recorder into Effects hooks, pairing each observed add
// with its recorded terminator.
func track[T comparable](rec *testutil.Recorder[T]) (onAdded, onRemoved func(T)) {
	var mu sync.Mutex
	terms := map[T][]func(){}

	onAdded = func(v T) {
		t := rec.Add(v)
		mu.Lock()
		terms[v] = append(terms[v], t)
		mu.Unlock()
	}
	onRemoved = func(v T) {
		mu.Lock()
		l := terms[v]
		t := l[len(l)-1]
		terms[v] = l[:len(l)-1]
		mu.Unlock()
		t()
	}
	return onAdded, onRemoved
}

func TestMapTransformsValues(t *testing.T) {
	probe := NewProbe[int]()
	rec := testutil.NewRecorder[string]()
	onAdded, onRemoved := track(rec)

	res := Map(probe.Flow(), strconv.Itoa).
		Effects(onAdded, onRemoved).
		Run(NewContext(nil), nil)
	defer res.Close()

	probe.Inject(1)
	sent := probe.Inject(2)

	added := rec.Added()
	testutil.AssertEqual(t, len(added), 2)
	testutil.AssertEqual(t, added[0], "1")
	testutil.AssertEqual(t, added[1], "2")

	// Retracting an upstream add terminates its mapped value, nothing else.
	sent.Terminate()
	terminated := rec.Terminated()
	testutil.AssertEqual(t, len(terminated), 1)
	testutil.AssertEqual(t, terminated[0], "2")
}

func TestFilterPropagatesOnlyMatching(t *testing.T) {
	probe := NewProbe[int]()
	rec := testutil.NewRecorder[int]()
	onAdded, onRemoved := track(rec)

	isEven := func(v int) bool { return v%2 == 0 }
	res := probe.Flow().Filter(isEven).
		Effects(onAdded, onRemoved).
		Run(NewContext(nil), nil)
	defer res.Close()

	sents := make(map[int]SentEvent[int])
	for _, v := range []int{1, 2, 3, 4} {
		sents[v] = probe.Inject(v)
	}

	added := rec.Added()
	testutil.AssertEqual(t, len(added), 2)
	testutil.AssertEqual(t, added[0], 2)
	testutil.AssertEqual(t, added[1], 4)

	// Removing 2 triggers exactly one terminate and leaves 4 untouched.
	sents[2].Terminate()
	terminated := rec.Terminated()
	testutil.AssertEqual(t, len(terminated), 1)
	testutil.AssertEqual(t, terminated[0], 2)

	live := rec.Live()
	testutil.AssertEqual(t, len(live), 1)
	testutil.AssertEqual(t, live[4], 1)
}

func TestEffectsOrdering(t *testing.T) {
	probe := NewProbe[int]()
	var order []string

	res := probe.Flow().
		Effects(func(int) { order = append(order, "outer-add") }, func(int) { order = append(order, "outer-remove") }).
		Effects(func(int) { order = append(order, "inner-add") }, func(int) { order = append(order, "inner-remove") }).
		Run(NewContext(nil), nil)
	defer res.Close()

	sent := probe.Inject(1)
	sent.Terminate()

	// onAdded runs source-to-sink before forwarding; teardown unwinds in
	// the same order because each stage fires its own hook before
	// delegating to the downstream terminator.
	want := []string{"outer-add", "inner-add", "outer-remove", "inner-remove"}
	testutil.AssertEqual(t, len(order), len(want))
	for i := range want {
		testutil.AssertEqual(t, order[i], want[i])
	}
}

func TestForeachBalancesAddsAndRemoves(t *testing.T) {
	probe := NewProbe[string]()
	rec := testutil.NewRecorder[string]()
	onAdded, onRemoved := track(rec)

	res := probe.Flow().Foreach(onAdded, onRemoved).Run(NewContext(nil), nil)

	probe.Inject("a")
	probe.Inject("b")
	testutil.AssertNoError(t, res.Close())

	added, terminated := rec.Counts()
	testutil.AssertEqual(t, added, 2)
	testutil.AssertEqual(t, terminated, 2)
}

func TestFlatMapNestedTeardown(t *testing.T) {
	probe := NewProbe[int]()
	recs := []*testutil.Recorder[int]{
		testutil.NewRecorder[int](),
		testutil.NewRecorder[int](),
		testutil.NewRecorder[int](),
	}

	nest := func(rec *testutil.Recorder[int]) func(int) Flow[int] {
		onAdded, onRemoved := track(rec)
		return func(v int) Flow[int] {
			return Just(v).Effects(onAdded, onRemoved)
		}
	}

	// Three nested levels: every add at every level must be terminated
	// transitively when the pipeline closes.
	pipeline := FlatMap(FlatMap(FlatMap(probe.Flow(), nest(recs[0])), nest(recs[1])), nest(recs[2]))
	res := pipeline.Run(NewContext(nil), nil)

	probe.Inject(1)
	probe.Inject(2)

	for _, rec := range recs {
		added, terminated := rec.Counts()
		testutil.AssertEqual(t, added, 2)
		testutil.AssertEqual(t, terminated, 0)
	}

	testutil.AssertNoError(t, res.Close())

	for _, rec := range recs {
		added, terminated := rec.Counts()
		testutil.AssertEqual(t, added, 2)
		testutil.AssertEqual(t, terminated, 2)
		testutil.AssertEqual(t, len(rec.Live()), 0)
	}
}

func TestFlatMapRetractionTearsDownNested(t *testing.T) {
	probe := NewProbe[int]()
	rec := testutil.NewRecorder[int]()
	onAdded, onRemoved := track(rec)

	res := FlatMap(probe.Flow(), func(v int) Flow[int] {
		return Just(v * 10).Effects(onAdded, onRemoved)
	}).Run(NewContext(nil), nil)
	defer res.Close()

	s1 := probe.Inject(1)
	probe.Inject(2)

	s1.Terminate()

	terminated := rec.Terminated()
	testutil.AssertEqual(t, len(terminated), 1)
	testutil.AssertEqual(t, terminated[0], 10)

	live := rec.Live()
	testutil.AssertEqual(t, live[20], 1)
}

func TestThenSequences(t *testing.T) {
	probe := NewProbe[int]()
	rec := testutil.NewRecorder[string]()
	onAdded, onRemoved := track(rec)

	res := Then(probe.Flow(), Just("ready")).
		Effects(onAdded, onRemoved).
		Run(NewContext(nil), nil)
	defer res.Close()

	probe.Inject(1)
	probe.Inject(2)

	added := rec.Added()
	testutil.AssertEqual(t, len(added), 2)
	testutil.AssertEqual(t, added[0], "ready")
	testutil.AssertEqual(t, added[1], "ready")
}

func TestJustEmitsOnStartOnly(t *testing.T) {
	rec := testutil.NewRecorder[int]()
	onAdded, onRemoved := track(rec)

	handle := Just(42).Effects(onAdded, onRemoved).
		run(NewContext(nil), func(int) Terminator { return func() {} })

	added, _ := rec.Counts()
	testutil.AssertEqual(t, added, 0) // wiring must not emit

	handle.Start()
	added, _ = rec.Counts()
	testutil.AssertEqual(t, added, 1)

	testutil.AssertNoError(t, handle.Close())
	_, terminated := rec.Counts()
	testutil.AssertEqual(t, terminated, 1)
}

func TestNothingEmitsNothing(t *testing.T) {
	rec := testutil.NewRecorder[int]()
	onAdded, onRemoved := track(rec)

	res := Nothing[int]().Effects(onAdded, onRemoved).Run(NewContext(nil), nil)

	added, _ := rec.Counts()
	testutil.AssertEqual(t, added, 0)
	testutil.AssertNoError(t, res.Close())
}

func TestRerunIsolation(t *testing.T) {
	// The same Flow value run twice yields isolated instances.
	rec1 := testutil.NewRecorder[int]()
	rec2 := testutil.NewRecorder[int]()
	add1, rem1 := track(rec1)
	add2, rem2 := track(rec2)

	f := Just(7)
	r1 := f.Effects(add1, rem1).Run(NewContext(nil), nil)
	r2 := f.Effects(add2, rem2).Run(NewContext(nil), nil)

	testutil.AssertNoError(t, r1.Close())

	added2, terminated2 := rec2.Counts()
	testutil.AssertEqual(t, added2, 1)
	testutil.AssertEqual(t, terminated2, 0)
	testutil.AssertNoError(t, r2.Close())
}

func TestIgnoreKeepsTiming(t *testing.T) {
	probe := NewProbe[int]()
	var adds, removes int

	res := Ignore(probe.Flow()).
		Effects(func(struct{}) { adds++ }, func(struct{}) { removes++ }).
		Run(NewContext(nil), nil)

	probe.Inject(1)
	sent := probe.Inject(2)
	sent.Terminate()

	testutil.AssertEqual(t, adds, 2)
	testutil.AssertEqual(t, removes, 1)

	testutil.AssertNoError(t, res.Close())
	testutil.AssertEqual(t, removes, 2)
}
