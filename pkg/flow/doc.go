/*
Package flow implements declarative dataflow pipelines over resources that
appear and disappear at arbitrary times.

A Flow[T] is an inert description of a stage. Combinators (Map, Filter,
FlatMap, Effects, ApplyTo, Route) compose flows lazily; nothing happens
until the flow is run against a Context and the returned Result is
started. From then on, add and remove notifications propagate
synchronously, on the goroutine that delivered them, from the source
through the composed stages to the final consumer.

Every propagated add is balanced by exactly one termination: either its
upstream retracts it, or the pipeline is closed. Closing is idempotent,
safe during in-flight propagation, and drains every outstanding
terminator before returning.

Example:

	probe := flow.NewProbe[int]()
	evens := probe.Flow().Filter(func(v int) bool { return v%2 == 0 })

	res := flow.Map(evens, strconv.Itoa).Run(ctx, func(s string) {
		fmt.Println("live:", s)
	})
	defer res.Close()

	sent := probe.Inject(2) // prints "live: 2"
	sent.Terminate()        // retracts it

Registry-backed pipelines use Entries to subscribe to the external
resource registry:

	cfgs := flow.Entries("(&(type=endpoint)(region=eu-*))")
*/
package flow
