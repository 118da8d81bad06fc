// Package alarm is a cooperative, polling-based alarm registry.
//
// A Registry owns a fixed number of slots (Capacity). Each allocated slot
// carries a parsed cron expression, a callback and its next trigger time.
// The host drives everything by calling Service once per iteration of its own
// loop (or BlockingServiceFor when it has no loop of its own):
//
//	reg := alarm.New(alarm.WithLogger(log))
//	id, err := reg.Create("0 */5 * * * *", func() { ... }, false)
//	for {
//		reg.Service()
//		...
//	}
//
// Service walks the slots once, in index order, and fires every enabled slot
// whose next trigger has passed. The slot is freed (one-shot) or advanced
// before its callback runs, so a callback sees the post-firing state of its
// own slot and may freely call back into the registry.
//
// A Registry is not safe for concurrent use. All calls must come from the
// goroutine that owns it; nested Service calls from a callback are ignored.
package alarm
