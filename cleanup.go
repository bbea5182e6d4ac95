package cleanioc

// Cleanup releases whatever a constructor acquired. Constructors of
// the form func(deps...) (T, Cleanup, error) hand one back; the scope
// (or container, for singletons) that cached the instance runs it on
// Close, in reverse creation order.
type Cleanup func()

// CallWithRecovery runs the cleanup and turns a panic into a log entry
// so one failing finalizer cannot stop the rest of the unwind.
func (fn Cleanup) CallWithRecovery(lifespan Lifespan) {
	defer func() {
		if rp := recover(); rp != nil {
			logger().Error(
				"recovered from panic during cleanup",
				"lifespan", lifespan.String(),
				"panic", rp,
			)
		}
	}()

	fn()
}

// runCleanups unwinds a finalizer stack in reverse creation order.
func runCleanups(cleanups []Cleanup, lifespan Lifespan) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i].CallWithRecovery(lifespan)
	}
}
