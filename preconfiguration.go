package cleanioc

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// PreConfiguration runs a side-effecting function before the first
// instance of a matching service type is activated. It runs at most
// once, no matter how many matching registrations build afterwards.
type PreConfiguration struct {
	ServiceType    reflect.Type
	Implementation any

	creator           *activator
	filter            RegistrationFilter
	continueOnFailure bool
	mu                sync.Mutex
	hasRun            atomic.Bool
}

// HasRun reports whether the pre-configuration already executed.
func (p *PreConfiguration) HasRun() bool {
	return p.hasRun.Load()
}

func (p *PreConfiguration) matches(r *Registration) bool {
	if p.hasRun.Load() {
		return false
	}

	if p.filter != nil && !p.filter(r) {
		return false
	}

	return true
}

// run executes the configuration function with its own dependencies
// resolved in the current call. Failures abort the triggering build
// unless the pre-configuration opted into continuing on failure, in
// which case the failure is logged and the pre-configuration is still
// marked as ran. Concurrent first builds serialize here: the loser of
// the race re-checks hasRun under the lock and skips.
func (p *PreConfiguration) run(ctx context.Context, rctx *resolvingContext, serviceNode *Node) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasRun.Load() {
		return nil
	}

	node := newNode(p.ServiceType, p.Implementation, Singleton)
	serviceNode.AddPreConfiguration(node)

	if _, err := p.creator.create(ctx, rctx, node, nil); err != nil {
		if !p.continueOnFailure {
			return err
		}

		rctx.log().Error(
			"pre-configuration failed",
			"serviceType", typeName(p.ServiceType),
			"error", err,
		)
	}

	p.hasRun.Store(true)

	return nil
}
