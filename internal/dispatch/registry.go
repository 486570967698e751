package dispatch

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cleodev/cleo/internal/cerrors"
)

// Registry holds every registered Handler, keyed by its Operation's full
// name. Grounded on agents/provider/factory.go's Register/Get pattern.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]registeredHandler
}

type registeredHandler struct {
	op      Operation
	handler Handler
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]registeredHandler{}}
}

// Register adds h under op. Panics on a duplicate registration — that is
// a wiring bug caught at startup, not a runtime condition to recover
// from.
func (r *Registry) Register(op Operation, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := op.FullName()
	if _, exists := r.handlers[key]; exists {
		panic(fmt.Sprintf("dispatch: duplicate handler registration for %q", key))
	}
	r.handlers[key] = registeredHandler{op: op, handler: h}
}

// Resolve looks up the handler for domain.operation.
func (r *Registry) Resolve(domain Domain, operation string) (Operation, Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := string(domain) + "." + operation
	rh, ok := r.handlers[key]
	if !ok {
		return Operation{}, nil, cerrors.New(cerrors.CodeNoHandler, "no handler registered for "+key)
	}
	return rh.op, rh.handler, nil
}

// Operations lists every registered operation's full name, sorted, for
// introspection (e.g. a CLI "help" verb).
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
