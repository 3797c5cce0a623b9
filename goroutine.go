package orbit

import (
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// goid returns the current goroutine ID.
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	idField := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
	id, _ := strconv.ParseInt(idField, 10, 64)
	return id
}

// resolutionChains tracks, per goroutine, the types whose factories are
// currently running so that a factory resolving its own type is reported
// instead of recursing forever.
type resolutionChains struct {
	mu     sync.Mutex
	chains map[int64][]reflect.Type
}

func (r *resolutionChains) enter(t reflect.Type) error {
	id := goid()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chains == nil {
		r.chains = make(map[int64][]reflect.Type)
	}
	chain := r.chains[id]
	for _, seen := range chain {
		if seen == t {
			return &CircularDependencyError{Type: t.String(), Chain: chainString(append(chain, t))}
		}
	}
	r.chains[id] = append(chain, t)
	return nil
}

func (r *resolutionChains) leave(t reflect.Type) {
	id := goid()
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.chains[id]
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i] == t {
			chain = append(chain[:i], chain[i+1:]...)
			break
		}
	}
	if len(chain) == 0 {
		delete(r.chains, id)
		return
	}
	r.chains[id] = chain
}

func chainString(chain []reflect.Type) string {
	parts := make([]string, len(chain))
	for i, t := range chain {
		parts[i] = t.String()
	}
	return strings.Join(parts, " -> ")
}
