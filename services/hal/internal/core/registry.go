package core

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// builders maps a device type to its Builder. Device packages register
// from init.
var builders struct {
	sync.RWMutex
	m map[string]Builder
}

// RegisterBuilder panics on a duplicate type.
func RegisterBuilder(typ string, b Builder) {
	builders.Lock()
	defer builders.Unlock()
	if builders.m == nil {
		builders.m = map[string]Builder{}
	}
	if _, dup := builders.m[typ]; dup {
		panic("duplicate device builder: " + typ)
	}
	builders.m[typ] = b
}

func lookupBuilder(typ string) (Builder, bool) {
	builders.RLock()
	defer builders.RUnlock()
	b, ok := builders.m[typ]
	return b, ok
}

// BuilderTypes returns the registered device types, sorted.
func BuilderTypes() []string {
	builders.RLock()
	out := make([]string, 0, len(builders.m))
	for k := range builders.m {
		out = append(out, k)
	}
	builders.RUnlock()
	slices.Sort(out)
	return out
}

func unknownTypeMsg(typ string) string {
	return "no builder for type " + typ + " (have " + strings.Join(BuilderTypes(), ", ") + ")"
}
