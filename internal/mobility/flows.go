package mobility

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownFlow is returned when a flow key is not registered.
var ErrUnknownFlow = errors.New("unknown flow")

// Flow describes one mobility category and how its export is laid out.
type Flow struct {
	Key     string  // URL key: "learners"
	Label   string  // Display name: "Outgoing learner mobility"
	Slug    string  // File name prefix: "outgoing-learner-mobility"
	Variant Variant // Schema variant
	Columns Columns // Source column names; zero fields fall back to the variant defaults
	Order   int     // Tab position
}

var (
	registry   = make(map[string]Flow)
	registryMu sync.RWMutex
)

func init() {
	Register(Flow{Key: "learners", Label: "Outgoing learner mobility", Slug: "outgoing-learner-mobility", Variant: VariantOutgoing, Order: 1})
	Register(Flow{Key: "staff", Label: "Outgoing staff mobility", Slug: "outgoing-staff-mobility", Variant: VariantOutgoing, Order: 2})
	Register(Flow{Key: "collective", Label: "Collective mobility", Slug: "collective-mobility", Variant: VariantOutgoing, Order: 3})
	Register(Flow{Key: "incoming", Label: "Incoming mobility", Slug: "incoming-mobility", Variant: VariantIncoming, Order: 4})
}

// Register adds a flow to the registry.
// Panics if a flow with the same key is already registered.
func Register(f Flow) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[f.Key]; exists {
		panic(fmt.Sprintf("flow already registered: %s", f.Key))
	}

	f.Columns = mergeColumns(f.Columns, DefaultColumns(f.Variant))
	if f.Slug == "" {
		f.Slug = f.Key
	}

	registry[f.Key] = f
}

// mergeColumns fills empty overrides from the defaults.
func mergeColumns(override, def Columns) Columns {
	if override.Country == "" {
		override.Country = def.Country
	}
	if override.Region == "" {
		override.Region = def.Region
	}
	if override.Date == "" {
		override.Date = def.Date
	}
	if override.Institution == "" {
		override.Institution = def.Institution
	}
	if override.Applicant == "" {
		override.Applicant = def.Applicant
	}
	return override
}

// LookupFlow returns a flow by key.
func LookupFlow(key string) (Flow, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	f, ok := registry[key]
	if !ok {
		return Flow{}, fmt.Errorf("%w: %q", ErrUnknownFlow, key)
	}
	return f, nil
}

// Flows returns all registered flows in tab order.
func Flows() []Flow {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Flow, 0, len(registry))
	for _, f := range registry {
		result = append(result, f)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// unregister removes a flow. Used by tests that register temporary flows.
func unregister(key string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, key)
}
