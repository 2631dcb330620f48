package adapters

import (
	"fmt"
	"sort"
	"strings"

	"retail-extractor/internal/types"
)

var constructors = map[string]func(types.Logger) types.SiteAdapter{
	"gigatron":    func(l types.Logger) types.SiteAdapter { return NewGigatronAdapter(l) },
	"tehnomanija": func(l types.Logger) types.SiteAdapter { return NewTehnomanijaAdapter(l) },
}

// Sites lists the supported site names
func Sites() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForSite returns the adapter for a site name. Host names such as
// "www.gigatron.rs" are accepted too.
func ForSite(name string, logger types.Logger) (types.SiteAdapter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "www.")
	key = strings.TrimSuffix(key, ".rs")

	ctor, ok := constructors[key]
	if !ok {
		return nil, types.NewConfigurationError(
			fmt.Sprintf("no adapter found for %q (supported: %s)", name, strings.Join(Sites(), ", ")), nil)
	}
	return ctor(logger), nil
}
