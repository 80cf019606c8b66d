package request

import (
	"fmt"
	"strings"
)

// ParseOverrides turns key=value items into a map. Each item may itself hold a
// comma separated list, so both `--override a=1,b=2` and repeated flags work.
// Later keys win. Keys are trimmed; values are kept verbatim after the first
// '=', surrounding whitespace included.
func ParseOverrides(items ...string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range items {
		for _, pair := range strings.Split(item, ",") {
			if strings.TrimSpace(pair) == "" {
				continue
			}
			key, value, ok := strings.Cut(pair, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				return nil, &UsageError{Msg: fmt.Sprintf("invalid override %q: expected key=value", strings.TrimSpace(pair))}
			}
			out[key] = value
		}
	}
	return out, nil
}
