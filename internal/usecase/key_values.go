package usecase

import (
	"strings"

	"github.com/QualiSystems/colony-cli/internal/domain"
)

// ParseKeyValues parses "k1=v1, k2=v2" into a map. Keys and values are trimmed and a later
// duplicate key wins. An empty string yields an empty map.
func ParseKeyValues(s string) (map[string]string, error) {
	res := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return res, nil
	}
	for _, item := range strings.Split(s, ",") {
		parts := strings.Split(item, "=")
		if len(parts) != 2 {
			return nil, domain.UsageError("Line must be comma-separated list of key=values: key1=val1, key2=val2...")
		}
		res[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return res, nil
}
