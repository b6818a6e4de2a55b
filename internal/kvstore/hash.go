package kvstore

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ParamsHash reduces a parameter map to a stable string suitable for use as
// part of a row's primary key, independent of map iteration order.
func ParamsHash(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		h.WriteString(k)
		h.WriteString("=")
		h.WriteString(params[k])
		h.WriteString(";")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
