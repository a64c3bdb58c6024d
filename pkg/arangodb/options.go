// Package arangodb contains the records returned by an ArangoDB server and the options that
// can be passed along with requests. The client itself lives in the client sub package.
package arangodb

import (
	"net/url"
	"strconv"
)

const (
	HeaderStreamTransactionID = "x-arango-trx-id"
	HeaderAllowDirtyRead      = "x-arango-allow-dirty-read"
	HeaderIfMatch             = "If-Match"
	HeaderIfNoneMatch         = "If-None-Match"
)

func setBool(q url.Values, name string, v bool) {
	if v {
		q.Set(name, "true")
	}
}

func setOptionalBool(q url.Values, name string, v *bool) {
	if v != nil {
		q.Set(name, strconv.FormatBool(*v))
	}
}

func setString(q url.Values, name, v string) {
	if v != "" {
		q.Set(name, v)
	}
}

func setInt(q url.Values, name string, v int) {
	if v != 0 {
		q.Set(name, strconv.Itoa(v))
	}
}

func headers(pairs ...string) map[string]string {
	h := map[string]string{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			h[pairs[i]] = pairs[i+1]
		}
	}
	return h
}

// Bool returns a pointer to b, for the tri-state options
func Bool(b bool) *bool {
	return &b
}
