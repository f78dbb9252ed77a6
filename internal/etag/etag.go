package etag

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Any is the If-Match wildcard that matches every existing entity.
const Any = "*"

// Parse extracts the ETag value from a quoted ETag string
// Handles both strong ("value") and weak (W/"value") ETags
func Parse(etagHeader string) string {
	if etagHeader == "" {
		return ""
	}

	// Remove W/ prefix if present (weak ETag)
	if len(etagHeader) > 2 && etagHeader[:2] == "W/" {
		etagHeader = etagHeader[2:]
	}

	// Remove quotes
	if len(etagHeader) >= 2 && etagHeader[0] == '"' && etagHeader[len(etagHeader)-1] == '"' {
		return etagHeader[1 : len(etagHeader)-1]
	}

	return etagHeader
}

// Format returns tag as it must appear in If-Match and If-None-Match.
// Tags that are already quoted, weak tags and the wildcard are kept as they are.
func Format(tag string) string {
	tag = strings.TrimSpace(tag)
	switch {
	case tag == "", tag == Any:
		return tag
	case strings.HasPrefix(tag, `W/"`), strings.HasPrefix(tag, `"`) && strings.HasSuffix(tag, `"`) && len(tag) >= 2:
		return tag
	}
	return `"` + tag + `"`
}

// Equal compares two tags, ignoring weakness.
func Equal(a, b string) bool {
	return Parse(a) == Parse(b)
}

// FromPayload returns the @odata.etag annotation of a JSON entity.
func FromPayload(body []byte) (string, bool) {
	var entity struct {
		ETag string `json:"@odata.etag"`
	}
	if err := json.Unmarshal(body, &entity); err != nil || entity.ETag == "" {
		return "", false
	}
	return entity.ETag, true
}

// FromResponse returns the ETag response header, falling back to the
// @odata.etag annotation of the body.
func FromResponse(header http.Header, body []byte) (string, bool) {
	if tag := header.Get("ETag"); tag != "" {
		return tag, true
	}
	return FromPayload(body)
}
