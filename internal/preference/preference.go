// Package preference builds OData Prefer request headers and reads the
// Preference-Applied response header.
package preference

import (
	"net/http"
	"strconv"
	"strings"
)

// Return values for the return preference.
const (
	ReturnRepresentation = "representation"
	ReturnMinimal        = "minimal"
)

// Preference represents OData Prefer header preferences
type Preference struct {
	// Return is ReturnRepresentation, ReturnMinimal or empty.
	Return string

	// MaxPageSize asks for server-driven paging with at most this many
	// entities per page. Zero leaves it to the service.
	MaxPageSize int

	// IncludeAnnotations is an annotation filter such as "*" or "-*".
	IncludeAnnotations string

	ContinueOnError bool
	TrackChanges    bool
	RespondAsync    bool
}

// String renders the Prefer header value, preferences in a fixed order.
// The zero value renders as the empty string.
func (p Preference) String() string {
	var parts []string
	if p.Return != "" {
		parts = append(parts, "return="+p.Return)
	}
	if p.MaxPageSize > 0 {
		parts = append(parts, "odata.maxpagesize="+strconv.Itoa(p.MaxPageSize))
	}
	if p.IncludeAnnotations != "" {
		parts = append(parts, `odata.include-annotations="`+p.IncludeAnnotations+`"`)
	}
	if p.ContinueOnError {
		parts = append(parts, "odata.continue-on-error")
	}
	if p.TrackChanges {
		parts = append(parts, "odata.track-changes")
	}
	if p.RespondAsync {
		parts = append(parts, "respond-async")
	}
	return strings.Join(parts, ", ")
}

// Parse reads a Prefer or Preference-Applied header value. Unknown
// preferences are ignored; names are case-insensitive and the odata. prefix
// is optional, as services vary.
func Parse(value string) Preference {
	var p Preference
	for _, item := range strings.Split(value, ",") {
		name, arg, _ := strings.Cut(strings.TrimSpace(item), "=")
		name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "odata.")
		arg = strings.Trim(strings.TrimSpace(arg), `"`)

		switch name {
		case "return":
			switch strings.ToLower(arg) {
			case ReturnRepresentation:
				p.Return = ReturnRepresentation
			case ReturnMinimal:
				p.Return = ReturnMinimal
			}
		case "maxpagesize":
			if n, err := strconv.Atoi(arg); err == nil && n > 0 {
				p.MaxPageSize = n
			}
		case "include-annotations":
			p.IncludeAnnotations = arg
		case "continue-on-error":
			p.ContinueOnError = arg == "" || strings.EqualFold(arg, "true")
		case "track-changes":
			p.TrackChanges = true
		case "respond-async":
			p.RespondAsync = true
		}
	}
	return p
}

// Applied returns the preferences the service reports as honored.
func Applied(h http.Header) Preference {
	return Parse(h.Get("Preference-Applied"))
}
