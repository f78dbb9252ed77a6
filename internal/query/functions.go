package query

import (
	"strconv"
	"strings"
)

type function struct {
	name    string
	minArgs int
	maxArgs int
	boolean bool
}

func (f function) arity() string {
	if f.minArgs == f.maxArgs {
		return strconv.Itoa(f.minArgs)
	}
	return strconv.Itoa(f.minArgs) + "-" + strconv.Itoa(f.maxArgs)
}

// canonicalFunctions is keyed by the lower-cased function name.
var canonicalFunctions = map[string]function{}

func init() {
	for _, fn := range []function{
		// string
		{name: "contains", minArgs: 2, maxArgs: 2, boolean: true},
		{name: "startswith", minArgs: 2, maxArgs: 2, boolean: true},
		{name: "endswith", minArgs: 2, maxArgs: 2, boolean: true},
		{name: "tolower", minArgs: 1, maxArgs: 1},
		{name: "toupper", minArgs: 1, maxArgs: 1},
		{name: "trim", minArgs: 1, maxArgs: 1},
		{name: "indexof", minArgs: 2, maxArgs: 2},
		{name: "substring", minArgs: 2, maxArgs: 3},
		{name: "concat", minArgs: 2, maxArgs: 2},
		{name: "length", minArgs: 1, maxArgs: 1},

		// math
		{name: "round", minArgs: 1, maxArgs: 1},
		{name: "floor", minArgs: 1, maxArgs: 1},
		{name: "ceiling", minArgs: 1, maxArgs: 1},

		// date and time
		{name: "year", minArgs: 1, maxArgs: 1},
		{name: "month", minArgs: 1, maxArgs: 1},
		{name: "day", minArgs: 1, maxArgs: 1},
		{name: "hour", minArgs: 1, maxArgs: 1},
		{name: "minute", minArgs: 1, maxArgs: 1},
		{name: "second", minArgs: 1, maxArgs: 1},
		{name: "fractionalseconds", minArgs: 1, maxArgs: 1},
		{name: "date", minArgs: 1, maxArgs: 1},
		{name: "time", minArgs: 1, maxArgs: 1},
		{name: "totaloffsetminutes", minArgs: 1, maxArgs: 1},
		{name: "totalseconds", minArgs: 1, maxArgs: 1},
		{name: "now", minArgs: 0, maxArgs: 0},
		{name: "maxdatetime", minArgs: 0, maxArgs: 0},
		{name: "mindatetime", minArgs: 0, maxArgs: 0},
	} {
		canonicalFunctions[fn.name] = fn
	}
}

// lookupFunction finds a canonical function by name, ignoring case.
func lookupFunction(name string) (function, bool) {
	fn, ok := canonicalFunctions[strings.ToLower(name)]
	return fn, ok
}

// IsCanonicalFunction reports whether name is a supported canonical function.
func IsCanonicalFunction(name string) bool {
	_, ok := lookupFunction(name)
	return ok
}
