package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedVersion is returned when a service answers with a protocol
// version this client does not speak.
var ErrUnsupportedVersion = errors.New("unsupported OData version")

// Version represents an OData protocol version
type Version struct {
	Major int
	Minor int
}

// The two protocol versions the client can request.
var (
	V40  = Version{Major: 4, Minor: 0}
	V401 = Version{Major: 4, Minor: 1}
)

// String returns the version as a string in "Major.Minor" format
// For minor version 1, returns "4.01" to match OData convention
func (v Version) String() string {
	if v.Minor == 0 {
		return fmt.Sprintf("%d.0", v.Major)
	}
	if v.Minor < 10 {
		return fmt.Sprintf("%d.0%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// LessThanOrEqual compares two versions using decimal comparison
func (v Version) LessThanOrEqual(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor <= other.Minor
}

// Supports reports whether requests may use a feature introduced after 4.0.
func (v Version) Supports(feature string) bool {
	switch feature {
	case "in-operator", "case-insensitive-functions", "key-as-segment":
		return v.Major > 4 || (v.Major == 4 && v.Minor >= 1)
	default:
		return false
	}
}

// Parse parses a version string like "4.0" or "4.01".
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("%w: empty version string", ErrUnsupportedVersion)
	}

	majorText, minorText, _ := strings.Cut(s, ".")
	major, err := strconv.Atoi(majorText)
	if err != nil || major < 0 {
		return Version{}, fmt.Errorf("%w: invalid major version in %q", ErrUnsupportedVersion, s)
	}
	minor := 0
	if minorText != "" {
		minor, err = strconv.Atoi(minorText)
		if err != nil || minor < 0 {
			return Version{}, fmt.Errorf("%w: invalid minor version in %q", ErrUnsupportedVersion, s)
		}
	}
	return Version{Major: major, Minor: minor}, nil
}

// CheckResponse validates the OData-Version header of a response against the
// maximum version the client requested. A missing header is accepted and
// reported as 4.0.
func CheckResponse(header string, max Version) (Version, error) {
	if strings.TrimSpace(header) == "" {
		return V40, nil
	}
	v, err := Parse(header)
	if err != nil {
		return Version{}, err
	}
	if v.Major != 4 {
		return v, fmt.Errorf("%w: service answered with %s", ErrUnsupportedVersion, v)
	}
	if !v.LessThanOrEqual(max) {
		return v, fmt.Errorf("%w: service answered with %s, requested at most %s", ErrUnsupportedVersion, v, max)
	}
	return v, nil
}
