package edm

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func init() {
	RegisterType("Edm.Date", NewDate)
	RegisterType("Edm.DateTimeOffset", NewDateTimeOffset)
	RegisterType("Edm.TimeOfDay", NewTimeOfDay)
	RegisterType("Edm.Duration", NewDuration)
}

const (
	dateLayout      = "2006-01-02"
	timeOfDayLayout = "15:04:05.999999999"
)

// Date represents an Edm.Date value (a calendar day without time zone)
type Date struct {
	year   int
	month  time.Month
	day    int
	isNull bool
}

// DateOf returns an Edm.Date for the given calendar day.
func DateOf(year int, month time.Month, day int) *Date {
	return &Date{year: year, month: month, day: day}
}

// NewDate creates a new Edm.Date from a time.Time or a yyyy-mm-dd string
func NewDate(value interface{}) (Type, error) {
	if value == nil {
		return &Date{isNull: true}, nil
	}
	if t, isNull, ok := asTime(value); ok {
		if isNull {
			return &Date{isNull: true}, nil
		}
		return DateOf(t.Year(), t.Month(), t.Day()), nil
	}
	if s, ok := value.(string); ok {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse %q as Edm.Date", ErrUnsupportedLiteralType, s)
		}
		return DateOf(t.Year(), t.Month(), t.Day()), nil
	}
	return nil, unsupported(value, "Edm.Date")
}

func (d *Date) TypeName() string { return "Edm.Date" }
func (d *Date) IsNull() bool     { return d.isNull }
func (d *Date) Value() interface{} {
	if d.isNull {
		return nil
	}
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}
func (d *Date) String() string {
	if d.isNull {
		return "null"
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// DateTimeOffset represents an Edm.DateTimeOffset value
type DateTimeOffset struct {
	value  time.Time
	isNull bool
}

// NewDateTimeOffset creates a new Edm.DateTimeOffset from a time.Time or an RFC 3339 string
func NewDateTimeOffset(value interface{}) (Type, error) {
	if value == nil {
		return &DateTimeOffset{isNull: true}, nil
	}
	if t, isNull, ok := asTime(value); ok {
		return &DateTimeOffset{value: t, isNull: isNull}, nil
	}
	if s, ok := value.(string); ok {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse %q as Edm.DateTimeOffset", ErrUnsupportedLiteralType, s)
		}
		return &DateTimeOffset{value: t}, nil
	}
	return nil, unsupported(value, "Edm.DateTimeOffset")
}

func (d *DateTimeOffset) TypeName() string { return "Edm.DateTimeOffset" }
func (d *DateTimeOffset) IsNull() bool     { return d.isNull }
func (d *DateTimeOffset) Value() interface{} {
	if d.isNull {
		return nil
	}
	return d.value
}

// String renders RFC 3339; fractional seconds appear only when non-zero.
func (d *DateTimeOffset) String() string {
	if d.isNull {
		return "null"
	}
	return d.value.Format(time.RFC3339Nano)
}

// TimeOfDay represents an Edm.TimeOfDay value
type TimeOfDay struct {
	sinceMidnight time.Duration
	isNull        bool
}

// TimeOfDayOf returns an Edm.TimeOfDay for the given clock reading.
func TimeOfDayOf(hour, minute, second, nanosecond int) *TimeOfDay {
	d := time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second +
		time.Duration(nanosecond)
	return &TimeOfDay{sinceMidnight: d}
}

// NewTimeOfDay creates a new Edm.TimeOfDay from the clock part of a time.Time,
// a duration since midnight, or an hh:mm:ss[.fffffff] string
func NewTimeOfDay(value interface{}) (Type, error) {
	if value == nil {
		return &TimeOfDay{isNull: true}, nil
	}
	if t, isNull, ok := asTime(value); ok {
		if isNull {
			return &TimeOfDay{isNull: true}, nil
		}
		return TimeOfDayOf(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()), nil
	}
	switch v := value.(type) {
	case time.Duration:
		if v < 0 || v >= 24*time.Hour {
			return nil, fmt.Errorf("%w: %v is outside a day for Edm.TimeOfDay", ErrUnsupportedLiteralType, v)
		}
		return &TimeOfDay{sinceMidnight: v}, nil
	case string:
		t, err := time.Parse(timeOfDayLayout, v)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse %q as Edm.TimeOfDay", ErrUnsupportedLiteralType, v)
		}
		return TimeOfDayOf(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()), nil
	}
	return nil, unsupported(value, "Edm.TimeOfDay")
}

func (t *TimeOfDay) TypeName() string { return "Edm.TimeOfDay" }
func (t *TimeOfDay) IsNull() bool     { return t.isNull }
func (t *TimeOfDay) Value() interface{} {
	if t.isNull {
		return nil
	}
	return t.sinceMidnight
}
func (t *TimeOfDay) String() string {
	if t.isNull {
		return "null"
	}
	return time.Time{}.Add(t.sinceMidnight).Format(timeOfDayLayout)
}

// Duration represents an Edm.Duration value
type Duration struct {
	value  time.Duration
	isNull bool
}

// NewDuration creates a new Edm.Duration from a time.Duration or an ISO 8601
// day-time duration string
func NewDuration(value interface{}) (Type, error) {
	switch v := value.(type) {
	case nil:
		return &Duration{isNull: true}, nil
	case string:
		d, err := parseISODuration(v)
		if err != nil {
			return nil, err
		}
		return &Duration{value: d}, nil
	case time.Duration:
		return &Duration{value: v}, nil
	case *time.Duration:
		if v == nil {
			return &Duration{isNull: true}, nil
		}
		return &Duration{value: *v}, nil
	}
	return nil, unsupported(value, "Edm.Duration")
}

func (d *Duration) TypeName() string { return "Edm.Duration" }
func (d *Duration) IsNull() bool     { return d.isNull }
func (d *Duration) Value() interface{} {
	if d.isNull {
		return nil
	}
	return d.value
}
func (d *Duration) String() string {
	if d.isNull {
		return "null"
	}
	return "duration'" + isoDuration(d.value) + "'"
}

// isoDuration renders d as an ISO 8601 day-time duration, e.g. P1DT2H3M4.5S.
func isoDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	nanos := d - seconds*time.Second

	if days > 0 {
		b.WriteString(strconv.FormatInt(int64(days), 10))
		b.WriteByte('D')
	}
	if hours == 0 && minutes == 0 && seconds == 0 && nanos == 0 {
		if days == 0 {
			b.WriteString("T0S")
		}
		return b.String()
	}

	b.WriteByte('T')
	if hours > 0 {
		b.WriteString(strconv.FormatInt(int64(hours), 10))
		b.WriteByte('H')
	}
	if minutes > 0 {
		b.WriteString(strconv.FormatInt(int64(minutes), 10))
		b.WriteByte('M')
	}
	if seconds > 0 || nanos > 0 {
		b.WriteString(strconv.FormatInt(int64(seconds), 10))
		if nanos > 0 {
			frac := strings.TrimRight(fmt.Sprintf("%09d", int64(nanos)), "0")
			b.WriteByte('.')
			b.WriteString(frac)
		}
		b.WriteByte('S')
	}
	return b.String()
}

// parseISODuration accepts [-]P[nD][T[nH][nM][n[.f]S]].
func parseISODuration(s string) (time.Duration, error) {
	invalid := fmt.Errorf("%w: cannot parse %q as Edm.Duration", ErrUnsupportedLiteralType, s)

	rest := s
	negative := strings.HasPrefix(rest, "-")
	rest = strings.TrimPrefix(rest, "-")
	if !strings.HasPrefix(rest, "P") || len(rest) == 1 {
		return 0, invalid
	}
	rest = rest[1:]

	var total time.Duration
	inTime := false
	for rest != "" {
		if rest[0] == 'T' {
			if inTime || len(rest) == 1 {
				return 0, invalid
			}
			inTime = true
			rest = rest[1:]
			continue
		}
		end := strings.IndexAny(rest, "DHMS")
		if end <= 0 {
			return 0, invalid
		}
		number, unit := rest[:end], rest[end]
		rest = rest[end+1:]

		var scale time.Duration
		switch {
		case unit == 'D' && !inTime:
			scale = 24 * time.Hour
		case unit == 'H' && inTime:
			scale = time.Hour
		case unit == 'M' && inTime:
			scale = time.Minute
		case unit == 'S' && inTime:
			scale = time.Second
		default:
			return 0, invalid
		}

		whole, frac, hasFrac := strings.Cut(number, ".")
		n, err := strconv.ParseInt(whole, 10, 64)
		if err != nil || (hasFrac && unit != 'S') {
			return 0, invalid
		}
		total += time.Duration(n) * scale
		if hasFrac {
			if frac == "" || len(frac) > 9 {
				return 0, invalid
			}
			nanos, err := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
			if err != nil {
				return 0, invalid
			}
			total += time.Duration(nanos)
		}
	}

	if negative {
		total = -total
	}
	return total, nil
}
