package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nlstn/go-odata-client/internal/keys"
	"github.com/nlstn/go-odata-client/internal/preference"
)

// OrderByItem represents a single $orderby term
type OrderByItem struct {
	Property   string
	Descending bool
}

func (o OrderByItem) String() string {
	if o.Descending {
		return o.Property + " desc"
	}
	return o.Property
}

// Header is a custom request header carried alongside the query
type Header struct {
	Name  string
	Value string
}

// QueryParam is a custom (non-system) query parameter
type QueryParam struct {
	Name  string
	Value string
}

// LevelsMax requests $levels=max on an expand.
const LevelsMax = -1

// ExpandOption represents a single $expand item with its nested options
type ExpandOption struct {
	NavigationProperty string
	Options            *Options
	Levels             int // 0 means unset, LevelsMax means max
}

// NewExpand returns an expand item for the navigation property.
func NewExpand(navigationProperty string) *ExpandOption {
	return &ExpandOption{NavigationProperty: navigationProperty}
}

// With attaches nested query options.
func (e *ExpandOption) With(opts *Options) *ExpandOption {
	e.Options = opts
	return e
}

// WithLevels sets $levels; pass LevelsMax for max.
func (e *ExpandOption) WithLevels(levels int) *ExpandOption {
	e.Levels = levels
	return e
}

type filterPart struct {
	node Node
	raw  string
}

// Options accumulates query options for one request and serializes them
// deterministically. Builder methods record the first error, which is returned
// from QueryString and BuildURL.
type Options struct {
	translator Translator

	filters []filterPart
	selects []string
	expands []*ExpandOption
	orderBy []OrderByItem
	skip    *int
	top     *int
	count   bool
	search  string
	apply   string
	compute string
	params  []QueryParam
	headers []Header

	key          string
	navigation   []string
	typeCast     string
	countSegment bool

	err error
}

// NewOptions returns an empty option set.
func NewOptions() *Options {
	return &Options{}
}

func (o *Options) fail(format string, args ...interface{}) *Options {
	if o.err == nil {
		o.err = fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidQueryOption}, args...)...)
	}
	return o
}

// Err returns the first error recorded by a builder method.
func (o *Options) Err() error {
	return o.err
}

// WithTranslator sets the translator used for filter nodes, including those of
// nested expand options.
func (o *Options) WithTranslator(t Translator) *Options {
	o.translator = t
	return o
}

// Filter adds a predicate; repeated calls are combined with and.
func (o *Options) Filter(node Node) *Options {
	if isNilNode(node) {
		return o.fail("nil filter")
	}
	o.filters = append(o.filters, filterPart{node: node})
	return o
}

// RawFilter adds a filter expression verbatim, bypassing translation.
func (o *Options) RawFilter(expr string) *Options {
	if strings.TrimSpace(expr) == "" {
		return o.fail("empty raw filter")
	}
	o.filters = append(o.filters, filterPart{raw: expr})
	return o
}

// Select appends properties to $select.
func (o *Options) Select(paths ...string) *Options {
	for _, p := range paths {
		if !validPath(p) {
			return o.fail("invalid $select path %q", p)
		}
		o.selects = append(o.selects, p)
	}
	return o
}

// Expand appends expand items.
func (o *Options) Expand(items ...*ExpandOption) *Options {
	for _, e := range items {
		if e == nil || !validPath(e.NavigationProperty) {
			return o.fail("invalid $expand navigation property")
		}
		if e.Levels < LevelsMax {
			return o.fail("invalid $levels %d", e.Levels)
		}
		o.expands = append(o.expands, e)
	}
	return o
}

// OrderBy appends ascending $orderby terms.
func (o *Options) OrderBy(paths ...string) *Options {
	return o.orderByItems(false, paths)
}

// OrderByDesc appends descending $orderby terms.
func (o *Options) OrderByDesc(paths ...string) *Options {
	return o.orderByItems(true, paths)
}

func (o *Options) orderByItems(desc bool, paths []string) *Options {
	for _, p := range paths {
		if !validPath(p) {
			return o.fail("invalid $orderby path %q", p)
		}
		o.orderBy = append(o.orderBy, OrderByItem{Property: p, Descending: desc})
	}
	return o
}

// Top sets $top.
func (o *Options) Top(n int) *Options {
	if n < 0 {
		return o.fail("$top must be a non-negative integer, got %d", n)
	}
	o.top = &n
	return o
}

// Skip sets $skip.
func (o *Options) Skip(n int) *Options {
	if n < 0 {
		return o.fail("$skip must be a non-negative integer, got %d", n)
	}
	o.skip = &n
	return o
}

// Count requests $count=true.
func (o *Options) Count() *Options {
	o.count = true
	return o
}

// Search sets $search.
func (o *Options) Search(expr string) *Options {
	if strings.TrimSpace(expr) == "" {
		return o.fail("$search cannot be empty")
	}
	o.search = expr
	return o
}

// Apply sets $apply.
func (o *Options) Apply(expr string) *Options {
	if strings.TrimSpace(expr) == "" {
		return o.fail("$apply cannot be empty")
	}
	o.apply = expr
	return o
}

// Compute sets $compute.
func (o *Options) Compute(expr string) *Options {
	if strings.TrimSpace(expr) == "" {
		return o.fail("$compute cannot be empty")
	}
	o.compute = expr
	return o
}

// Param appends a custom query parameter or parameter alias (@name).
func (o *Options) Param(name, value string) *Options {
	if name == "" || strings.HasPrefix(name, "$") {
		return o.fail("invalid custom parameter name %q", name)
	}
	o.params = append(o.params, QueryParam{Name: name, Value: value})
	return o
}

// Header appends a custom request header. Headers never appear in the URL.
func (o *Options) Header(name, value string) *Options {
	if strings.TrimSpace(name) == "" {
		return o.fail("empty header name")
	}
	o.headers = append(o.headers, Header{Name: name, Value: value})
	return o
}

// Prefer adds a Prefer header for the given preferences. An empty preference
// set adds nothing.
func (o *Options) Prefer(p preference.Preference) *Options {
	if value := p.String(); value != "" {
		o.headers = append(o.headers, Header{Name: "Prefer", Value: value})
	}
	return o
}

// Headers returns the custom headers in the order they were added.
func (o *Options) Headers() []Header {
	return append([]Header(nil), o.headers...)
}

// Key addresses a single entity by its key value. Literals follow the
// formatter of the translator set so far.
func (o *Options) Key(value interface{}) *Options {
	key, err := o.keyFormatter().FormatKey(value)
	if err != nil {
		return o.keyError(err)
	}
	o.key = key
	return o
}

// CompositeKey addresses a single entity by a composite key, in declared order.
func (o *Options) CompositeKey(values ...keys.NamedValue) *Options {
	key, err := o.keyFormatter().FormatCompositeKey(values)
	if err != nil {
		return o.keyError(err)
	}
	o.key = key
	return o
}

func (o *Options) keyFormatter() keys.Formatter {
	return keys.Formatter{Literals: o.translator.Formatter}
}

func (o *Options) keyError(err error) *Options {
	if o.err == nil {
		o.err = fmt.Errorf("%w: %w", ErrInvalidQueryOption, err)
	}
	return o
}

// Navigate appends navigation property segments after the key.
func (o *Options) Navigate(segments ...string) *Options {
	for _, s := range segments {
		if s == "" || strings.Contains(s, "/") {
			return o.fail("invalid navigation segment %q", s)
		}
		o.navigation = append(o.navigation, s)
	}
	return o
}

// OfType restricts the resource to a derived type; typeName must be namespace qualified.
func (o *Options) OfType(typeName string) *Options {
	if !isQualifiedName(typeName) {
		return o.fail("type cast requires a qualified type name, got %q", typeName)
	}
	o.typeCast = typeName
	return o
}

// CountSegment requests the /$count of the addressed collection.
func (o *Options) CountSegment() *Options {
	o.countSegment = true
	return o
}

func validPath(p string) bool {
	if strings.TrimSpace(p) == "" {
		return false
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == "" {
			return false
		}
	}
	return true
}

func isQualifiedName(name string) bool {
	if name == "" || strings.ContainsAny(name, " /'") {
		return false
	}
	dot := strings.LastIndex(name, ".")
	return dot > 0 && dot < len(name)-1 && !strings.Contains(name, "..")
}

// option is one serialized name=value pair
type option struct {
	name  string
	value string
}

// QueryString returns the query string without percent-encoding, in the
// order filter, select, expand, orderby, skip, top, count, search, apply,
// compute, then custom parameters.
func (o *Options) QueryString() (string, error) {
	opts, err := o.serialize(o.translator, false)
	if err != nil {
		return "", err
	}
	return joinOptions(opts, "&", nil), nil
}

// EncodedQueryString returns the percent-encoded query string.
func (o *Options) EncodedQueryString() (string, error) {
	opts, err := o.serialize(o.translator, false)
	if err != nil {
		return "", err
	}
	return joinOptions(opts, "&", escapeQuery), nil
}

// Values returns the query options as unencoded name/value pairs, e.g. for
// diagnostics. Unlike parsing the built URL it keeps values containing ';'.
func (o *Options) Values() (url.Values, error) {
	opts, err := o.serialize(o.translator, false)
	if err != nil {
		return nil, err
	}
	values := make(url.Values, len(opts))
	for _, opt := range opts {
		values.Add(opt.name, opt.value)
	}
	return values, nil
}

// ResourcePath returns the path segments contributed by Key, Navigate,
// OfType and CountSegment, e.g. "(5)/Orders/NS.SpecialOrder/$count".
func (o *Options) ResourcePath() (string, error) {
	if o.err != nil {
		return "", o.err
	}
	var b strings.Builder
	if o.key != "" {
		b.WriteString("(" + escapePath(o.key) + ")")
	}
	for _, s := range o.navigation {
		b.WriteString("/" + escapePath(s))
	}
	if o.typeCast != "" {
		b.WriteString("/" + o.typeCast)
	}
	if o.countSegment {
		b.WriteString("/$count")
	}
	return b.String(), nil
}

// BuildURL appends the resource path and the encoded query string to basePath.
func (o *Options) BuildURL(basePath string) (string, error) {
	path, err := o.ResourcePath()
	if err != nil {
		return "", err
	}
	query, err := o.EncodedQueryString()
	if err != nil {
		return "", err
	}

	u := strings.TrimSuffix(basePath, "/") + path
	if query != "" {
		u += "?" + query
	}
	return u, nil
}

func joinOptions(opts []option, sep string, escape func(string) string) string {
	var b strings.Builder
	for i, opt := range opts {
		if i > 0 {
			b.WriteString(sep)
		}
		value := opt.value
		name := opt.name
		if escape != nil {
			name = escape(name)
			value = escape(value)
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
	}
	return b.String()
}

// serialize renders the option list. Nested options (inside $expand) may not
// carry custom parameters, headers or path segments.
func (o *Options) serialize(t Translator, nested bool) ([]option, error) {
	if o.err != nil {
		return nil, o.err
	}
	if nested && (len(o.params) > 0 || len(o.headers) > 0 || o.key != "" ||
		len(o.navigation) > 0 || o.typeCast != "" || o.countSegment) {
		return nil, fmt.Errorf("%w: nested expand options only support system query options", ErrInvalidQueryOption)
	}

	var opts []option

	if len(o.filters) > 0 {
		parts := make([]string, 0, len(o.filters))
		for _, f := range o.filters {
			if f.node == nil {
				parts = append(parts, f.raw)
				continue
			}
			s, err := t.Translate(f.node)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
		opts = append(opts, option{"$filter", CombineFilters(parts)})
	}
	if len(o.selects) > 0 {
		opts = append(opts, option{"$select", strings.Join(o.selects, ",")})
	}
	if len(o.expands) > 0 {
		items := make([]string, 0, len(o.expands))
		for _, e := range o.expands {
			s, err := serializeExpand(t, e)
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		}
		opts = append(opts, option{"$expand", strings.Join(items, ",")})
	}
	if len(o.orderBy) > 0 {
		items := make([]string, len(o.orderBy))
		for i, item := range o.orderBy {
			items[i] = item.String()
		}
		opts = append(opts, option{"$orderby", strings.Join(items, ",")})
	}
	if o.skip != nil {
		opts = append(opts, option{"$skip", strconv.Itoa(*o.skip)})
	}
	if o.top != nil {
		opts = append(opts, option{"$top", strconv.Itoa(*o.top)})
	}
	if o.count {
		opts = append(opts, option{"$count", "true"})
	}
	if o.search != "" {
		opts = append(opts, option{"$search", o.search})
	}
	if o.apply != "" {
		opts = append(opts, option{"$apply", o.apply})
	}
	if o.compute != "" {
		opts = append(opts, option{"$compute", o.compute})
	}
	for _, p := range o.params {
		opts = append(opts, option{p.Name, p.Value})
	}
	return opts, nil
}

func serializeExpand(t Translator, e *ExpandOption) (string, error) {
	var nested []option
	if e.Options != nil {
		var err error
		nested, err = e.Options.serialize(t, true)
		if err != nil {
			return "", err
		}
	}
	switch {
	case e.Levels == LevelsMax:
		nested = append(nested, option{"$levels", "max"})
	case e.Levels > 0:
		nested = append(nested, option{"$levels", strconv.Itoa(e.Levels)})
	}

	if len(nested) == 0 {
		return e.NavigationProperty, nil
	}
	return e.NavigationProperty + "(" + joinOptions(nested, ";", nil) + ")", nil
}
