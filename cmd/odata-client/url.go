package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	odata "github.com/nlstn/go-odata-client"
)

type urlFlags struct {
	keys         []string
	filter       string
	rawFilter    string
	selects      []string
	expands      []string
	orderBy      []string
	top          int
	skip         int
	count        bool
	search       string
	apply        string
	compute      string
	params       []string
	navigate     []string
	typeCast     string
	countSegment bool
}

func newURLCmd(a *app) *cobra.Command {
	f := &urlFlags{top: -1, skip: -1}

	cmd := &cobra.Command{
		Use:   "url <entity-set>",
		Short: "Print the request URL for an entity set and query options",
		Long: `Print the request URL for an entity set and query options.

The URL is absolute when a service URL is configured and relative otherwise.
--filter is parsed and re-rendered, so literals are normalized and invalid
expressions are rejected; --raw-filter is passed through unchanged.

--key takes a single value (5, 'ALFKI') or Name=value pairs for composite keys.
Unquoted values that parse as integers or GUIDs keep that type.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(odata.NewOptions().WithTranslator(odata.Translator{Formatter: a.literalFormatter()}))
			if err != nil {
				return err
			}
			u, err := a.resourceURL(args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVar(&f.keys, "key", nil, "Entity key: a value or Name=value (repeatable for composite keys)")
	fl.StringVar(&f.filter, "filter", "", "Filter expression, parsed and validated")
	fl.StringVar(&f.rawFilter, "raw-filter", "", "Filter expression passed through verbatim")
	fl.StringSliceVar(&f.selects, "select", nil, "Properties to select (comma separated)")
	fl.StringSliceVar(&f.expands, "expand", nil, "Navigation properties to expand (comma separated)")
	fl.StringArrayVar(&f.orderBy, "orderby", nil, "Sort property, optionally followed by ' desc' (repeatable)")
	fl.IntVar(&f.top, "top", -1, "Maximum number of entities")
	fl.IntVar(&f.skip, "skip", -1, "Number of entities to skip")
	fl.BoolVar(&f.count, "count", false, "Request $count=true")
	fl.StringVar(&f.search, "search", "", "Free-text $search expression")
	fl.StringVar(&f.apply, "apply", "", "Aggregation $apply expression")
	fl.StringVar(&f.compute, "compute", "", "$compute expression")
	fl.StringArrayVar(&f.params, "param", nil, "Custom query parameter as name=value (repeatable)")
	fl.StringSliceVar(&f.navigate, "navigate", nil, "Navigation segments after the key (comma separated)")
	fl.StringVar(&f.typeCast, "type", "", "Qualified derived type to cast to")
	fl.BoolVar(&f.countSegment, "count-segment", false, "Address the /$count of the resource")

	return cmd
}

// resourceURL makes the URL absolute when a service URL is configured.
func (a *app) resourceURL(entitySet string, opts *odata.Options) (string, error) {
	if a.cfg.ServiceURL == "" {
		return opts.BuildURL(entitySet)
	}
	c, err := a.client()
	if err != nil {
		return "", err
	}
	return c.BuildURL(entitySet, opts)
}

func (f *urlFlags) options(opts *odata.Options) (*odata.Options, error) {
	if err := f.applyKey(opts); err != nil {
		return nil, err
	}
	if f.filter != "" {
		node, err := odata.ParseFilter(f.filter)
		if err != nil {
			return nil, err
		}
		opts.Filter(node)
	}
	if f.rawFilter != "" {
		opts.RawFilter(f.rawFilter)
	}
	if len(f.selects) > 0 {
		opts.Select(f.selects...)
	}
	for _, nav := range f.expands {
		opts.Expand(odata.NewExpand(strings.TrimSpace(nav)))
	}
	for _, item := range f.orderBy {
		if prop, ok := strings.CutSuffix(strings.TrimSpace(item), " desc"); ok {
			opts.OrderByDesc(strings.TrimSpace(prop))
			continue
		}
		opts.OrderBy(strings.TrimSuffix(strings.TrimSpace(item), " asc"))
	}
	if f.skip >= 0 {
		opts.Skip(f.skip)
	}
	if f.top >= 0 {
		opts.Top(f.top)
	}
	if f.count {
		opts.Count()
	}
	if f.search != "" {
		opts.Search(f.search)
	}
	if f.apply != "" {
		opts.Apply(f.apply)
	}
	if f.compute != "" {
		opts.Compute(f.compute)
	}
	for _, p := range f.params {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, expected name=value", p)
		}
		opts.Param(name, value)
	}
	if len(f.navigate) > 0 {
		opts.Navigate(f.navigate...)
	}
	if f.typeCast != "" {
		opts.OfType(f.typeCast)
	}
	if f.countSegment {
		opts.CountSegment()
	}
	return opts, opts.Err()
}

func (f *urlFlags) applyKey(opts *odata.Options) error {
	switch {
	case len(f.keys) == 0:
		return nil
	case len(f.keys) == 1 && !isNamedKey(f.keys[0]):
		opts.Key(parseKeyValue(f.keys[0]))
		return nil
	}

	values := make([]odata.NamedValue, 0, len(f.keys))
	for _, k := range f.keys {
		if !isNamedKey(k) {
			return fmt.Errorf("composite keys need Name=value pairs, got %q", k)
		}
		name, value, _ := strings.Cut(k, "=")
		values = append(values, odata.NamedValue{Name: strings.TrimSpace(name), Value: parseKeyValue(value)})
	}
	opts.CompositeKey(values...)
	return nil
}

// isNamedKey reports whether k looks like Name=value rather than a bare value.
func isNamedKey(k string) bool {
	name, _, ok := strings.Cut(k, "=")
	if !ok || strings.HasPrefix(strings.TrimSpace(k), "'") {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for i, r := range name {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// parseKeyValue types a command-line key value.
func parseKeyValue(s string) interface{} {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if id, err := uuid.Parse(s); err == nil {
		return id
	}
	return s
}
