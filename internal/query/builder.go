package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/stocklens/stocklens/internal/shared"
)

// Rule builds one SQL predicate for a filter value. Fragments use `?`
// placeholders; the builder rewrites them into positional arguments.
type Rule func(value string) (fragment string, args []any, err error)

// Equals constrains a column to the literal filter value.
func Equals(column string) Rule {
	return func(value string) (string, []any, error) {
		return column + " = ?", []any{value}, nil
	}
}

// EqualsInt constrains a numeric column, rejecting non-numeric input.
func EqualsInt(column string) Rule {
	return func(value string) (string, []any, error) {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s must be numeric", shared.ErrValidation, column)
		}
		return column + " = ?", []any{id}, nil
	}
}

// OneOf constrains a column to any of the comma-separated filter values.
func OneOf(column string, allowed ...string) Rule {
	permitted := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		permitted[v] = struct{}{}
	}
	return func(value string) (string, []any, error) {
		parts := strings.Split(value, ",")
		args := make([]any, 0, len(parts))
		holes := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" || part == FilterAll {
				continue
			}
			if len(permitted) > 0 {
				if _, ok := permitted[part]; !ok {
					return "", nil, fmt.Errorf("%w: unknown value %q for %s", shared.ErrValidation, part, column)
				}
			}
			args = append(args, part)
			holes = append(holes, "?")
		}
		if len(args) == 0 {
			return "", nil, nil
		}
		return column + " IN (" + strings.Join(holes, ", ") + ")", args, nil
	}
}

// Raw installs a fixed predicate keyed by filter value. Used for derived
// filters whose SQL does not embed the value directly.
func Raw(variants map[string]string) Rule {
	return func(value string) (string, []any, error) {
		fragment, ok := variants[value]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown value %q", shared.ErrValidation, value)
		}
		return fragment, nil, nil
	}
}

// RuleSet configures the builder for one entity kind. Resolved once at
// startup, never per request.
type RuleSet struct {
	// TenantColumn holds the tenant equality column, qualified if the page
	// query joins other tables. Required.
	TenantColumn string
	// SearchColumns are matched case-insensitively with OR semantics when a
	// search term is present.
	SearchColumns []string
	// Sortable whitelists request sort fields, mapping them to column
	// expressions. Requests sorting on anything else are rejected.
	Sortable map[string]string
	// DefaultSort applies when the request carries no sort, e.g. "created_at".
	DefaultSort string
}

// Query is the store-native descriptor produced by a Builder.
type Query struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

// Builder deterministically translates (Filters, Sort, Page) into a Query.
type Builder struct {
	rules RuleSet
	named map[string]Rule
}

// NewBuilder validates and captures the rule set for one entity kind.
func NewBuilder(rules RuleSet, named map[string]Rule) (*Builder, error) {
	if rules.TenantColumn == "" {
		return nil, fmt.Errorf("query: tenant column is required")
	}
	if rules.DefaultSort == "" {
		return nil, fmt.Errorf("query: default sort is required")
	}
	if _, ok := rules.Sortable[rules.DefaultSort]; !ok {
		return nil, fmt.Errorf("query: default sort %q not in sortable set", rules.DefaultSort)
	}
	return &Builder{rules: rules, named: named}, nil
}

// Build produces the query descriptor. The tenant constraint is always the
// first predicate and is independent of caller-supplied filters. Filter
// fields with no registered rule are ignored.
func (b *Builder) Build(organizationID int64, filters Filters, sort *Sort, page Page) (Query, error) {
	if organizationID <= 0 {
		return Query{}, fmt.Errorf("%w: organization id required", shared.ErrUnauthorized)
	}

	fragments := []string{b.rules.TenantColumn + " = ?"}
	args := []any{organizationID}

	for _, name := range sortedKeys(filters.Fields) {
		value, active := filters.Value(name)
		if !active {
			continue
		}
		rule, ok := b.named[name]
		if !ok {
			continue
		}
		fragment, ruleArgs, err := rule(value)
		if err != nil {
			return Query{}, err
		}
		if fragment == "" {
			continue
		}
		fragments = append(fragments, fragment)
		args = append(args, ruleArgs...)
	}

	if term := NormalizeSearch(filters.Search); term != "" && len(b.rules.SearchColumns) > 0 {
		like := "%" + term + "%"
		parts := make([]string, 0, len(b.rules.SearchColumns))
		for _, column := range b.rules.SearchColumns {
			parts = append(parts, column+" ILIKE ?")
			args = append(args, like)
		}
		fragments = append(fragments, "("+strings.Join(parts, " OR ")+")")
	}

	orderBy, err := b.orderBy(sort)
	if err != nil {
		return Query{}, err
	}

	page = page.Normalize()
	return Query{
		Where:   numberPlaceholders(strings.Join(fragments, " AND ")),
		Args:    args,
		OrderBy: orderBy,
		Limit:   page.Size,
		Offset:  page.Offset(),
	}, nil
}

func (b *Builder) orderBy(sort *Sort) (string, error) {
	field := b.rules.DefaultSort
	direction := SortDesc
	if sort != nil && sort.Field != "" {
		column, ok := b.rules.Sortable[sort.Field]
		if !ok {
			return "", fmt.Errorf("%w: cannot sort by %q", shared.ErrValidation, sort.Field)
		}
		return column + " " + strings.ToUpper(NormalizeDirection(sort.Direction)), nil
	}
	return b.rules.Sortable[field] + " " + strings.ToUpper(direction), nil
}

// numberPlaceholders rewrites `?` holes into $1..$n positional parameters.
func numberPlaceholders(fragment string) string {
	var sb strings.Builder
	n := 0
	for _, r := range fragment {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// NumberFrom rewrites `?` holes starting at the given ordinal. Repositories
// use it to append LIMIT/OFFSET after the shared WHERE clause.
func NumberFrom(fragment string, start int) string {
	var sb strings.Builder
	n := start - 1
	for _, r := range fragment {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// sortedKeys keeps built queries independent of map iteration order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
