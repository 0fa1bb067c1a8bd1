package query

import (
	"net/url"
	"strconv"
)

// ParamsFromValues lifts the normalized list-request triple out of raw query
// parameters. Only the named filter fields are copied; everything else in
// the query string is ignored.
func ParamsFromValues(values url.Values, fields ...string) (Filters, *Sort, Page) {
	filters := Filters{
		Search: values.Get("search"),
		Fields: map[string]string{},
	}
	for _, field := range fields {
		if v := values.Get(field); v != "" {
			filters.Fields[field] = v
		}
	}

	var sort *Sort
	if field := values.Get("sort"); field != "" {
		sort = &Sort{Field: field, Direction: NormalizeDirection(values.Get("dir"))}
	}

	page, _ := strconv.Atoi(values.Get("page"))
	size, _ := strconv.Atoi(values.Get("page_size"))
	return filters, sort, Page{Number: page, Size: size}.Normalize()
}
