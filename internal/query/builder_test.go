package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/shared"
)

func productBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(RuleSet{
		TenantColumn:  "p.organization_id",
		SearchColumns: []string{"p.name", "p.sku", "p.barcode"},
		Sortable: map[string]string{
			"name":       "p.name",
			"unit_price": "p.unit_price",
			"created_at": "p.created_at",
		},
		DefaultSort: "created_at",
	}, map[string]Rule{
		"category": EqualsInt("p.category_id"),
		"status": Raw(map[string]string{
			"In Stock":     "COALESCE(sq.total_quantity, 0) > 50",
			"Low Stock":    "COALESCE(sq.total_quantity, 0) BETWEEN 1 AND 50",
			"Out of Stock": "COALESCE(sq.total_quantity, 0) = 0",
		}),
	})
	require.NoError(t, err)
	return b
}

func TestBuildTenantConstraintAlwaysFirst(t *testing.T) {
	b := productBuilder(t)

	q, err := b.Build(7, Filters{}, nil, Page{})
	require.NoError(t, err)

	assert.Equal(t, "p.organization_id = $1", q.Where)
	assert.Equal(t, []any{int64(7)}, q.Args)
	assert.Equal(t, "p.created_at DESC", q.OrderBy)
	assert.Equal(t, DefaultPageSize, q.Limit)
	assert.Equal(t, 0, q.Offset)
}

func TestBuildRejectsMissingTenant(t *testing.T) {
	b := productBuilder(t)

	_, err := b.Build(0, Filters{}, nil, Page{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestBuildFilterAllEquivalentToAbsent(t *testing.T) {
	b := productBuilder(t)

	withAll, err := b.Build(1, Filters{Fields: map[string]string{"status": FilterAll}}, nil, Page{})
	require.NoError(t, err)
	without, err := b.Build(1, Filters{}, nil, Page{})
	require.NoError(t, err)

	assert.Equal(t, without.Where, withAll.Where)
	assert.Equal(t, without.Args, withAll.Args)
}

func TestBuildDerivedStatusFilter(t *testing.T) {
	b := productBuilder(t)

	q, err := b.Build(1, Filters{Fields: map[string]string{"status": "Low Stock"}}, nil, Page{})
	require.NoError(t, err)

	assert.Contains(t, q.Where, "COALESCE(sq.total_quantity, 0) BETWEEN 1 AND 50")
	assert.Equal(t, []any{int64(1)}, q.Args)
}

func TestBuildUnknownFilterIgnored(t *testing.T) {
	b := productBuilder(t)

	q, err := b.Build(1, Filters{Fields: map[string]string{"warehouse": "3"}}, nil, Page{})
	require.NoError(t, err)
	assert.Equal(t, "p.organization_id = $1", q.Where)
}

func TestBuildSearchCombinesColumnsWithOr(t *testing.T) {
	b := productBuilder(t)

	q, err := b.Build(1, Filters{Search: "  ACME  "}, nil, Page{})
	require.NoError(t, err)

	assert.Equal(t, "p.organization_id = $1 AND (p.name ILIKE $2 OR p.sku ILIKE $3 OR p.barcode ILIKE $4)", q.Where)
	assert.Equal(t, []any{int64(1), "%acme%", "%acme%", "%acme%"}, q.Args)
}

func TestBuildSearchAndsWithOtherFilters(t *testing.T) {
	b := productBuilder(t)

	q, err := b.Build(1, Filters{
		Search: "bolt",
		Fields: map[string]string{"category": "4"},
	}, nil, Page{})
	require.NoError(t, err)

	assert.Equal(t, "p.organization_id = $1 AND p.category_id = $2 AND (p.name ILIKE $3 OR p.sku ILIKE $4 OR p.barcode ILIKE $5)", q.Where)
	assert.Equal(t, []any{int64(1), int64(4), "%bolt%", "%bolt%", "%bolt%"}, q.Args)
}

func TestBuildSortWhitelist(t *testing.T) {
	b := productBuilder(t)

	q, err := b.Build(1, Filters{}, &Sort{Field: "unit_price", Direction: "asc"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, "p.unit_price ASC", q.OrderBy)

	_, err = b.Build(1, Filters{}, &Sort{Field: "password_hash"}, Page{})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestBuildPagination(t *testing.T) {
	b := productBuilder(t)

	q, err := b.Build(1, Filters{}, nil, Page{Number: 3, Size: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, q.Limit)
	assert.Equal(t, 50, q.Offset)

	// Page below one is coerced, never rejected.
	q, err = b.Build(1, Filters{}, nil, Page{Number: -2, Size: 0})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, q.Limit)
	assert.Equal(t, 0, q.Offset)
}

func TestBuildDeterministicAcrossFilterOrder(t *testing.T) {
	b := productBuilder(t)

	first, err := b.Build(1, Filters{Fields: map[string]string{"category": "2", "status": "In Stock"}}, nil, Page{})
	require.NoError(t, err)
	second, err := b.Build(1, Filters{Fields: map[string]string{"status": "In Stock", "category": "2"}}, nil, Page{})
	require.NoError(t, err)

	assert.Equal(t, first.Where, second.Where)
	assert.Equal(t, first.Args, second.Args)
}

func TestOneOfRule(t *testing.T) {
	rule := OneOf("o.status", "PENDING", "SHIPPED", "DELIVERED")

	fragment, args, err := rule("PENDING,SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, "o.status IN (?, ?)", fragment)
	assert.Equal(t, []any{"PENDING", "SHIPPED"}, args)

	_, _, err = rule("BOGUS")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestNumberFrom(t *testing.T) {
	assert.Equal(t, "LIMIT $4 OFFSET $5", NumberFrom("LIMIT ? OFFSET ?", 4))
}
