package testutil

import (
	"context"
	"testing"

	"github.com/roach88/joinq/internal/dataset"
	"github.com/roach88/joinq/internal/ir"
	"github.com/roach88/joinq/internal/store"
)

// Shop returns a small dataset exercising every join shape:
//
//   - users: Ada has two orders, Bob none, Cy one
//   - orders: order 12 belongs to no user, order 13 has a null user_id
//   - items: belong to orders 10 and 12
func Shop(t testing.TB) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(
		dataset.Table{
			Name:    "users",
			Columns: []string{"id", "name"},
			Rows: []ir.IRObject{
				{"id": ir.IRInt(1), "name": ir.IRString("Ada")},
				{"id": ir.IRInt(2), "name": ir.IRString("Bob")},
				{"id": ir.IRInt(3), "name": ir.IRString("Cy")},
			},
		},
		dataset.Table{
			Name:    "orders",
			Columns: []string{"id", "user_id", "item"},
			Rows: []ir.IRObject{
				{"id": ir.IRInt(10), "user_id": ir.IRInt(1), "item": ir.IRString("book")},
				{"id": ir.IRInt(11), "user_id": ir.IRInt(1), "item": ir.IRString("pen")},
				{"id": ir.IRInt(12), "user_id": ir.IRInt(9), "item": ir.IRString("lamp")},
				{"id": ir.IRInt(13), "user_id": ir.IRNull{}, "item": ir.IRString("gift")},
				{"id": ir.IRInt(14), "user_id": ir.IRInt(3), "item": ir.IRString("mug")},
			},
		},
		dataset.Table{
			Name:    "items",
			Columns: []string{"order_id", "sku", "gift_wrap"},
			Rows: []ir.IRObject{
				{"order_id": ir.IRInt(10), "sku": ir.IRString("B-1"), "gift_wrap": ir.IRBool(false)},
				{"order_id": ir.IRInt(10), "sku": ir.IRString("B-2"), "gift_wrap": ir.IRBool(true)},
				{"order_id": ir.IRInt(12), "sku": ir.IRString("L-1"), "gift_wrap": ir.IRNull{}},
			},
		},
	)
	if err != nil {
		t.Fatalf("build shop dataset: %v", err)
	}
	return d
}

// ShopStore returns an in-memory SQLite store holding Shop.
func ShopStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := Shop(t).ImportInto(context.Background(), s); err != nil {
		t.Fatalf("import shop: %v", err)
	}
	return s
}
