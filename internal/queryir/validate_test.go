package queryir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersOrders(kind JoinKind, on ...Equal) Join {
	return Join{
		Kind:  kind,
		Left:  Scan{Table: "users", Alias: "u"},
		Right: Scan{Table: "orders", Alias: "o"},
		On:    on,
	}
}

var userOrderKey = Equal{Left: ColumnRef{"u", "id"}, Right: ColumnRef{"o", "user_id"}}

func TestValidate_ValidJoins(t *testing.T) {
	for _, kind := range []JoinKind{KindLeft, KindRight} {
		result := Validate(usersOrders(kind, userOrderKey))
		assert.True(t, result.Valid(), kind)
		assert.Empty(t, result.Warnings, kind)
		assert.NoError(t, result.Err())
	}

	result := Validate(usersOrders(KindCross))
	assert.True(t, result.Valid())
}

func TestValidate_FullJoinWarns(t *testing.T) {
	result := Validate(usersOrders(KindFull, userOrderKey))
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "collapses identical rows")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"nil", nil, "nil query"},
		{"empty table", Scan{}, "without table"},
		{"unknown kind", usersOrders("inner", userOrderKey), `unknown join kind "inner"`},
		{"missing on", usersOrders(KindLeft), "left join requires a join condition"},
		{"cross with on", usersOrders(KindCross, userOrderKey), "cross join takes no join condition"},
		{
			"duplicate alias",
			Join{Kind: KindCross, Left: Scan{Table: "users"}, Right: Scan{Table: "users"}},
			`alias "users" is used more than once`,
		},
		{
			"reversed condition",
			usersOrders(KindLeft, Equal{Left: ColumnRef{"o", "user_id"}, Right: ColumnRef{"u", "id"}}),
			"is reversed",
		},
		{
			"unknown alias",
			usersOrders(KindLeft, Equal{Left: ColumnRef{"x", "id"}, Right: ColumnRef{"o", "user_id"}}),
			`alias "x" is not on the left side`,
		},
		{
			"unqualified",
			usersOrders(KindLeft, Equal{Left: ColumnRef{Column: "id"}, Right: ColumnRef{"o", "user_id"}}),
			"qualified columns",
		},
		{
			"negative limit",
			Apply{Left: Scan{Table: "users"}, Right: Scan{Table: "orders"}, Limit: -1},
			"must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			assert.False(t, result.Valid())
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0], tt.want)

			var verr *ValidationError
			require.True(t, errors.As(result.Err(), &verr))
			assert.Equal(t, result.Errors, verr.Problems)
		})
	}
}

func TestValidate_ApplyWarnsWithoutLimit(t *testing.T) {
	apply := Apply{
		Left:  Scan{Table: "users", Alias: "u"},
		Right: Scan{Table: "orders", Alias: "o"},
		On:    []Equal{userOrderKey},
	}
	result := Validate(apply)
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "without limit")

	apply.Limit = 1
	assert.Empty(t, Validate(apply).Warnings)
}

func TestValidate_NestedConditionsSeeWholeLeftTree(t *testing.T) {
	q := Join{
		Kind:  KindLeft,
		Left:  usersOrders(KindLeft, userOrderKey),
		Right: Scan{Table: "items", Alias: "i"},
		On: []Equal{
			{Left: ColumnRef{"o", "id"}, Right: ColumnRef{"i", "order_id"}},
			{Left: ColumnRef{"u", "id"}, Right: ColumnRef{"i", "buyer_id"}},
		},
	}
	assert.True(t, Validate(q).Valid())
}
