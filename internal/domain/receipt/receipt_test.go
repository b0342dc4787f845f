package receipt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restoledger/backend/internal/domain/shared"
)

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got := Day(time.Date(2024, 3, 5, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDay(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		day, err := ParseDay("2024-03-05")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), day)
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := ParseDay("05.03.2024")
		assert.Error(t, err)
	})
}

func TestReceipt_AddPayType(t *testing.T) {
	r := NewReceipt("42", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	r.AddPayType("card")
	r.AddPayType("cash")
	r.AddPayType("card")
	r.AddPayType("")

	assert.Equal(t, []string{"card", "cash"}, r.PayTypes)
	assert.True(t, r.HasPayType("cash"))
	assert.False(t, r.HasPayType("bonus"))
}

func TestReceipt_NumberItems(t *testing.T) {
	r := NewReceipt("42", time.Now())
	r.ID = shared.NewBaseEntity().ID
	r.Items = []ReceiptItem{{DishName: "Soup"}, {DishName: "Tea"}, {DishName: "Cake"}}

	r.NumberItems()

	for i, it := range r.Items {
		assert.Equal(t, i+1, it.LineNo)
		assert.Equal(t, r.ID, it.ReceiptID)
	}
}

func TestReceipt_Validate(t *testing.T) {
	r := NewReceipt("", time.Now())
	err := r.Validate()
	assert.True(t, errors.Is(err, ErrMissingOrderNum))

	r.OrderNum = "7"
	assert.NoError(t, r.Validate())
}

func TestKey_String(t *testing.T) {
	k := Key{OrderNum: "42", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "42@2024-03-05", k.String())
}
