package receipt

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestResolveNet(t *testing.T) {
	tests := []struct {
		name       string
		gross      decimal.Decimal
		discounted decimal.Decimal
		ret        decimal.Decimal
		isReturn   bool
		isDeleted  bool
		want       decimal.Decimal
	}{
		{"plain sale uses discounted", d(2000), d(1800), d(0), false, false, d(1800)},
		{"return with positive reversal", d(500), d(450), d(500), true, false, d(500)},
		{"return without reversal is zero", d(500), d(450), d(0), true, false, d(0)},
		{"return with negative reversal is zero", d(500), d(450), d(-500), true, false, d(0)},
		{"return wins over deletion", d(500), d(450), d(300), true, true, d(300)},
		{"deleted return without reversal is zero", d(500), d(450), d(0), true, true, d(0)},
		{"deleted with gross uses gross", d(1000), d(900), d(0), false, true, d(1000)},
		{"deleted with zero gross uses discounted", d(0), d(900), d(0), false, true, d(900)},
		{"deleted with negative gross uses discounted", d(-10), d(900), d(0), false, true, d(900)},
		{"zero everything", d(0), d(0), d(0), false, false, d(0)},
		{"negative discounted passes through", d(0), d(-50), d(0), false, false, d(-50)},
		{"reversal ignored when not a return", d(100), d(90), d(100), false, false, d(90)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveNet(tt.gross, tt.discounted, tt.ret, tt.isReturn, tt.isDeleted)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
