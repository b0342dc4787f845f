package receiptimport

import (
	"time"

	"github.com/restoledger/backend/internal/domain/olap"
)

var headerGroupBy = []string{
	olap.ColOrderNum,
	olap.ColPayTypes,
	olap.ColWaiter,
	olap.ColCashRegister,
	olap.ColCustomerName,
	olap.ColCustomerPhone,
	olap.ColOrderType,
	olap.ColDeliveryServiceType,
	olap.ColOrderDeleted,
	olap.ColDeletedWithWriteoff,
	olap.ColStorned,
	olap.ColOpenTime,
	olap.ColCloseTime,
}

var headerAggregates = []string{
	olap.ColDiscountedSum,
	olap.ColGrossSum,
	olap.ColReturnSum,
	olap.ColCost,
	olap.ColGuests,
	olap.ColDishAmount,
}

var itemGroupBy = []string{
	olap.ColOrderNum,
	olap.ColDishID,
	olap.ColDishName,
	olap.ColDishSize,
	olap.ColDishMeasureUnit,
	olap.ColOrderDeleted,
	olap.ColStorned,
}

var itemAggregates = []string{
	olap.ColDishAmount,
	olap.ColDiscountedSum,
	olap.ColGrossSum,
	olap.ColReturnSum,
	olap.ColCost,
}

func dayFilter(day time.Time) olap.Filter {
	return olap.DateRange(olap.ColOpenDate, day, day)
}

func cancellationFilter() olap.Filter {
	return olap.IncludeValues(olap.ColOrderDeleted, olap.OrderNotDeleted, olap.OrderDeleted)
}

// headerQuery fetches the primary per-order aggregates of a day
func headerQuery(day time.Time) olap.Query {
	return olap.Query{
		GroupBy:    headerGroupBy,
		Aggregates: headerAggregates,
		Filters:    []olap.Filter{dayFilter(day), cancellationFilter()},
	}
}

// deletedTimesQuery fetches cancelled orders with their timestamps
func deletedTimesQuery(day time.Time) olap.Query {
	return olap.Query{
		GroupBy: []string{
			olap.ColOrderNum,
			olap.ColOpenTime,
			olap.ColCloseTime,
			olap.ColDeletedWithWriteoff,
		},
		Aggregates: []string{olap.ColGrossSum},
		Filters: []olap.Filter{
			dayFilter(day),
			olap.IncludeValues(olap.ColOrderDeleted, olap.OrderDeleted),
		},
	}
}

// returnsQuery fetches reversal rows with the order they reverse
func returnsQuery(day time.Time) olap.Query {
	return olap.Query{
		GroupBy:    []string{olap.ColOrderNum, olap.ColStorned, olap.ColSourceOrderNum},
		Aggregates: []string{olap.ColReturnSum},
		Filters: []olap.Filter{
			dayFilter(day),
			olap.IncludeValues(olap.ColStorned, olap.StornedTrue),
		},
	}
}

// itemsQuery fetches line aggregates of a day
func itemsQuery(day time.Time) olap.Query {
	return olap.Query{
		GroupBy:    itemGroupBy,
		Aggregates: itemAggregates,
		Filters:    []olap.Filter{dayFilter(day), cancellationFilter()},
	}
}

// sourceQueries fetch one order over a lookback window, regardless of cancellation state
func sourceQueries(orderNum string, from, to time.Time) (headers, items olap.Query) {
	filters := []olap.Filter{
		olap.DateRange(olap.ColOpenDate, from, to),
		olap.IncludeValues(olap.ColOrderNum, orderNum),
	}
	headers = olap.Query{
		GroupBy:    append(append([]string{}, headerGroupBy...), olap.ColOpenDate),
		Aggregates: headerAggregates,
		Filters:    filters,
	}
	items = olap.Query{
		GroupBy:    itemGroupBy,
		Aggregates: itemAggregates,
		Filters:    filters,
	}
	return headers, items
}
