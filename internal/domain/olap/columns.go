package olap

// Upstream column names of the SALES cube.
const (
	ColOrderNum            = "OrderNum"
	ColOpenDate            = "OpenDate.Typed"
	ColOpenTime            = "OpenTime"
	ColCloseTime           = "CloseTime"
	ColDiscountedSum       = "DishDiscountSumInt"
	ColGrossSum            = "DishSumInt"
	ColReturnSum           = "DishReturnSum"
	ColCost                = "ProductCostBase.ProductCost"
	ColGuests              = "GuestNum"
	ColDishAmount          = "DishAmountInt"
	ColDishID              = "DishId"
	ColDishName            = "DishName"
	ColDishSize            = "DishSize.Name"
	ColDishMeasureUnit     = "DishMeasureUnit"
	ColPayTypes            = "PayTypes"
	ColWaiter              = "WaiterName"
	ColCashRegister        = "CashRegisterName"
	ColCustomerName        = "Delivery.CustomerName"
	ColCustomerPhone       = "Delivery.CustomerPhone"
	ColOrderType           = "OrderType"
	ColDeliveryServiceType = "Delivery.ServiceType"
	ColOrderDeleted        = "OrderDeleted"
	ColDeletedWithWriteoff = "DeletedWithWriteoff"
	ColStorned             = "Storned"
	ColSourceOrderNum      = "OriginalOrderNum"
)

// Enum values reported by the cancellation-state and reversal columns.
const (
	OrderNotDeleted = "NOT_DELETED"
	OrderDeleted    = "DELETED"

	DeletedWithWriteoff    = "DELETED_WITH_WRITEOFF"
	DeletedWithoutWriteoff = "DELETED_WITHOUT_WRITEOFF"

	StornedTrue  = "TRUE"
	StornedFalse = "FALSE"
)

// ReportTypeSales is the cube every receipt query runs against.
const ReportTypeSales = "SALES"

// ColumnInfo describes one column advertised by the cube metadata endpoint.
type ColumnInfo struct {
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	AggregationAllowed bool     `json:"aggregationAllowed"`
	GroupingAllowed    bool     `json:"groupingAllowed"`
	FilteringAllowed   bool     `json:"filteringAllowed"`
	Tags               []string `json:"tags,omitempty"`
}
