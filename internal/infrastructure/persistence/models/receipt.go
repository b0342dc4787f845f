package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restoledger/backend/internal/domain/receipt"
)

// ReceiptModel is the persistence model for the canonical per-order receipt
type ReceiptModel struct {
	BaseModel
	OrderNum            string          `gorm:"type:varchar(64);not null;uniqueIndex:uq_receipts_order_date,priority:1"`
	Date                time.Time       `gorm:"type:date;not null;uniqueIndex:uq_receipts_order_date,priority:2;index:idx_receipts_date"`
	Waiter              *string         `gorm:"type:varchar(255)"`
	Register            *string         `gorm:"type:varchar(255)"`
	CustomerName        *string         `gorm:"type:varchar(255)"`
	CustomerPhone       *string         `gorm:"type:varchar(64)"`
	OrderType           *string         `gorm:"type:varchar(128)"`
	DeliveryServiceType *string         `gorm:"type:varchar(128)"`
	IsReturn            bool            `gorm:"not null;default:false"`
	IsDeleted           bool            `gorm:"not null;default:false"`
	DeletedWithWriteoff bool            `gorm:"not null;default:false"`
	Net                 decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Cost                decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReturnSum           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Dishes              decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Guests              int             `gorm:"not null;default:0"`
	PayTypes            string          `gorm:"type:text;not null;default:'[]'"`
	OpenTime            *time.Time
	CloseTime           *time.Time
}

// TableName returns the table name for the model
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the model to a domain receipt without items
func (m *ReceiptModel) ToDomain() *receipt.Receipt {
	var payTypes []string
	if m.PayTypes != "" {
		_ = json.Unmarshal([]byte(m.PayTypes), &payTypes)
	}
	return &receipt.Receipt{
		BaseEntity:          m.BaseModel.ToDomain(),
		OrderNum:            m.OrderNum,
		Date:                receipt.Day(m.Date),
		Waiter:              deref(m.Waiter),
		Register:            deref(m.Register),
		CustomerName:        deref(m.CustomerName),
		CustomerPhone:       deref(m.CustomerPhone),
		OrderType:           deref(m.OrderType),
		DeliveryServiceType: deref(m.DeliveryServiceType),
		IsReturn:            m.IsReturn,
		IsDeleted:           m.IsDeleted,
		DeletedWithWriteoff: m.DeletedWithWriteoff,
		Net:                 m.Net,
		Cost:                m.Cost,
		ReturnSum:           m.ReturnSum,
		Dishes:              m.Dishes,
		Guests:              m.Guests,
		PayTypes:            payTypes,
		OpenTime:            utc(m.OpenTime),
		CloseTime:           utc(m.CloseTime),
	}
}

// FromDomain populates the model from a domain receipt
func (m *ReceiptModel) FromDomain(r *receipt.Receipt) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.OrderNum = r.OrderNum
	m.Date = receipt.Day(r.Date)
	m.Waiter = nullable(r.Waiter)
	m.Register = nullable(r.Register)
	m.CustomerName = nullable(r.CustomerName)
	m.CustomerPhone = nullable(r.CustomerPhone)
	m.OrderType = nullable(r.OrderType)
	m.DeliveryServiceType = nullable(r.DeliveryServiceType)
	m.IsReturn = r.IsReturn
	m.IsDeleted = r.IsDeleted
	m.DeletedWithWriteoff = r.DeletedWithWriteoff
	m.Net = r.Net
	m.Cost = r.Cost
	m.ReturnSum = r.ReturnSum
	m.Dishes = r.Dishes
	m.Guests = r.Guests
	m.PayTypes = encodePayTypes(r.PayTypes)
	m.OpenTime = r.OpenTime
	m.CloseTime = r.CloseTime
}

// ReceiptModelFromDomain creates a model from a domain receipt
func ReceiptModelFromDomain(r *receipt.Receipt) *ReceiptModel {
	m := &ReceiptModel{}
	m.FromDomain(r)
	return m
}

// ReceiptItemModel is the persistence model for one receipt line
type ReceiptItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_receipt_items_line,priority:1"`
	LineNo      int             `gorm:"not null;uniqueIndex:uq_receipt_items_line,priority:2"`
	DishID      string          `gorm:"type:varchar(64);not null;default:''"`
	DishName    string          `gorm:"type:varchar(255);not null;default:''"`
	Size        string          `gorm:"type:varchar(128);not null;default:''"`
	MeasureUnit string          `gorm:"type:varchar(32);not null;default:''"`
	Qty         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Net         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Cost        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReturnSum   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for the model
func (ReceiptItemModel) TableName() string {
	return "receipt_items"
}

// ToDomain converts the model to a domain receipt item
func (m *ReceiptItemModel) ToDomain() receipt.ReceiptItem {
	return receipt.ReceiptItem{
		ID:          m.ID,
		ReceiptID:   m.ReceiptID,
		LineNo:      m.LineNo,
		DishID:      m.DishID,
		DishName:    m.DishName,
		Size:        m.Size,
		MeasureUnit: m.MeasureUnit,
		Qty:         m.Qty,
		Net:         m.Net,
		Cost:        m.Cost,
		ReturnSum:   m.ReturnSum,
	}
}

// ReceiptItemModelFromDomain creates a model for line lineNo of a receipt
func ReceiptItemModelFromDomain(receiptID uuid.UUID, lineNo int, it receipt.ReceiptItem, now time.Time) *ReceiptItemModel {
	return &ReceiptItemModel{
		ID:          uuid.New(),
		ReceiptID:   receiptID,
		LineNo:      lineNo,
		DishID:      it.DishID,
		DishName:    it.DishName,
		Size:        it.Size,
		MeasureUnit: it.MeasureUnit,
		Qty:         it.Qty,
		Net:         it.Net,
		Cost:        it.Cost,
		ReturnSum:   it.ReturnSum,
		CreatedAt:   now,
	}
}

func encodePayTypes(labels []string) string {
	sorted := append([]string{}, labels...)
	sort.Strings(sorted)
	b, err := json.Marshal(sorted)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
