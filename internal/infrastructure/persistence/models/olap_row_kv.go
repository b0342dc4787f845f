package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/restoledger/backend/internal/domain/receipt"
)

// OlapRowKVModel is one diagnostic cell of the wide-column dump
type OlapRowKVModel struct {
	ID       uint                `gorm:"primaryKey;autoIncrement"`
	Date     time.Time           `gorm:"type:date;not null;uniqueIndex:uq_olap_row_kv,priority:1;index:idx_olap_row_kv_date"`
	OrderNum string              `gorm:"type:varchar(64);not null;uniqueIndex:uq_olap_row_kv,priority:2"`
	Level    string              `gorm:"type:varchar(16);not null;uniqueIndex:uq_olap_row_kv,priority:3"`
	ItemKey  string              `gorm:"type:varchar(255);not null;default:'';uniqueIndex:uq_olap_row_kv,priority:4"`
	Col      string              `gorm:"type:varchar(255);not null;uniqueIndex:uq_olap_row_kv,priority:5"`
	ValNum   decimal.NullDecimal `gorm:"type:decimal(24,6)"`
	ValStr   *string             `gorm:"type:text"`
}

// TableName returns the table name for the model
func (OlapRowKVModel) TableName() string {
	return "olap_row_kv"
}

// ToDomain converts the model to a domain cell
func (m *OlapRowKVModel) ToDomain() receipt.OlapRowKV {
	kv := receipt.OlapRowKV{
		Date:     receipt.Day(m.Date),
		OrderNum: m.OrderNum,
		Level:    receipt.Level(m.Level),
		ItemKey:  m.ItemKey,
		Col:      m.Col,
		ValStr:   m.ValStr,
	}
	if m.ValNum.Valid {
		n := m.ValNum.Decimal
		kv.ValNum = &n
	}
	return kv
}

// OlapRowKVModelFromDomain creates a model from a domain cell
func OlapRowKVModelFromDomain(kv receipt.OlapRowKV) *OlapRowKVModel {
	m := &OlapRowKVModel{
		Date:     receipt.Day(kv.Date),
		OrderNum: kv.OrderNum,
		Level:    string(kv.Level),
		ItemKey:  kv.ItemKey,
		Col:      kv.Col,
		ValStr:   kv.ValStr,
	}
	if kv.ValNum != nil {
		m.ValNum = decimal.NewNullDecimal(*kv.ValNum)
	}
	return m
}
