// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel shared by every table with a UUID surrogate key
//   - receipt.go: receipts and receipt_items
//   - olap_row_kv.go: the diagnostic wide-column dump
package models
