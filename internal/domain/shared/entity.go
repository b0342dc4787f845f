package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the surrogate identity and audit timestamps of a stored row
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// IsNew reports whether the entity has not been assigned an identity yet
func (e *BaseEntity) IsNew() bool {
	return e.ID == uuid.Nil
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
