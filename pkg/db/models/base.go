package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a zero primary key so inserts do not depend on database
// side uuid generation.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (c *Cart) BeforeCreate(*gorm.DB) error               { assignID(&c.ID); return nil }
func (c *CartItem) BeforeCreate(*gorm.DB) error           { assignID(&c.ID); return nil }
func (t *LoyaltyTransaction) BeforeCreate(*gorm.DB) error { assignID(&t.ID); return nil }
func (b *RedemptionBarcode) BeforeCreate(*gorm.DB) error  { assignID(&b.ID); return nil }
func (o *OutboxEvent) BeforeCreate(*gorm.DB) error        { assignID(&o.ID); return nil }
func (o *OutboxDLQ) BeforeCreate(*gorm.DB) error          { assignID(&o.ID); return nil }
