package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnitKind distinguishes recipient and production units.
type UnitKind string

const (
	UnitKindCombat     UnitKind = "combat"
	UnitKindCeremony   UnitKind = "ceremony"
	UnitKindProcessing UnitKind = "processing"
)

// Valid reports whether k is a known unit kind.
func (k UnitKind) Valid() bool {
	switch k {
	case UnitKindCombat, UnitKindCeremony, UnitKindProcessing:
		return true
	}
	return false
}

// Unit is a military unit that receives provisions or runs a processing station.
type Unit struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code      string             `bson:"code" json:"code"`
	Name      string             `bson:"name" json:"name"`
	Kind      UnitKind           `bson:"kind" json:"kind"`
	Personnel int                `bson:"personnel" json:"personnel"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	CreatedBy string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy string             `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RecipientSlots are the fixed slot names, in order, that the four recipient
// units are mapped onto.
var RecipientSlots = []string{"unit1", "unit2", "unit3", "ceremonyUnit"}
