package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemCategory groups provision items for summaries and sorting.
type ItemCategory string

const (
	CategoryRice       ItemCategory = "Gạo"
	CategoryLivestock  ItemCategory = "Thịt gia súc"
	CategoryPoultry    ItemCategory = "Thịt gia cầm"
	CategorySeafood    ItemCategory = "Hải sản"
	CategoryEggs       ItemCategory = "Trứng"
	CategoryTofu       ItemCategory = "Đậu phụ"
	CategoryVegetables ItemCategory = "Rau củ quả"
	CategorySpices     ItemCategory = "Gia vị"
	CategoryFuel       ItemCategory = "Chất đốt"
	CategoryOther      ItemCategory = "Khác"
)

// ItemCategories lists the categories in display order.
var ItemCategories = []ItemCategory{
	CategoryRice, CategoryLivestock, CategoryPoultry, CategorySeafood, CategoryEggs,
	CategoryTofu, CategoryVegetables, CategorySpices, CategoryFuel, CategoryOther,
}

// Valid reports whether c is a known category.
func (c ItemCategory) Valid() bool {
	for _, known := range ItemCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Rank returns the display position of c; unknown categories sort last.
func (c ItemCategory) Rank() int {
	for i, known := range ItemCategories {
		if c == known {
			return i
		}
	}
	return len(ItemCategories)
}

// MeasureUnit is the unit of measure of an item.
type MeasureUnit string

const (
	UnitKg     MeasureUnit = "kg"
	UnitLitre  MeasureUnit = "lít"
	UnitPiece  MeasureUnit = "quả"
	UnitBox    MeasureUnit = "hộp"
	UnitPack   MeasureUnit = "gói"
	UnitCrate  MeasureUnit = "thùng"
	UnitBundle MeasureUnit = "bó"
)

var measureUnits = []MeasureUnit{UnitKg, UnitLitre, UnitPiece, UnitBox, UnitPack, UnitCrate, UnitBundle}

// Valid reports whether u is a known unit of measure.
func (u MeasureUnit) Valid() bool {
	for _, known := range measureUnits {
		if u == known {
			return true
		}
	}
	return false
}

// Item is an entry of the provisions (LTTP) catalog.
type Item struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Category         ItemCategory       `bson:"category" json:"category"`
	Unit             MeasureUnit        `bson:"unit" json:"unit"`
	UnitPrice        float64            `bson:"unitPrice" json:"unitPrice"`
	ShelfLifeDays    *int               `bson:"shelfLifeDays,omitempty" json:"shelfLifeDays,omitempty"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	IsActive         bool               `bson:"isActive" json:"isActive"`
	LastUpdatedPrice *time.Time         `bson:"lastUpdatedPrice,omitempty" json:"lastUpdatedPrice,omitempty"`
	CreatedBy        string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy        string             `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ItemRef is the compact item projection embedded in ledger responses.
type ItemRef struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Category  ItemCategory       `json:"category"`
	Unit      MeasureUnit        `json:"unit"`
	UnitPrice float64            `json:"unitPrice"`
}

// Ref projects the item for embedding.
func (i Item) Ref() *ItemRef {
	return &ItemRef{ID: i.ID, Name: i.Name, Category: i.Category, Unit: i.Unit, UnitPrice: i.UnitPrice}
}

// ItemFilter narrows catalog listings.
type ItemFilter struct {
	Category        ItemCategory
	IncludeInactive bool
}
