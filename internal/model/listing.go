package model

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Category classifies what is being offered.
type Category string

const (
	CategoryHouseRent Category = "house-rent"
	CategoryHouseSale Category = "house-sale"
	CategoryShopRent  Category = "shop-rent"
	CategoryShopSale  Category = "shop-sale"
	CategoryLandSale  Category = "land-sale"
)

// AreaUnit is the unit of Listing.Area.
type AreaUnit string

const (
	AreaSquareFeet  AreaUnit = "sqft"
	AreaSquareMeter AreaUnit = "sqm"
)

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusActive Status = "active"
	StatusSold   Status = "sold"
	StatusRented Status = "rented"
	StatusBooked Status = "booked"
)

// Statuses lists every valid Status in display order.
var Statuses = []Status{StatusActive, StatusSold, StatusRented, StatusBooked}

// Valid reports whether s is one of Statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus converts a string to a Status.
// Returns ErrInvalidStatus for unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Configuration holds the optional layout attributes of a property.
type Configuration struct {
	Rooms      int    `json:"rooms,omitempty" bson:"rooms,omitempty" validate:"gte=0"`
	Bathrooms  int    `json:"bathrooms,omitempty" bson:"bathrooms,omitempty" validate:"gte=0"`
	Parking    bool   `json:"parking,omitempty" bson:"parking,omitempty"`
	Furnishing string `json:"furnishing,omitempty" bson:"furnishing,omitempty"`
}

// Listing is a property advertisement.
//
// Exactly one canonical copy exists per ID: a local-prefixed ID lives in the
// local cache, any other ID lives in the remote store.
type Listing struct {
	ID            string         `json:"id" bson:"_id"`
	Title         string         `json:"title" bson:"title"`
	Description   string         `json:"description" bson:"description"`
	Price         float64        `json:"price" bson:"price"`
	Location      string         `json:"location" bson:"location"`
	Category      Category       `json:"category" bson:"category"`
	Area          float64        `json:"area" bson:"area"`
	AreaUnit      AreaUnit       `json:"area_unit" bson:"area_unit"`
	Images        []string       `json:"images" bson:"images"`
	OwnerID       string         `json:"owner_id" bson:"owner_id"`
	OwnerName     string         `json:"owner_name" bson:"owner_name"`
	ContactNumber string         `json:"contact_number" bson:"contact_number"`
	CreatedAt     int64          `json:"created_at" bson:"created_at"` // epoch millis
	Status        Status         `json:"status" bson:"status"`
	Config        *Configuration `json:"config,omitempty" bson:"config,omitempty"`
}

// IsLocal reports whether the listing lives only in the local cache.
func (l Listing) IsLocal() bool {
	return IsLocalID(l.ID)
}

// ListingDraft is the caller-supplied part of a new listing.
// Identity, ownership, status and creation time are stamped on create.
type ListingDraft struct {
	Title         string         `json:"title" validate:"required"`
	Description   string         `json:"description"`
	Price         float64        `json:"price" validate:"gte=0"`
	Location      string         `json:"location" validate:"required"`
	Category      Category       `json:"category" validate:"required,oneof=house-rent house-sale shop-rent shop-sale land-sale"`
	Area          float64        `json:"area" validate:"gte=0"`
	AreaUnit      AreaUnit       `json:"area_unit" validate:"omitempty,oneof=sqft sqm"`
	Images        []string       `json:"images" validate:"dive,required"`
	ContactNumber string         `json:"contact_number"`
	Config        *Configuration `json:"config,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func draftValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the draft and returns an error wrapping ErrInvalidListing.
func (d ListingDraft) Validate() error {
	if err := draftValidator().Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidListing, err)
	}
	return nil
}

// User identifies the acting user, supplied by the authentication collaborator.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewListing builds a fully populated active listing from a draft.
func NewListing(id string, d ListingDraft, owner User, createdAt int64) Listing {
	unit := d.AreaUnit
	if unit == "" {
		unit = AreaSquareFeet
	}
	images := make([]string, len(d.Images))
	copy(images, d.Images)

	var cfg *Configuration
	if d.Config != nil {
		c := *d.Config
		cfg = &c
	}

	return Listing{
		ID:            id,
		Title:         d.Title,
		Description:   d.Description,
		Price:         d.Price,
		Location:      d.Location,
		Category:      d.Category,
		Area:          d.Area,
		AreaUnit:      unit,
		Images:        images,
		OwnerID:       owner.ID,
		OwnerName:     owner.Name,
		ContactNumber: d.ContactNumber,
		CreatedAt:     createdAt,
		Status:        StatusActive,
		Config:        cfg,
	}
}
