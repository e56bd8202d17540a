// Package buyer defines the lead domain model and the request-scoped
// validation and diffing logic that operates on it.
//
// The package has no transport or storage dependencies. It can be used by
// HTTP handlers, the CSV adapter, or tests without modification.
package buyer

import (
	"time"

	"github.com/google/uuid"
)

// City is the catchment area a lead is interested in.
type City string

const (
	CityChandigarh City = "Chandigarh"
	CityMohali     City = "Mohali"
	CityZirakpur   City = "Zirakpur"
	CityPanchkula  City = "Panchkula"
	CityOther      City = "Other"
)

// PropertyType is the kind of property a lead is looking for.
type PropertyType string

const (
	PropertyApartment PropertyType = "Apartment"
	PropertyVilla     PropertyType = "Villa"
	PropertyPlot      PropertyType = "Plot"
	PropertyOffice    PropertyType = "Office"
	PropertyRetail    PropertyType = "Retail"
)

// BHK is the bedroom-count designation for residential units.
// It is required only for Apartment and Villa property types.
type BHK string

const (
	BHK1      BHK = "1"
	BHK2      BHK = "2"
	BHK3      BHK = "3"
	BHK4      BHK = "4"
	BHKStudio BHK = "Studio"
)

// Purpose distinguishes purchase leads from rental leads.
type Purpose string

const (
	PurposeBuy  Purpose = "Buy"
	PurposeRent Purpose = "Rent"
)

// Timeline is the lead's stated horizon for closing.
type Timeline string

const (
	TimelineZeroToThree Timeline = "0-3m"
	TimelineThreeToSix  Timeline = "3-6m"
	TimelineOverSix     Timeline = ">6m"
	TimelineExploring   Timeline = "Exploring"
)

// Source records how the lead reached us.
type Source string

const (
	SourceWebsite  Source = "Website"
	SourceReferral Source = "Referral"
	SourceWalkIn   Source = "Walk-in"
	SourceCall     Source = "Call"
	SourceOther    Source = "Other"
)

// Status tracks a lead through the sales funnel.
// New leads always start as StatusNew.
type Status string

const (
	StatusNew         Status = "New"
	StatusQualified   Status = "Qualified"
	StatusContacted   Status = "Contacted"
	StatusVisited     Status = "Visited"
	StatusNegotiation Status = "Negotiation"
	StatusConverted   Status = "Converted"
	StatusDropped     Status = "Dropped"
)

// Enum value lists, in display order. Used for validation messages and by
// the CSV adapter.
var (
	Cities        = []City{CityChandigarh, CityMohali, CityZirakpur, CityPanchkula, CityOther}
	PropertyTypes = []PropertyType{PropertyApartment, PropertyVilla, PropertyPlot, PropertyOffice, PropertyRetail}
	BHKs          = []BHK{BHK1, BHK2, BHK3, BHK4, BHKStudio}
	Purposes      = []Purpose{PurposeBuy, PurposeRent}
	Timelines     = []Timeline{TimelineZeroToThree, TimelineThreeToSix, TimelineOverSix, TimelineExploring}
	Sources       = []Source{SourceWebsite, SourceReferral, SourceWalkIn, SourceCall, SourceOther}
	Statuses      = []Status{StatusNew, StatusQualified, StatusContacted, StatusVisited, StatusNegotiation, StatusConverted, StatusDropped}
)

// RequiresBHK reports whether the property type is residential and
// therefore needs a bedroom count.
func (p PropertyType) RequiresBHK() bool {
	return p == PropertyApartment || p == PropertyVilla
}

// Buyer is a single lead record. A buyer is owned exclusively by the user
// that created it; all reads and mutations are scoped to that owner.
type Buyer struct {
	ID           uuid.UUID    `json:"id"`
	FullName     string       `json:"fullName"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone"`
	City         City         `json:"city"`
	PropertyType PropertyType `json:"propertyType"`
	BHK          BHK          `json:"bhk,omitempty"`
	Purpose      Purpose      `json:"purpose"`
	BudgetMin    *int         `json:"budgetMin,omitempty"`
	BudgetMax    *int         `json:"budgetMax,omitempty"`
	Timeline     Timeline     `json:"timeline"`
	Source       Source       `json:"source"`
	Status       Status       `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	OwnerID      uuid.UUID    `json:"ownerId"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// User is the minimal identity attached to buyers and history entries.
// Users are created lazily the first time an email is seen.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
}

// FieldChange is one before/after pair in a history diff.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff maps field names to their before/after values.
type Diff map[string]FieldChange

// HistoryEntry is an immutable audit record for a buyer. One entry is
// appended per create and per update that actually changed something.
type HistoryEntry struct {
	ID            uuid.UUID `json:"id"`
	BuyerID       uuid.UUID `json:"buyerId"`
	ChangedBy     uuid.UUID `json:"changedBy"`
	ChangedByName string    `json:"changedByName,omitempty"`
	ChangedAt     time.Time `json:"changedAt"`
	Diff          Diff      `json:"diff"`
}

// CreatedDiff is the synthetic diff recorded when a buyer is first created.
func CreatedDiff() Diff {
	return Diff{"created": {Old: nil, New: "New buyer created"}}
}
