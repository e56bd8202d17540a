package buyer

// validate.go implements the parse-then-validate boundary for buyer
// payloads. Each entry point either produces a normalized, fully typed
// value or a ValidationErrors listing every violated field.
//
// Create and update share the same field rules; update applies them only
// to the fields actually present in the payload. Cross-field rules (bhk
// requires a residential property type, budgetMax >= budgetMin) evaluate
// over the submitted subset, matching the behavior of the partial schema
// on the update path.

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxFullNameLen and MinFullNameLen bound the fullName field.
	MinFullNameLen = 2
	MaxFullNameLen = 80

	// MaxNotesLen bounds the free-text notes field.
	MaxNotesLen = 1000
)

var (
	phoneRegex = regexp.MustCompile(`^\d{10,15}$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidationError describes a single violated field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is the structured failure returned by the parse
// functions. It is always non-empty when returned.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// CreateInput is the raw create payload. Status is deliberately absent:
// new buyers always start as StatusNew regardless of input.
type CreateInput struct {
	FullName     string   `json:"fullName"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	City         string   `json:"city"`
	PropertyType string   `json:"propertyType"`
	BHK          string   `json:"bhk"`
	Purpose      string   `json:"purpose"`
	BudgetMin    *int     `json:"budgetMin"`
	BudgetMax    *int     `json:"budgetMax"`
	Timeline     string   `json:"timeline"`
	Source       string   `json:"source"`
	Notes        string   `json:"notes"`
	Tags         []string `json:"tags"`
}

// ParseCreate validates and normalizes a create payload into a Buyer.
// The returned Buyer has no identifier, owner, or timestamps; the
// repository assigns those on persist. Status is forced to StatusNew.
func ParseCreate(in CreateInput) (Buyer, error) {
	var errs ValidationErrors

	errs = appendFullNameErrs(errs, in.FullName)
	errs = appendPhoneErrs(errs, in.Phone)
	errs = appendEmailErrs(errs, in.Email)

	city, errs := parseEnum(errs, "city", in.City, Cities)
	propertyType, errs := parseEnum(errs, "propertyType", in.PropertyType, PropertyTypes)
	purpose, errs := parseEnum(errs, "purpose", in.Purpose, Purposes)
	timeline, errs := parseEnum(errs, "timeline", in.Timeline, Timelines)
	source, errs := parseEnum(errs, "source", in.Source, Sources)

	bhk, errs := parseBHK(errs, in.BHK, propertyType, in.PropertyType)
	errs = appendBudgetErrs(errs, in.BudgetMin, in.BudgetMax)
	errs = appendNotesErrs(errs, in.Notes)

	if len(errs) > 0 {
		return Buyer{}, errs
	}

	return Buyer{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        in.Email,
		Phone:        in.Phone,
		City:         city,
		PropertyType: propertyType,
		BHK:          bhk,
		Purpose:      purpose,
		BudgetMin:    in.BudgetMin,
		BudgetMax:    in.BudgetMax,
		Timeline:     timeline,
		Source:       source,
		Status:       StatusNew,
		Notes:        in.Notes,
		Tags:         in.Tags,
	}, nil
}

// UpdateInput is the raw update payload. Nil pointer fields were absent
// from the payload and are left untouched on the persisted record.
// UpdatedAt is the optimistic-concurrency token: it must echo the
// updatedAt the caller last read.
type UpdateInput struct {
	FullName     *string   `json:"fullName"`
	Email        *string   `json:"email"`
	Phone        *string   `json:"phone"`
	City         *string   `json:"city"`
	PropertyType *string   `json:"propertyType"`
	BHK          *string   `json:"bhk"`
	Purpose      *string   `json:"purpose"`
	BudgetMin    *int      `json:"budgetMin"`
	BudgetMax    *int      `json:"budgetMax"`
	Timeline     *string   `json:"timeline"`
	Source       *string   `json:"source"`
	Status       *string   `json:"status"`
	Notes        *string   `json:"notes"`
	Tags         *[]string `json:"tags"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate checks the fields present in an update payload.
// It does not consult the persisted record: cross-field rules fire only
// when their inputs are part of the payload.
func (in UpdateInput) Validate() error {
	var errs ValidationErrors

	if in.FullName != nil {
		errs = appendFullNameErrs(errs, *in.FullName)
	}
	if in.Phone != nil {
		errs = appendPhoneErrs(errs, *in.Phone)
	}
	if in.Email != nil {
		errs = appendEmailErrs(errs, *in.Email)
	}
	if in.City != nil {
		_, errs = parseEnum(errs, "city", *in.City, Cities)
	}
	var propertyType PropertyType
	if in.PropertyType != nil {
		propertyType, errs = parseEnum(errs, "propertyType", *in.PropertyType, PropertyTypes)
	}
	if in.Purpose != nil {
		_, errs = parseEnum(errs, "purpose", *in.Purpose, Purposes)
	}
	if in.Timeline != nil {
		_, errs = parseEnum(errs, "timeline", *in.Timeline, Timelines)
	}
	if in.Source != nil {
		_, errs = parseEnum(errs, "source", *in.Source, Sources)
	}
	if in.Status != nil {
		_, errs = parseEnum(errs, "status", *in.Status, Statuses)
	}

	// A blank bhk is not a valid way to clear the field: switching to a
	// non-residential propertyType clears it server-side, and residential
	// records must never lose it.
	if in.BHK != nil {
		_, errs = parseEnum(errs, "bhk", *in.BHK, BHKs)
	}
	if in.PropertyType != nil && propertyType.RequiresBHK() && in.BHK == nil {
		errs = append(errs, ValidationError{Field: "bhk", Message: "BHK is required for Apartment and Villa properties"})
	}

	if in.BudgetMin != nil || in.BudgetMax != nil {
		errs = appendBudgetErrs(errs, in.BudgetMin, in.BudgetMax)
	}
	if in.Notes != nil {
		errs = appendNotesErrs(errs, *in.Notes)
	}

	if in.UpdatedAt.IsZero() {
		errs = append(errs, ValidationError{Field: "updatedAt", Message: "updatedAt concurrency token is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Apply returns a copy of b with the payload's present fields applied.
// The identifier, owner, and timestamps are never touched here; the
// repository assigns a fresh updatedAt on persist. BHK is cleared when
// the effective property type is not residential.
func (in UpdateInput) Apply(b Buyer) Buyer {
	if in.FullName != nil {
		b.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Email != nil {
		b.Email = *in.Email
	}
	if in.Phone != nil {
		b.Phone = *in.Phone
	}
	if in.City != nil {
		b.City = City(*in.City)
	}
	if in.PropertyType != nil {
		b.PropertyType = PropertyType(*in.PropertyType)
	}
	if in.BHK != nil {
		b.BHK = BHK(*in.BHK)
	}
	if in.Purpose != nil {
		b.Purpose = Purpose(*in.Purpose)
	}
	if in.BudgetMin != nil {
		b.BudgetMin = in.BudgetMin
	}
	if in.BudgetMax != nil {
		b.BudgetMax = in.BudgetMax
	}
	if in.Timeline != nil {
		b.Timeline = Timeline(*in.Timeline)
	}
	if in.Source != nil {
		b.Source = Source(*in.Source)
	}
	if in.Status != nil {
		b.Status = Status(*in.Status)
	}
	if in.Notes != nil {
		b.Notes = *in.Notes
	}
	if in.Tags != nil {
		b.Tags = *in.Tags
	}
	if !b.PropertyType.RequiresBHK() {
		b.BHK = ""
	}
	return b
}

// appendFullNameErrs checks the fullName length bounds.
func appendFullNameErrs(errs ValidationErrors, name string) ValidationErrors {
	n := len([]rune(strings.TrimSpace(name)))
	if n < MinFullNameLen {
		return append(errs, ValidationError{Field: "fullName", Message: fmt.Sprintf("Full name must be at least %d characters", MinFullNameLen)})
	}
	if n > MaxFullNameLen {
		return append(errs, ValidationError{Field: "fullName", Message: fmt.Sprintf("Full name must be at most %d characters", MaxFullNameLen)})
	}
	return errs
}

func appendPhoneErrs(errs ValidationErrors, phone string) ValidationErrors {
	if !phoneRegex.MatchString(phone) {
		return append(errs, ValidationError{Field: "phone", Message: "Phone must be 10-15 digits"})
	}
	return errs
}

// appendEmailErrs accepts the empty string: "" is "no email" downstream
// but is preserved as submitted.
func appendEmailErrs(errs ValidationErrors, email string) ValidationErrors {
	if email != "" && !emailRegex.MatchString(email) {
		return append(errs, ValidationError{Field: "email", Message: "Invalid email format"})
	}
	return errs
}

func appendNotesErrs(errs ValidationErrors, notes string) ValidationErrors {
	if len([]rune(notes)) > MaxNotesLen {
		return append(errs, ValidationError{Field: "notes", Message: fmt.Sprintf("Notes must be at most %d characters", MaxNotesLen)})
	}
	return errs
}

// appendBudgetErrs checks that budgets are positive and ordered.
// The ordering violation is reported on budgetMax.
func appendBudgetErrs(errs ValidationErrors, min, max *int) ValidationErrors {
	if min != nil && *min <= 0 {
		errs = append(errs, ValidationError{Field: "budgetMin", Message: "Budget minimum must be positive"})
	}
	if max != nil && *max <= 0 {
		errs = append(errs, ValidationError{Field: "budgetMax", Message: "Budget maximum must be positive"})
	}
	if min != nil && max != nil && *min > 0 && *max > 0 && *max < *min {
		errs = append(errs, ValidationError{Field: "budgetMax", Message: "Budget maximum must be greater than or equal to budget minimum"})
	}
	return errs
}

// parseBHK enforces the conditional bhk rule for creates: required for
// residential property types, ignored otherwise. rawPropertyType guards
// against reporting a bhk error when the property type itself is invalid.
func parseBHK(errs ValidationErrors, raw string, propertyType PropertyType, rawPropertyType string) (BHK, ValidationErrors) {
	if propertyType.RequiresBHK() {
		if raw == "" {
			return "", append(errs, ValidationError{Field: "bhk", Message: "BHK is required for Apartment and Villa properties"})
		}
		bhk, errs := parseEnum(errs, "bhk", raw, BHKs)
		return bhk, errs
	}
	if raw != "" && rawPropertyType != "" && !enumValid(rawPropertyType, PropertyTypes) {
		// Property type is invalid, so the bhk rule cannot be decided;
		// the propertyType error already covers the payload.
		return "", errs
	}
	// Non-residential types carry no bedroom count.
	return "", errs
}

// parseEnum validates raw against the allowed values of an enum and
// returns the typed value. Comparison is exact: enum literals are
// case-sensitive.
func parseEnum[T ~string](errs ValidationErrors, field, raw string, allowed []T) (T, ValidationErrors) {
	for _, v := range allowed {
		if raw == string(v) {
			return v, errs
		}
	}
	opts := make([]string, len(allowed))
	for i, v := range allowed {
		opts[i] = string(v)
	}
	return "", append(errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("invalid enum value, must be one of: %s", strings.Join(opts, ", ")),
	})
}

func enumValid[T ~string](raw string, allowed []T) bool {
	for _, v := range allowed {
		if raw == string(v) {
			return true
		}
	}
	return false
}
