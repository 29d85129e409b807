package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/normalize"
)

// MaxNotesLength is the longest free-text note accepted, in characters
const MaxNotesLength = 1000

// MaxHeadcount guards against typos such as an extra digit
const MaxHeadcount = 10000

// SpaceCatalog describes which centers exist and how they subdivide
type SpaceCatalog interface {
	Centers() []models.Center
	Subdivided(center models.Center) bool
	Spaces(center models.Center) []string
}

// Validator checks submissions and roster entries before they reach the ledger
type Validator struct {
	catalog SpaceCatalog
}

// NewValidator creates a new validator instance
func NewValidator(catalog SpaceCatalog) *Validator {
	return &Validator{catalog: catalog}
}

// ValidateAttendance validates a candidate submission. Center and space are
// checked after normalization, the same way they will be stored.
func (v *Validator) ValidateAttendance(req *models.SubmitRequest) []models.ValidationError {
	var errors []models.ValidationError

	// Validate date
	if strings.TrimSpace(req.Date) == "" {
		errors = append(errors, models.ValidationError{Field: "date", Message: "date is required"})
	} else if _, ok := normalize.ParseDate(req.Date); !ok {
		errors = append(errors, models.ValidationError{
			Field:   "date",
			Message: "invalid date, use YYYY-MM-DD or DD/MM/YYYY",
			Value:   req.Date,
		})
	}

	// Validate center and space
	center := normalize.NormalizeCenter(req.Center)
	switch {
	case center == "":
		errors = append(errors, models.ValidationError{Field: "center", Message: "center is required"})
	case !v.knownCenter(center):
		errors = append(errors, models.ValidationError{
			Field:   "center",
			Message: fmt.Sprintf("unknown center, must be one of: %s", v.centerList()),
			Value:   req.Center,
		})
	default:
		errors = append(errors, v.validateSpace(center, normalize.CleanCell(req.Space))...)
	}

	// Validate headcount
	if req.Headcount == nil {
		errors = append(errors, models.ValidationError{Field: "headcount", Message: "headcount is required"})
	} else if *req.Headcount < 0 {
		errors = append(errors, models.ValidationError{Field: "headcount", Message: "headcount must not be negative", Value: *req.Headcount})
	} else if *req.Headcount > MaxHeadcount {
		errors = append(errors, models.ValidationError{
			Field:   "headcount",
			Message: fmt.Sprintf("headcount exceeds maximum of %d", MaxHeadcount),
			Value:   *req.Headcount,
		})
	}

	// Validate notes
	if n := utf8.RuneCountInString(req.Notes); n > MaxNotesLength {
		errors = append(errors, models.ValidationError{
			Field:   "notes",
			Message: fmt.Sprintf("notes exceed maximum of %d characters (has %d)", MaxNotesLength, n),
		})
	}

	// Validate new attendees
	seen := make(map[string]bool, len(req.NewAttendees))
	for _, raw := range req.NewAttendees {
		name := normalize.CleanCell(raw)
		if name == "" {
			errors = append(errors, models.ValidationError{Field: "new_attendees", Message: "attendee name is empty"})
			continue
		}
		if seen[name] {
			errors = append(errors, models.ValidationError{Field: "new_attendees", Message: "duplicate attendee", Value: name})
		}
		seen[name] = true
	}

	return errors
}

func (v *Validator) validateSpace(center models.Center, space string) []models.ValidationError {
	if !v.catalog.Subdivided(center) {
		if space != "" && space != models.GeneralSpace {
			return []models.ValidationError{{
				Field:   "space",
				Message: fmt.Sprintf("%s has no spaces, leave space empty", center),
				Value:   space,
			}}
		}
		return nil
	}

	spaces := v.catalog.Spaces(center)
	if space == "" || space == models.GeneralSpace {
		return []models.ValidationError{{
			Field:   "space",
			Message: fmt.Sprintf("space is required for %s", center),
		}}
	}
	for _, s := range spaces {
		if s == space {
			return nil
		}
	}
	return []models.ValidationError{{
		Field:   "space",
		Message: fmt.Sprintf("invalid space, must be one of: %s", strings.Join(spaces, ", ")),
		Value:   space,
	}}
}

// ValidatePerson validates a manual roster entry
func (v *Validator) ValidatePerson(req *models.PersonRequest) []models.ValidationError {
	var errors []models.ValidationError

	if normalize.CleanCell(req.Name) == "" {
		errors = append(errors, models.ValidationError{Field: "name", Message: "name is required"})
	}

	center := normalize.NormalizeCenter(req.Center)
	if center == "" {
		errors = append(errors, models.ValidationError{Field: "center", Message: "center is required"})
	} else if !v.knownCenter(center) {
		errors = append(errors, models.ValidationError{
			Field:   "center",
			Message: fmt.Sprintf("unknown center, must be one of: %s", v.centerList()),
			Value:   req.Center,
		})
	}

	if strings.TrimSpace(req.Frequency) != "" && normalize.NormalizeFrequency(req.Frequency) == models.FrequencyUnset {
		errors = append(errors, models.ValidationError{
			Field:   "frequency",
			Message: "invalid frequency, must be one of: Diaria, Semanal, Mensual, No asiste",
			Value:   req.Frequency,
		})
	}

	return errors
}

func (v *Validator) knownCenter(center models.Center) bool {
	for _, c := range v.catalog.Centers() {
		if c == center {
			return true
		}
	}
	return false
}

func (v *Validator) centerList() string {
	names := make([]string, 0)
	for _, c := range v.catalog.Centers() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
