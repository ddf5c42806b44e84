package core

import (
	"regexp"

	"gardencore/pkg/domain"
)

var (
	// Deliberately permissive: any non-whitespace local part and domain with
	// at least one dot.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Exactly ten digits, no separators.
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// ValidateUserPayload checks user registration and update input.
func ValidateUserPayload(p UserPayload) error {
	if p.Name == "" {
		return domain.NewInvalidPayload("name is required")
	}
	if p.Email == "" {
		return domain.NewInvalidPayload("email is required")
	}
	if !emailPattern.MatchString(p.Email) {
		return domain.NewInvalidPayload("email %q is malformed", p.Email)
	}
	if p.Phone == "" {
		return domain.NewInvalidPayload("phone is required")
	}
	if !phonePattern.MatchString(p.Phone) {
		return domain.NewInvalidPayload("phone %q must be exactly ten digits", p.Phone)
	}
	switch p.Role {
	case "", domain.RoleUser, domain.RoleAdmin:
	default:
		return domain.NewInvalidPayload("role %q is not recognized", p.Role)
	}
	return nil
}

// ValidatePlotPayload checks plot input.
func ValidatePlotPayload(p PlotPayload) error {
	if p.OwnerID == 0 {
		return domain.NewInvalidPayload("owner_id is required")
	}
	if p.Size == "" {
		return domain.NewInvalidPayload("size is required")
	}
	if p.Location == "" {
		return domain.NewInvalidPayload("location is required")
	}
	return nil
}

// ValidateActivityPayload checks activity input.
func ValidateActivityPayload(p ActivityPayload) error {
	if p.PlotID == 0 {
		return domain.NewInvalidPayload("plot_id is required")
	}
	if p.Description == "" {
		return domain.NewInvalidPayload("description is required")
	}
	if p.Date == "" {
		return domain.NewInvalidPayload("date is required")
	}
	return nil
}

// ValidateResourcePayload checks resource input.
func ValidateResourcePayload(p ResourcePayload) error {
	if p.Name == "" {
		return domain.NewInvalidPayload("name is required")
	}
	if p.Quantity == 0 {
		return domain.NewInvalidPayload("quantity must be positive")
	}
	return nil
}

// ValidateEventPayload checks event input.
func ValidateEventPayload(p EventPayload) error {
	if p.Title == "" {
		return domain.NewInvalidPayload("title is required")
	}
	if p.Description == "" {
		return domain.NewInvalidPayload("description is required")
	}
	if p.Date == "" {
		return domain.NewInvalidPayload("date is required")
	}
	if p.Location == "" {
		return domain.NewInvalidPayload("location is required")
	}
	return nil
}
