package profile

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
	"unicode/utf8"
)

const (
	maxNameLen      = 200
	maxTextLen      = 5000
	maxRegions      = 50
	maxRegionLen    = 100
	minFoundingYear = 1800
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks p and returns the first failure as a *ValidationError.
func Validate(p BusinessProfile) error {
	return validateAt(p, time.Now().UTC())
}

func validateAt(p BusinessProfile, now time.Time) error {
	if p.BusinessName == "" {
		return &ValidationError{Field: "businessName", Message: "Business name is required"}
	}
	if utf8.RuneCountInString(p.BusinessName) > maxNameLen {
		return &ValidationError{Field: "businessName", Message: fmt.Sprintf("Business name must be at most %d characters", maxNameLen)}
	}

	if p.YearEstablished != "" {
		year, err := strconv.Atoi(p.YearEstablished)
		if err != nil || len(p.YearEstablished) != 4 || year < minFoundingYear || year > now.Year()+1 {
			return &ValidationError{Field: "yearEstablished", Message: "Year established must be a four-digit year"}
		}
	}

	if len(p.OperatingRegions) > maxRegions {
		return &ValidationError{Field: "operatingRegions", Message: fmt.Sprintf("At most %d operating regions are allowed", maxRegions)}
	}
	for _, region := range p.OperatingRegions {
		if utf8.RuneCountInString(region) > maxRegionLen {
			return &ValidationError{Field: "operatingRegions", Message: fmt.Sprintf("Operating region names must be at most %d characters", maxRegionLen)}
		}
	}

	fields, order := profileFields()
	v := reflect.ValueOf(p)
	for _, tag := range order {
		info := fields[tag]
		if info.kind != reflect.String || tag == "businessName" {
			continue
		}
		if utf8.RuneCountInString(v.Field(info.index).String()) > maxTextLen {
			return &ValidationError{Field: tag, Message: fmt.Sprintf("%s must be at most %d characters", tag, maxTextLen)}
		}
	}
	return nil
}
