package request

import (
	"errors"
	"time"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

// phonePattern accepts international numbers with optional spaces between
// digit groups. The lookahead needs regexp2.
var phonePattern = regexp2.MustCompile(`^(?=(?:\D*\d){8,15}\D*$)\+?[0-9][0-9 ]*$`, regexp2.None)

var (
	errInvalidPhone    = errors.New("must be a valid phone number")
	errInvalidDate     = errors.New("must be a date in YYYY-MM-DD format")
	errInvalidTime     = errors.New("must be a time in HH:MM format")
	errInvalidFuelType = errors.New("must be one of ESSENCE, DIESEL, GPL, KEROSENE")
)

var isPhone = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	ok, err := phonePattern.MatchString(s)
	if err != nil || !ok {
		return errInvalidPhone
	}

	return nil
})

var isDate = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := domain.ParseDate(s); err != nil {
		return errInvalidDate
	}

	return nil
})

var isTime = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if _, err := time.Parse(domain.TimeLayout, s); err != nil {
		return errInvalidTime
	}

	return nil
})

var isFuelType = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if !domain.FuelType(s).Valid() {
		return errInvalidFuelType
	}

	return nil
})

// optionalDate parses s when it is set. Validate must have run first.
func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}

	d, err := domain.ParseDate(s)
	if err != nil {
		return nil
	}

	return &d
}
