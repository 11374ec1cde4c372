// Package validate checks customer-entered forms and reports one message
// per failing field.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	personNameRe = regexp.MustCompile(`^[A-Za-z ]{2,50}$`)
	mobileRe     = regexp.MustCompile(`^[6-9][0-9]{9}$`)
)

const (
	MsgName      = "name must be 2-50 letters and spaces"
	MsgPhone     = "phone must be a 10-digit mobile number starting with 6-9"
	MsgAddress   = "address must be at least 10 characters"
	MsgEmail     = "email is invalid"
	MsgPassword  = "password must be at least 8 characters"
	MsgPartySize = "party size must be between 1 and 50"
	MsgTime      = "reservation time must be in the future"
)

// FieldErrors maps a JSON field name to its message. Empty means valid.
type FieldErrors map[string]string

func (f FieldErrors) OK() bool {
	return len(f) == 0
}

// Error lets FieldErrors travel as an error value; use errors.As to get
// the individual messages back.
func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+": "+v)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldMessages maps the JSON name of a field to its message. A field
// produces the same message whatever tag failed.
var fieldMessages = map[string]string{
	"name":      MsgName,
	"phone":     MsgPhone,
	"address":   MsgAddress,
	"email":     MsgEmail,
	"password":  MsgPassword,
	"partySize": MsgPartySize,
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = val.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNameRe.MatchString(fl.Field().String())
	})
	_ = val.RegisterValidation("inmobile", func(fl validator.FieldLevel) bool {
		return mobileRe.MatchString(fl.Field().String())
	})
	return val
}

func check(s interface{}) FieldErrors {
	out := FieldErrors{}
	err := v.Struct(s)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		out[fe.Field()] = msg
	}
	return out
}

// Recipient is the delivery contact entered at checkout.
type Recipient struct {
	Name    string `json:"name" validate:"personname"`
	Phone   string `json:"phone" validate:"inmobile"`
	Address string `json:"address" validate:"required,min=10"`
}

// Normalize trims surrounding whitespace from every field.
func (r Recipient) Normalize() Recipient {
	return Recipient{
		Name:    strings.TrimSpace(r.Name),
		Phone:   strings.TrimSpace(r.Phone),
		Address: strings.TrimSpace(r.Address),
	}
}

// Checkout validates a recipient before an order is placed.
func Checkout(r Recipient) FieldErrors {
	return check(r.Normalize())
}

// ReservationInput is the table booking / contact form.
type ReservationInput struct {
	Name      string    `json:"name" validate:"personname"`
	Phone     string    `json:"phone" validate:"inmobile"`
	Email     string    `json:"email" validate:"omitempty,email"`
	PartySize int       `json:"partySize" validate:"min=1,max=50"`
	Time      time.Time `json:"time"`
}

// Reservation validates the booking form. The requested time must be after now.
func Reservation(in ReservationInput, now time.Time) FieldErrors {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)

	errs := check(in)
	if !in.Time.After(now) {
		errs["time"] = MsgTime
	}
	return errs
}

// Registration is the customer sign-up form.
type Registration struct {
	Name     string `json:"name" validate:"personname"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,inmobile"`
	Password string `json:"password" validate:"min=8,max=72"`
}

func Register(r Registration) FieldErrors {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	return check(r)
}
