package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type PaymentRequest struct {
	MerchantID    string                 `json:"merchant_id" binding:"required,uuid"`
	Amount        decimal.Decimal        `json:"amount" binding:"required,gt=0"`
	Currency      string                 `json:"currency" binding:"required,len=3,alpha"`
	PaymentMethod PaymentMethod          `json:"payment_method" binding:"required,oneof=card bank_transfer digital_wallet"`
	Description   string                 `json:"description,omitempty" binding:"max=500"`
	CustomerEmail string                 `json:"customer_email,omitempty" binding:"omitempty,email"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`

	// Fraud is the risk verdict obtained before processing. It is never
	// read from the wire.
	Fraud *FraudAssessment `json:"-" binding:"-"`
}

// FraudAssessment is stored on the payment created from the request.
type FraudAssessment struct {
	RiskScore float64
	Reason    string
}

var ErrAmountPrecision = errors.New("amount must have at most 2 decimal places")

// Normalize upper-cases the currency and enforces the amount scale, which
// struct tags cannot express.
func (r *PaymentRequest) Normalize() error {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	if !r.Amount.Equal(r.Amount.Round(2)) {
		return ErrAmountPrecision
	}
	return nil
}

// RegisterDecimal teaches v to compare decimal.Decimal fields as float64 so
// gt/required tags work on amounts.
func RegisterDecimal(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// NewValidator returns a validator that reads the same `binding` tags gin uses.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	RegisterDecimal(v)
	return v
}

// ValidationMessage flattens validator errors into one readable line.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed on '"+fe.Tag()+"'")
	}
	return "invalid request: " + strings.Join(parts, "; ")
}
