package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("amountstring", validAmountString)
	}
}

// validAmountString accepts a positive integer amount in decimal string
// form, the only shape the ledger works with
func validAmountString(fl validator.FieldLevel) bool {
	value, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return value.IsPositive() && value.IsInteger()
}
