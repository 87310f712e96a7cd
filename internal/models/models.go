package models

import (
	"errors"
	"time"
)

var ErrInvalidSettings = errors.New("invalid deduction settings")
var ErrInvalidCalculation = errors.New("invalid calculation request")

const (
	FieldPersonalDeduction = "Personal Deduction"
	FieldKReceipt          = "K Receipt"
)

type Credential struct {
	Username string
	Password string
}

type DeductionSettings struct {
	PersonalDeduction float64 `json:"personalDeduction"`
	KReceipt          float64 `json:"kReceipt"`
}

// UpdateRequest is a partial patch of DeductionSettings. A nil field is
// absent and must be left untouched upstream.
type UpdateRequest struct {
	PersonalDeduction *float64 `json:"personalDeduction,omitempty"`
	KReceipt          *float64 `json:"kReceipt,omitempty"`
}

func (r UpdateRequest) IsEmpty() bool {
	return r.PersonalDeduction == nil && r.KReceipt == nil
}

func (r UpdateRequest) Validate() error {
	if r.PersonalDeduction != nil && *r.PersonalDeduction < 0 {
		return ErrInvalidSettings
	}
	if r.KReceipt != nil && *r.KReceipt < 0 {
		return ErrInvalidSettings
	}
	return nil
}

type UpdateOutcome struct {
	UpdatedFields []string `json:"-"`
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
}

type Allowance struct {
	AllowanceType string  `json:"allowanceType"`
	Amount        float64 `json:"amount"`
}

type CalculationRequest struct {
	TotalIncome       float64     `json:"totalIncome"`
	WHT               float64     `json:"wht"`
	Allowances        []Allowance `json:"allowances"`
	PersonalDeduction float64     `json:"personalDeduction"`
	IncludeTaxLevel   bool        `json:"includeTaxLevel,omitempty"`
}

func (r CalculationRequest) Validate() error {
	if r.TotalIncome < 0 || r.WHT < 0 || r.PersonalDeduction < 0 {
		return ErrInvalidCalculation
	}
	for _, a := range r.Allowances {
		if a.AllowanceType == "" || a.Amount < 0 {
			return ErrInvalidCalculation
		}
	}
	return nil
}

type TaxLevel struct {
	Level string  `json:"level"`
	Tax   float64 `json:"tax"`
}

type CalculationResult struct {
	Tax       float64    `json:"tax"`
	TaxRefund *float64   `json:"taxRefund,omitempty"`
	TaxLevel  []TaxLevel `json:"taxLevel,omitempty"`
}

type CalculationRecord struct {
	ID          string    `json:"id"`
	RequestedAt time.Time `json:"requestedAt"`
	TotalIncome float64   `json:"totalIncome"`
	Tax         float64   `json:"tax"`
}

type Summary struct {
	TotalRequests int     `json:"totalRequests"`
	TotalTax      float64 `json:"totalTax"`
}
