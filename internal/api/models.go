package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Amount is a decimal money value held in hundredths. The service sends
// decimals as JSON strings or numbers; both decode.
type Amount int64

// NewAmount converts a float to an Amount, rounding to the nearest cent.
func NewAmount(f float64) Amount {
	return Amount(math.Round(f * 100))
}

// Float64 returns the amount in whole units.
func (a Amount) Float64() float64 {
	return float64(a) / 100
}

func (a Amount) String() string {
	return strconv.FormatFloat(a.Float64(), 'f', 2, 64)
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*a = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		data = []byte(s)
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("api: invalid amount %q", data)
	}

	*a = NewAmount(f)

	return nil
}

const dateLayout = time.DateOnly

// Date is a calendar date sent as YYYY-MM-DD. Full RFC 3339 timestamps are
// accepted on input and truncated to the date.
type Date struct {
	time.Time
}

// NewDate returns the Date for year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("api: invalid date %q: want YYYY-MM-DD", s)
	}

	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}

	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*d = Date{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("api: date must be a string: %w", err)
	}

	if s == "" {
		*d = Date{}
		return nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = NewDate(t.Year(), t.Month(), t.Day())
		return nil
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

// Transaction is a single receipt or expense.
type Transaction struct {
	ID           int    `json:"id,omitempty"`
	Date         Date   `json:"date"`
	Type         string `json:"type"`
	Amount       Amount `json:"amount"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	ProjectID    *int   `json:"project_id,omitempty"`
	DepartmentID *int   `json:"department_id,omitempty"`
	ProvinceID   *int   `json:"province_id,omitempty"`
	ApprovedBy   *int   `json:"approved_by,omitempty"`
	CreatedBy    *int   `json:"created_by,omitempty"`
}

// Budget is a department's allocation for one year.
type Budget struct {
	ID              int    `json:"id,omitempty"`
	Year            int    `json:"year"`
	DepartmentID    int    `json:"department_id"`
	AllocatedAmount Amount `json:"allocated_amount"`
	ActualSpent     Amount `json:"actual_spent"`
	Variance        Amount `json:"variance"`
}

// Project is a funded church project.
type Project struct {
	ID         int    `json:"id,omitempty"`
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	ProvinceID *int   `json:"province_id,omitempty"`
	Status     string `json:"status,omitempty"`
	StartDate  Date   `json:"start_date"`
	EndDate    Date   `json:"end_date"`
}

// Obligation is an amount owed by a due date.
type Obligation struct {
	ID              int    `json:"id,omitempty"`
	Description     string `json:"description"`
	Amount          Amount `json:"amount"`
	DueDate         Date   `json:"due_date"`
	Status          string `json:"status,omitempty"`
	LinkedProjectID *int   `json:"linked_project_id,omitempty"`
}

// Province is a regional grouping of congregations.
type Province struct {
	ID                int     `json:"id,omitempty"`
	Name              string  `json:"name"`
	Region            string  `json:"region,omitempty"`
	Currency          string  `json:"currency,omitempty"`
	AllocationPercent float64 `json:"allocation_percent"`
	PerformanceRank   *int    `json:"performance_rank,omitempty"`
}

// Department is an internal budget holder.
type Department struct {
	ID              int    `json:"id,omitempty"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	BudgetAllocated Amount `json:"budget_allocated"`
	BudgetSpent     Amount `json:"budget_spent"`
}

// DashboardSummary is the receipts/expenses aggregate for all time or one
// year.
type DashboardSummary struct {
	TotalReceipts Amount `json:"total_receipts"`
	TotalExpenses Amount `json:"total_expenses"`
	Net           Amount `json:"net"`
}

// StatementLine is one transaction in a province statement.
type StatementLine struct {
	Date        Date   `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	Category    string `json:"category,omitempty"`
}

// StatementSummary totals a province statement.
type StatementSummary struct {
	TotalReceipts Amount `json:"total_receipts"`
	TotalExpenses Amount `json:"total_expenses"`
	NetAmount     Amount `json:"net_amount"`
}

// ProvinceStatement lists a province's transactions over a date range.
type ProvinceStatement struct {
	ProvinceName string           `json:"province_name"`
	Period       string           `json:"period"`
	Transactions []StatementLine  `json:"transactions"`
	Summary      StatementSummary `json:"summary"`
}
