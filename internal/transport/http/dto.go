package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"demcli/pkg/contracts/domain"
)

// validate is the shared validator instance for request payloads.
var validate = validator.New()

const dateLayout = "2006-01-02"

// FilterPayload is the wire form of the record filter. Dates travel as
// YYYY-MM-DD strings and are inclusive bounds.
type FilterPayload struct {
	PurchaseOrders []string `json:"purchase_orders,omitempty"`
	Vessels        []string `json:"vessels,omitempty"`
	Containers     []string `json:"containers,omitempty"`
	FinalStatuses  []string `json:"final_statuses,omitempty"`
	LoadingTypes   []string `json:"loading_types,omitempty"`
	CargoTypes     []string `json:"cargo_types,omitempty"`
	Shipowners     []string `json:"shipowners,omitempty"`
	DischargeFrom  string   `json:"discharge_from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DischargeTo    string   `json:"discharge_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DeadlineFrom   string   `json:"deadline_from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DeadlineTo     string   `json:"deadline_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Search         string   `json:"search,omitempty"`
}

// ToCriteria converts the payload into domain filter criteria. Validate must
// have passed first; the date parses cannot fail after that.
func (p FilterPayload) ToCriteria() domain.FilterCriteria {
	return domain.FilterCriteria{
		PurchaseOrders: p.PurchaseOrders,
		Vessels:        p.Vessels,
		Containers:     p.Containers,
		FinalStatuses:  p.FinalStatuses,
		LoadingTypes:   p.LoadingTypes,
		CargoTypes:     p.CargoTypes,
		Shipowners:     p.Shipowners,
		DischargeFrom:  parseDate(p.DischargeFrom),
		DischargeTo:    parseDate(p.DischargeTo),
		DeadlineFrom:   parseDate(p.DeadlineFrom),
		DeadlineTo:     parseDate(p.DeadlineTo),
		Search:         p.Search,
	}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// QueryRequest is the payload of POST /data/query.
type QueryRequest struct {
	Filters   FilterPayload `json:"filters"`
	SortField string        `json:"sort_field,omitempty"`
	SortDir   string        `json:"sort_dir,omitempty" validate:"omitempty,oneof=asc desc none"`
}

// Direction maps the wire value onto the domain sort direction.
func (q QueryRequest) Direction() domain.SortDirection {
	switch q.SortDir {
	case "asc":
		return domain.SortAsc
	case "desc":
		return domain.SortDesc
	default:
		return domain.SortNone
	}
}

// AnalyticsRequest is the payload shared by the analytics endpoints.
type AnalyticsRequest struct {
	Filters FilterPayload `json:"filters"`
}

// RatesRequest is the payload of PUT /rates.
type RatesRequest struct {
	Default float64            `json:"default" validate:"required,gt=0"`
	Rates   map[string]float64 `json:"rates" validate:"omitempty,dive,gt=0"`
}

// ToTable converts the payload into a normalized domain rate table.
func (p RatesRequest) ToTable() domain.RateTable {
	return domain.RateTable{Default: p.Default, Rates: p.Rates}.Normalized()
}

// PaidRequest is the payload of PATCH /paid/{container}.
type PaidRequest struct {
	Paid bool `json:"paid"`
}

// LanguageRequest is the payload of PUT /language.
type LanguageRequest struct {
	Language string `json:"language" validate:"required,min=2,max=8"`
}

// StatusResponse describes the working dataset.
type StatusResponse struct {
	Records        int    `json:"records"`
	LastUpdate     string `json:"last_update,omitempty"`
	ViewingHistory bool   `json:"viewing_history"`
	Language       string `json:"language"`
}

// validatePayload runs struct validation and wraps the first failure into a
// readable error.
func validatePayload(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("field %s failed on %s", f.Field(), f.Tag())
		}
		return err
	}
	return nil
}
