package api

import (
	"fmt"
	"net/url"
	"strconv"
)

// Kind names a CRUD resource collection.
type Kind string

// Resource collections exposed by the service.
const (
	Transactions Kind = "transactions"
	Budgets      Kind = "budgets"
	Projects     Kind = "projects"
	Obligations  Kind = "obligations"
	Provinces    Kind = "provinces"
	Departments  Kind = "departments"
)

// Kinds lists every CRUD collection in display order.
var Kinds = []Kind{Transactions, Budgets, Projects, Obligations, Provinces, Departments}

// ParseKind returns the Kind named s, accepting the singular form too.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if s == string(k) || s+"s" == string(k) {
			return k, nil
		}
	}

	return "", fmt.Errorf("api: unknown resource %q", s)
}

// DefaultResourcesPath is the prefix every resource path is built under.
const DefaultResourcesPath = "/resources"

// Paths builds endpoint keys for the resource surfaces.
type Paths struct {
	Prefix string
}

// NewPaths returns a builder rooted at prefix ("" means DefaultResourcesPath).
func NewPaths(prefix string) Paths {
	if prefix == "" {
		prefix = DefaultResourcesPath
	}

	return Paths{Prefix: prefix}
}

// Collection returns the path of kind's collection.
func (p Paths) Collection(kind Kind) string {
	return p.Prefix + "/" + string(kind)
}

// Item returns the path of one item of kind.
func (p Paths) Item(kind Kind, id int) string {
	return p.Collection(kind) + "/" + strconv.Itoa(id)
}

// BudgetsForYear returns the budgets listing, filtered by year when year > 0.
func (p Paths) BudgetsForYear(year int) string {
	if year <= 0 {
		return p.Collection(Budgets)
	}

	return p.Collection(Budgets) + "?" + url.Values{"year": {strconv.Itoa(year)}}.Encode()
}

// Dashboard returns the analytics summary path, for one year when year > 0.
func (p Paths) Dashboard(year int) string {
	base := p.Prefix + "/analytics/dashboard"
	if year <= 0 {
		return base
	}

	return base + "/" + strconv.Itoa(year)
}

// ProvinceStatement returns the statement path for a province and an
// inclusive date range. A zero provinceID yields "", the empty key, so a
// view with no selected province issues no request.
func (p Paths) ProvinceStatement(provinceID int, from, to Date) string {
	if provinceID <= 0 {
		return ""
	}

	q := url.Values{}
	if !from.IsZero() {
		q.Set("start_date", from.String())
	}

	if !to.IsZero() {
		q.Set("end_date", to.String())
	}

	path := p.Prefix + "/province-statement/" + strconv.Itoa(provinceID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	return path
}
