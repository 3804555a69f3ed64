package main

import (
	"fmt"
	"slices"

	"github.com/churchfinance/ledger-go/internal/api"
)

// Roles the finance service assigns.
const (
	roleAdmin        = "Admin"
	roleFinanceChair = "FinanceChair"
	roleTreasurer    = "Treasurer"
	roleSecretary    = "Secretary"
	roleViewer       = "Viewer"
)

// view names a screen whose visibility depends on the user's role.
type view string

const (
	viewDashboard         view = "dashboard"
	viewTransactions      view = "transactions"
	viewBudgets           view = "budgets"
	viewProjects          view = "projects"
	viewObligations       view = "obligations"
	viewReports           view = "reports"
	viewProvinceStatement view = "province statement"
	viewReference         view = "reference data"
)

var (
	allRoles   = []string{roleAdmin, roleFinanceChair, roleTreasurer, roleSecretary, roleViewer}
	staffRoles = []string{roleAdmin, roleFinanceChair, roleTreasurer, roleSecretary}
	fundRoles  = []string{roleAdmin, roleFinanceChair, roleTreasurer}
)

// viewRoles is the static allow-list of roles per view.
var viewRoles = map[view][]string{
	viewDashboard:         allRoles,
	viewTransactions:      staffRoles,
	viewBudgets:           fundRoles,
	viewProjects:          staffRoles,
	viewObligations:       fundRoles,
	viewReports:           allRoles,
	viewProvinceStatement: staffRoles,
	viewReference:         staffRoles,
}

// kindView maps a resource kind to the view that shows it. Provinces and
// departments are lookup data for the transaction forms.
func kindView(k api.Kind) view {
	switch k {
	case api.Transactions:
		return viewTransactions
	case api.Budgets:
		return viewBudgets
	case api.Projects:
		return viewProjects
	case api.Obligations:
		return viewObligations
	default:
		return viewReference
	}
}

// allowed reports whether role may open v.
func allowed(role string, v view) bool {
	return slices.Contains(viewRoles[v], role)
}

// requireView fails unless role may open v. The service enforces its own
// permissions; this only keeps the CLI from offering views the user cannot
// use.
func requireView(role string, v view) error {
	if allowed(role, v) {
		return nil
	}

	if role == "" {
		role = "no role"
	}

	return fmt.Errorf("the %s view is not available to %s", v, role)
}

// visibleViews lists the views role may open, in menu order.
func visibleViews(role string) []view {
	order := []view{
		viewDashboard, viewTransactions, viewBudgets, viewProjects,
		viewObligations, viewReports, viewProvinceStatement,
	}

	var out []view

	for _, v := range order {
		if allowed(role, v) {
			out = append(out, v)
		}
	}

	return out
}
