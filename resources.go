package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/churchfinance/ledger-go/internal/api"
	"github.com/churchfinance/ledger-go/internal/resource"
)

var (
	flagListYear int
	flagData     string
	flagDataFile string
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "list <kind>",
		Short:     "List transactions, budgets, projects, obligations, provinces or departments",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE:      runList,
	}

	cmd.Flags().IntVar(&flagListYear, "year", 0, "budget year (budgets only)")

	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE:  runGet,
	}
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <kind>",
		Short: "Create a record from JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreate,
	}

	addPayloadFlags(cmd)

	return cmd
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <kind> <id>",
		Short: "Replace a record with JSON",
		Args:  cobra.ExactArgs(2),
		RunE:  runUpdate,
	}

	addPayloadFlags(cmd)

	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE:  runDelete,
	}
}

func addPayloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagData, "data", "", "record as inline JSON")
	cmd.Flags().StringVar(&flagDataFile, "file", "", "read the record from a JSON file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("data", "file")
	cmd.MarkFlagsOneRequired("data", "file")
}

func kindNames() []string {
	names := make([]string, 0, len(api.Kinds))
	for _, k := range api.Kinds {
		names = append(names, string(k))
	}

	return names
}

// parseKindAndID parses the <kind> <id> argument pair.
func parseKindAndID(args []string) (api.Kind, int, error) {
	kind, err := api.ParseKind(args[0])
	if err != nil {
		return "", 0, err
	}

	id, err := strconv.Atoi(args[1])
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid %s id %q", kind, args[1])
	}

	return kind, id, nil
}

// authorize resolves the session once and checks the role may open every
// one of views. Offline reads skip both: they only show what this machine
// already fetched.
func (a *app) authorize(ctx context.Context, views ...view) error {
	if flagOffline {
		return nil
	}

	id, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	for _, v := range views {
		if err := requireView(id.Role, v); err != nil {
			return err
		}
	}

	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	kind, err := api.ParseKind(args[0])
	if err != nil {
		return err
	}

	if flagListYear != 0 && kind != api.Budgets {
		return errors.New("--year applies to budgets only")
	}

	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		if err := a.authorize(ctx, kindView(kind)); err != nil {
			return err
		}

		key := a.paths.Collection(kind)
		if kind == api.Budgets {
			key = a.paths.BudgetsForYear(flagListYear)
		}

		switch kind {
		case api.Transactions:
			return listKind(ctx, a, key, transactionTable)
		case api.Budgets:
			return listKind(ctx, a, key, budgetTable)
		case api.Projects:
			return listKind(ctx, a, key, projectTable)
		case api.Obligations:
			return listKind(ctx, a, key, obligationTable)
		case api.Provinces:
			return listKind(ctx, a, key, provinceTable)
		default:
			return listKind(ctx, a, key, departmentTable)
		}
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	kind, id, err := parseKindAndID(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		if err := a.authorize(ctx, kindView(kind)); err != nil {
			return err
		}

		key := a.paths.Item(kind, id)

		switch kind {
		case api.Transactions:
			return getKind(ctx, a, key, transactionTable)
		case api.Budgets:
			return getKind(ctx, a, key, budgetTable)
		case api.Projects:
			return getKind(ctx, a, key, projectTable)
		case api.Obligations:
			return getKind(ctx, a, key, obligationTable)
		case api.Provinces:
			return getKind(ctx, a, key, provinceTable)
		default:
			return getKind(ctx, a, key, departmentTable)
		}
	})
}

// listKind fetches the collection at key, or reads it from the cache with
// --offline, and prints it.
func listKind[T any](ctx context.Context, a *app, key string, t tableLayout[T]) error {
	rows, err := load[[]T](ctx, a, key)
	if err != nil {
		return err
	}

	var items []T
	if rows != nil {
		items = *rows
	}

	if flagJSON {
		if items == nil {
			items = []T{}
		}

		return printJSON(os.Stdout, items)
	}

	if len(items) == 0 {
		statusf(flagQuiet, "No records.\n")
		return nil
	}

	return printTable(os.Stdout, t.headers, t.rows(items))
}

func getKind[T any](ctx context.Context, a *app, key string, t tableLayout[T]) error {
	item, err := load[T](ctx, a, key)
	if err != nil {
		return err
	}

	if item == nil {
		return fmt.Errorf("%s returned no record", key)
	}

	if flagJSON {
		return printJSON(os.Stdout, item)
	}

	return printTable(os.Stdout, t.headers, t.rows([]T{*item}))
}

// load runs a query for key and returns its settled data. With --offline
// it returns the cached response instead.
func load[T any](ctx context.Context, a *app, key string) (*T, error) {
	if flagOffline {
		return loadCached[T](a, key)
	}

	q := resource.NewQuery[T](a.client, a.queryOptions()...)
	defer q.Close()

	st := q.SetKey(ctx, key)
	if st.Err != "" {
		return nil, errors.New(st.Err)
	}

	return st.Data, nil
}

func loadCached[T any](a *app, key string) (*T, error) {
	if a.cache == nil {
		return nil, errors.New("--offline needs the response cache; enable cache.enabled in the config")
	}

	data, storedAt, ok, err := resource.Lookup[T](a.cache, key)
	if err != nil {
		return nil, fmt.Errorf("reading cached %s: %w", key, err)
	}

	if !ok {
		return nil, fmt.Errorf("nothing cached for %s; run the command online first", key)
	}

	statusf(flagQuiet, "Showing cached data from %s.\n", formatTime(storedAt.Local()))

	return data, nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	kind, err := api.ParseKind(args[0])
	if err != nil {
		return err
	}

	payload, err := readPayload(os.Stdin)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		if err := a.authorizeWrite(ctx, kind); err != nil {
			return err
		}

		m := resource.Create[json.RawMessage](a.client, a.mutationOptions(kind)...)

		return reportMutation(m.Do(ctx, a.paths.Collection(kind), payload), "Created", kind)
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	kind, id, err := parseKindAndID(args)
	if err != nil {
		return err
	}

	payload, err := readPayload(os.Stdin)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		if err := a.authorizeWrite(ctx, kind); err != nil {
			return err
		}

		m := resource.Update[json.RawMessage](a.client, a.mutationOptions(kind)...)

		return reportMutation(m.Do(ctx, a.paths.Item(kind, id), payload), "Updated", kind)
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	kind, id, err := parseKindAndID(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		if err := a.authorizeWrite(ctx, kind); err != nil {
			return err
		}

		m := resource.Delete[json.RawMessage](a.client, a.mutationOptions(kind)...)

		res := m.Do(ctx, a.paths.Item(kind, id), nil)
		if !res.Success {
			return errors.New(res.Err)
		}

		statusf(flagQuiet, "Deleted %s %d.\n", kind, id)

		return nil
	})
}

func (a *app) authorizeWrite(ctx context.Context, kind api.Kind) error {
	if flagOffline {
		return errors.New("--offline is read-only")
	}

	return a.authorize(ctx, kindView(kind))
}

// mutationOptions evicts every cached response under the kind's collection,
// which covers filtered listings such as budgets for one year, and the
// dashboard, which aggregates transactions.
func (a *app) mutationOptions(kind api.Kind) []resource.Option {
	return a.queryOptions(
		resource.Evicts(a.paths.Collection(kind)),
		resource.Evicts(a.paths.Dashboard(0)),
	)
}

// readPayload returns the --data or --file JSON.
func readPayload(stdin io.Reader) (json.RawMessage, error) {
	var raw []byte

	switch {
	case flagData != "":
		raw = []byte(flagData)
	case flagDataFile == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading record from stdin: %w", err)
		}

		raw = b
	case flagDataFile != "":
		b, err := os.ReadFile(flagDataFile)
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}

		raw = b
	default:
		return nil, errors.New("one of --data or --file is required")
	}

	if !json.Valid(raw) {
		return nil, errors.New("record is not valid JSON")
	}

	return json.RawMessage(raw), nil
}

// reportMutation prints the outcome of a create or update.
func reportMutation(res resource.Result[json.RawMessage], verb string, kind api.Kind) error {
	if !res.Success {
		return errors.New(res.Err)
	}

	if flagJSON && res.Data != nil {
		return printJSON(os.Stdout, *res.Data)
	}

	var created struct {
		ID int `json:"id"`
	}

	if res.Data != nil {
		_ = json.Unmarshal(*res.Data, &created)
	}

	if created.ID > 0 {
		statusf(flagQuiet, "%s %s %d.\n", verb, kind, created.ID)
	} else {
		statusf(flagQuiet, "%s %s.\n", verb, kind)
	}

	return nil
}

// tableLayout renders records of one kind as table rows.
type tableLayout[T any] struct {
	headers []string
	row     func(T) []string
}

func (t tableLayout[T]) rows(items []T) [][]string {
	out := make([][]string, 0, len(items))
	for _, it := range items {
		out = append(out, t.row(it))
	}

	return out
}

func optID(id *int) string {
	if id == nil {
		return "-"
	}

	return formatID(*id)
}

var transactionTable = tableLayout[api.Transaction]{
	headers: []string{"ID", "DATE", "TYPE", "AMOUNT", "CATEGORY", "DESCRIPTION"},
	row: func(t api.Transaction) []string {
		return []string{
			formatID(t.ID), formatDate(t.Date), t.Type, formatMoney(t.Amount),
			orDash(t.Category), orDash(t.Description),
		}
	},
}

var budgetTable = tableLayout[api.Budget]{
	headers: []string{"ID", "YEAR", "DEPARTMENT", "ALLOCATED", "SPENT", "VARIANCE"},
	row: func(b api.Budget) []string {
		return []string{
			formatID(b.ID), strconv.Itoa(b.Year), formatID(b.DepartmentID),
			formatMoney(b.AllocatedAmount), formatMoney(b.ActualSpent), formatSigned(b.Variance),
		}
	},
}

var projectTable = tableLayout[api.Project]{
	headers: []string{"ID", "NAME", "TYPE", "PROVINCE", "STATUS", "START", "END"},
	row: func(p api.Project) []string {
		return []string{
			formatID(p.ID), p.Name, orDash(p.Type), optID(p.ProvinceID),
			orDash(p.Status), formatDate(p.StartDate), formatDate(p.EndDate),
		}
	},
}

var obligationTable = tableLayout[api.Obligation]{
	headers: []string{"ID", "DESCRIPTION", "AMOUNT", "DUE", "STATUS", "PROJECT"},
	row: func(o api.Obligation) []string {
		return []string{
			formatID(o.ID), o.Description, formatMoney(o.Amount), formatDate(o.DueDate),
			orDash(o.Status), optID(o.LinkedProjectID),
		}
	},
}

var provinceTable = tableLayout[api.Province]{
	headers: []string{"ID", "NAME", "REGION", "CURRENCY", "ALLOCATION", "RANK"},
	row: func(p api.Province) []string {
		return []string{
			formatID(p.ID), p.Name, orDash(p.Region), orDash(p.Currency),
			strconv.FormatFloat(p.AllocationPercent, 'f', -1, 64) + "%", optID(p.PerformanceRank),
		}
	},
}

var departmentTable = tableLayout[api.Department]{
	headers: []string{"ID", "NAME", "ALLOCATED", "SPENT", "DESCRIPTION"},
	row: func(d api.Department) []string {
		return []string{
			formatID(d.ID), d.Name, formatMoney(d.BudgetAllocated), formatMoney(d.BudgetSpent),
			orDash(d.Description),
		}
	},
}
