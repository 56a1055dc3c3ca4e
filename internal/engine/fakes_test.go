package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"db-transfer/internal/gateway"
	"db-transfer/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/samber/lo"
)

type fakeTable struct {
	def  *schema.Table
	rows [][]any
}

// fakeSource is an in-memory source database. Rows are kept in primary key
// order, which is the order page reads return.
type fakeSource struct {
	mu          sync.Mutex
	name        string
	order       []string
	tables      map[string]*fakeTable
	offsets     map[string][]int64
	listErr     error
	describeErr map[string]error
	extractErr  map[string]error
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{
		name:        name,
		tables:      make(map[string]*fakeTable),
		offsets:     make(map[string][]int64),
		describeErr: make(map[string]error),
		extractErr:  make(map[string]error),
	}
}

func (s *fakeSource) add(def *schema.Table, rows [][]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def.Source = s.name
	if _, ok := s.tables[def.Name]; !ok {
		s.order = append(s.order, def.Name)
	}
	s.tables[def.Name] = &fakeTable{def: def, rows: rows}
}

func (s *fakeSource) appendRows(table string, rows ...[]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table].rows = append(s.tables[table].rows, rows...)
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) ListTables(context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]string(nil), s.order...), nil
}

func (s *fakeSource) Describe(_ context.Context, _, table string) (*schema.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.describeErr[table]; err != nil {
		return nil, err
	}
	ft, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %s not found or has no columns", table)
	}
	def := *ft.def
	return &def, nil
}

func (s *fakeSource) matching(table string, pred *gateway.Predicate) [][]any {
	ft := s.tables[table]
	if pred == nil {
		return ft.rows
	}
	idx := lo.IndexOf(ft.def.ColumnNames(), pred.Column)
	return lo.Filter(ft.rows, func(row []any, _ int) bool {
		return row[idx].(int64) > pred.Value.(int64)
	})
}

func (s *fakeSource) RowCount(_ context.Context, table string, pred *gateway.Predicate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matching(table, pred))), nil
}

func (s *fakeSource) ExtractPage(_ context.Context, table *schema.Table, offset, limit int64, pred *gateway.Predicate) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets[table.Name] = append(s.offsets[table.Name], offset)
	if err := s.extractErr[table.Name]; err != nil {
		return nil, err
	}

	rows := s.matching(table.Name, pred)
	if offset >= int64(len(rows)) {
		return [][]any{}, nil
	}
	end := min(offset+limit, int64(len(rows)))
	page := make([][]any, 0, end-offset)
	for _, row := range rows[offset:end] {
		page = append(page, append([]any(nil), row...))
	}
	return page, nil
}

func (s *fakeSource) offsetsOf(table string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.offsets[table]...)
}

type destTable struct {
	columns []string
	rows    [][]any
}

// fakeDestination is an in-memory analytical store.
type fakeDestination struct {
	mu          sync.Mutex
	tables      map[string]*destTable
	created     []string
	truncated   []string
	insertCalls map[string]int
	failInsert  map[string]int // table -> 1-based insert call that fails
	truncateErr error
	maxErr      error
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{
		tables:      make(map[string]*destTable),
		insertCalls: make(map[string]int),
		failInsert:  make(map[string]int),
	}
}

func (d *fakeDestination) seed(name string, columns []string, rows [][]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[name] = &destTable{columns: columns, rows: rows}
}

func (d *fakeDestination) TableExists(_ context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tables[name]
	return ok, nil
}

func (d *fakeDestination) CreateTable(_ context.Context, name string, columns []*schema.Column) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[name]; ok {
		return nil
	}
	names := lo.Map(columns, func(c *schema.Column, _ int) string { return c.Name })
	d.tables[name] = &destTable{columns: names}
	d.created = append(d.created, name)
	return nil
}

func (d *fakeDestination) BulkInsert(_ context.Context, name string, _ []string, rows [][]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.insertCalls[name]++
	if n := d.failInsert[name]; n > 0 && d.insertCalls[name] == n {
		return errors.New("insert rejected")
	}
	d.tables[name].rows = append(d.tables[name].rows, rows...)
	return nil
}

func (d *fakeDestination) MaxValue(_ context.Context, name, column string) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.maxErr != nil {
		return nil, d.maxErr
	}
	t, ok := d.tables[name]
	if !ok || len(t.rows) == 0 {
		return nil, nil
	}
	idx := lo.IndexOf(t.columns, column)
	return lo.MaxBy(t.rows, func(a, b []any) bool { return a[idx].(int64) > b[idx].(int64) })[idx], nil
}

func (d *fakeDestination) Truncate(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.truncated = append(d.truncated, name)
	if d.truncateErr != nil {
		return d.truncateErr
	}
	if t, ok := d.tables[name]; ok {
		t.rows = nil
	}
	return nil
}

func (d *fakeDestination) RowCount(_ context.Context, name string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tables[name]
	if !ok {
		return 0, fmt.Errorf("table %s does not exist", name)
	}
	return int64(len(t.rows)), nil
}

func (d *fakeDestination) rows(name string) [][]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tables[name]; ok {
		return t.rows
	}
	return nil
}

type closeCounter struct {
	mu sync.Mutex
	n  int
}

func (c *closeCounter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func (c *closeCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func eventsDef() *schema.Table {
	return &schema.Table{
		Name:       "Events",
		PrimaryKey: []string{"id"},
		Columns: []*schema.Column{
			{Name: "id", DataType: "bigint", IsPK: true},
			{Name: "name", DataType: "nvarchar", IsNullable: true},
			{Name: "created", DataType: "datetime"},
		},
	}
}

func eventRows(faker *gofakeit.Faker, from, to int64) [][]any {
	rows := make([][]any, 0, to-from+1)
	for id := from; id <= to; id++ {
		rows = append(rows, []any{id, faker.Name(), faker.Date()})
	}
	return rows
}

func ordersDef() *schema.Table {
	return &schema.Table{
		Name: "Orders",
		Columns: []*schema.Column{
			{Name: "ref", DataType: "nvarchar"},
			{Name: "amount", DataType: "decimal", IsNullable: true},
		},
	}
}

func orderRows(faker *gofakeit.Faker, n int) [][]any {
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []any{faker.UUID(), []byte(fmt.Sprintf("%.2f", faker.Price(1, 500)))})
	}
	return rows
}

func linesDef() *schema.Table {
	return &schema.Table{
		Name:       "OrderLines",
		PrimaryKey: []string{"order_id", "line_no"},
		Columns: []*schema.Column{
			{Name: "order_id", DataType: "int", IsPK: true},
			{Name: "line_no", DataType: "int", IsPK: true},
			{Name: "sku", DataType: "varchar"},
		},
	}
}

func lineRows(faker *gofakeit.Faker, n int) [][]any {
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []any{int64(i/3 + 1), int64(i%3 + 1), faker.Word()})
	}
	return rows
}
