package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/roach88/starcube/internal/store"
)

const salesSchema = `
CREATE TABLE sales (
	id INTEGER PRIMARY KEY,
	amount INTEGER,
	discount INTEGER,
	fact_detail1 TEXT,
	fact_detail2 TEXT,
	flag INTEGER,
	date_id INTEGER,
	product_id INTEGER,
	category_id INTEGER
);
CREATE TABLE dim_date (
	id INTEGER PRIMARY KEY,
	day INTEGER,
	month INTEGER,
	month_name TEXT,
	month_sname TEXT,
	year INTEGER
);
CREATE TABLE dim_product (
	id INTEGER PRIMARY KEY,
	category_id INTEGER,
	product_name TEXT
);
CREATE TABLE dim_category (
	id INTEGER PRIMARY KEY,
	category_name_en TEXT,
	category_name_sk TEXT,
	subcategory_id INTEGER,
	subcategory_name_en TEXT,
	subcategory_name_sk TEXT
);
`

const calendarSchema = `
CREATE TABLE dim_date (
	id INTEGER PRIMARY KEY,
	year INTEGER,
	quarter INTEGER,
	month INTEGER,
	week INTEGER,
	day INTEGER
);
CREATE TABLE ft_cube (
	id INTEGER PRIMARY KEY,
	date_id INTEGER
);
`

// SalesFactCount is the number of rows in the sales fixture fact table.
const SalesFactCount = 82

// OpenStore opens an in-memory store with the given driver and closes it
// when the test ends.
func OpenStore(t testing.TB, driver string) *store.Store {
	t.Helper()
	s, err := store.Open(driver, store.MemoryDSN)
	if err != nil {
		t.Fatalf("open %s store: %v", driver, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// SalesStore loads the sales fixture: one fact on product 1 plus nine facts
// on each of products 2..10, all dated 2012-03-08 and all in category 10.
func SalesStore(t testing.TB, driver string) *store.Store {
	t.Helper()
	s := OpenStore(t, driver)
	ctx := context.Background()

	mustExec(t, s.ExecScript(ctx, salesSchema))

	fact := []any{1, 100, 20, "foo", "bar", 1, 20120308, 1, 10}
	facts := [][]any{fact}
	for j := 1; j < 10; j++ {
		for i := 1; i < 10; i++ {
			row := append([]any{}, fact...)
			row[0] = 1 + i + j*10
			row[7] = 1 + i
			facts = append(facts, row)
		}
	}
	mustExec(t, s.InsertRows(ctx, "sales",
		[]string{"id", "amount", "discount", "fact_detail1", "fact_detail2", "flag", "date_id", "product_id", "category_id"},
		facts))

	mustExec(t, s.InsertRows(ctx, "dim_date",
		[]string{"id", "day", "month", "month_name", "month_sname", "year"},
		[][]any{{20120308, 8, 3, "March", "Mar", 2012}}))

	products := [][]any{{1, 10, "Cool Thing"}}
	for i := 1; i < 10; i++ {
		products = append(products, []any{1 + i, 10, "Cool Thing" + strconv.Itoa(i)})
	}
	mustExec(t, s.InsertRows(ctx, "dim_product", []string{"id", "category_id", "product_name"}, products))

	mustExec(t, s.InsertRows(ctx, "dim_category",
		[]string{"id", "category_name_en", "category_name_sk", "subcategory_id", "subcategory_name_en", "subcategory_name_sk"},
		[][]any{{10, "Things", "Veci", 20, "Cool Things", "Super Veci"}}))

	return s
}

// CalendarStore loads the calendar fixture: a dim_date row and one fact for
// every day of 2000. Weeks are numbered like strftime's %U: Sunday starts
// a week and days before the first Sunday are week 0.
func CalendarStore(t testing.TB, driver string) *store.Store {
	t.Helper()
	s := OpenStore(t, driver)
	ctx := context.Background()

	mustExec(t, s.ExecScript(ctx, calendarSchema))

	var dates, facts [][]any
	start := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	for d, i := start, 1; d.Before(end); d, i = d.AddDate(0, 0, 1), i+1 {
		id := d.Year()*10000 + int(d.Month())*100 + d.Day()
		dates = append(dates, []any{id, d.Year(), (int(d.Month())-1)/3 + 1, int(d.Month()), SundayWeek(d), d.Day()})
		facts = append(facts, []any{i, id})
	}

	mustExec(t, s.InsertRows(ctx, "dim_date", []string{"id", "year", "quarter", "month", "week", "day"}, dates))
	mustExec(t, s.InsertRows(ctx, "ft_cube", []string{"id", "date_id"}, facts))

	return s
}

// SundayWeek returns the week of the year with Sunday as the first day of
// the week, 0..53.
func SundayWeek(d time.Time) int {
	return (d.YearDay() - 1 + 7 - int(d.Weekday())) / 7
}

func mustExec(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
}
