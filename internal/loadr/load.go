package loadr

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// sqlEscape escapes single quotes for safe inline SQL generation.
func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Load writes the fixture database described by cfg to cfg.Output.
func Load(cfg SeedConfig) error {
	f, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if err := WriteSeed(f, cfg); err != nil {
		return err
	}
	logger.L().Infow("loadr: seed written", "output", cfg.Output, "driver", cfg.Driver)
	return nil
}

// WriteSeed renders DDL and INSERTs for cfg. The same seed always yields
// the same output.
func WriteSeed(w io.Writer, cfg SeedConfig) error {
	faker := gofakeit.New(uint64(cfg.Seed))
	bw := bufio.NewWriter(w)

	switch cfg.Driver {
	case "postgres":
		fmt.Fprintf(bw, "-- Generated SQL for PostgreSQL\n-- Import with: psql -U <user> -d <db> -f %s\n\n", cfg.Output)
	case "mysql":
		fmt.Fprintf(bw, "-- Generated SQL for MySQL\n-- Import with: mysql -u <user> -p <db> < %s\n\n", cfg.Output)
	case "sqlite3":
		fmt.Fprintf(bw, "-- Generated SQL for SQLite\n-- Import with: sqlite3 <file.db> < %s\n\n", cfg.Output)
	default:
		return fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	writeDDL(bw, cfg.Driver)
	writeCustomers(bw, faker, cfg.Customers)
	writeProducts(bw, faker, cfg.Products)
	writeOrders(bw, faker, cfg)
	fmt.Fprintln(bw, "CREATE INDEX idx_orders_customer ON orders (customer_id);")
	fmt.Fprintln(bw, "CREATE INDEX idx_orders_status ON orders (status);")

	logger.L().Infow("loadr: generation complete",
		"customers", cfg.Customers,
		"products", cfg.Products,
		"orders", cfg.Orders)
	return bw.Flush()
}

func writeDDL(w io.Writer, driver string) {
	text, ts := "TEXT", "TIMESTAMP"
	if driver == "mysql" {
		text, ts = "VARCHAR(255)", "DATETIME"
	}
	for i := len(FixtureTables) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "DROP TABLE IF EXISTS %s;\n", FixtureTables[i])
	}
	fmt.Fprintf(w, `CREATE TABLE customers (
    customer_id INTEGER PRIMARY KEY,
    name %[1]s NOT NULL,
    email %[1]s NOT NULL,
    city %[1]s,
    country %[1]s,
    signed_up DATE NOT NULL
);
CREATE TABLE products (
    product_id INTEGER PRIMARY KEY,
    name %[1]s NOT NULL,
    category %[1]s NOT NULL,
    price NUMERIC(10,2) NOT NULL,
    stock INTEGER NOT NULL,
    active BOOLEAN NOT NULL
);
CREATE TABLE orders (
    order_id INTEGER PRIMARY KEY,
    customer_id INTEGER NOT NULL REFERENCES customers(customer_id),
    product_id INTEGER NOT NULL REFERENCES products(product_id),
    quantity INTEGER NOT NULL,
    status %[1]s NOT NULL,
    ordered_at %[2]s NOT NULL
);

`, text, ts)
}

func writeCustomers(w io.Writer, f *gofakeit.Faker, n int) {
	for i := 1; i <= n; i++ {
		first, last := f.FirstName(), f.LastName()
		email := strings.ToLower(fmt.Sprintf("%s.%s%d@example.org", first, last, f.Number(10, 99)))
		signed := f.DateRange(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		fmt.Fprintf(w, "INSERT INTO customers (customer_id, name, email, city, country, signed_up) VALUES (%d, '%s', '%s', '%s', '%s', '%s');\n",
			i, sqlEscape(first+" "+last), sqlEscape(email), sqlEscape(f.City()), sqlEscape(f.Country()), signed.Format("2006-01-02"))
	}
	fmt.Fprintln(w)
}

func writeProducts(w io.Writer, f *gofakeit.Faker, n int) {
	for i := 1; i <= n; i++ {
		active := "TRUE"
		if f.Number(0, 9) == 0 {
			active = "FALSE"
		}
		fmt.Fprintf(w, "INSERT INTO products (product_id, name, category, price, stock, active) VALUES (%d, '%s', '%s', %.2f, %d, %s);\n",
			i, sqlEscape(f.ProductName()), pick(f, Categories), f.Price(1, 500), f.Number(0, 1000), active)
	}
	fmt.Fprintln(w)
}

func writeOrders(w io.Writer, f *gofakeit.Faker, cfg SeedConfig) {
	for i := 1; i <= cfg.Orders; i++ {
		at := f.DateRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		fmt.Fprintf(w, "INSERT INTO orders (order_id, customer_id, product_id, quantity, status, ordered_at) VALUES (%d, %d, %d, %d, '%s', '%s');\n",
			i, f.Number(1, cfg.Customers), f.Number(1, cfg.Products), f.Number(1, 5), pick(f, OrderStatuses), at.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w)
}
