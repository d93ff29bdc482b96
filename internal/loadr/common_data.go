package loadr

import "github.com/brianvoe/gofakeit/v7"

// Shared lists for fixture data and workload generation.

var Categories = []string{"books", "electronics", "garden", "grocery", "toys", "apparel", "sports", "office"}

var OrderStatuses = []string{"PENDING", "PAID", "SHIPPED", "DELIVERED", "CANCELLED"}

var ExportFormats = []string{"csv", "json", "sql"}

// FixtureTables are the tables Load creates.
var FixtureTables = []string{"customers", "products", "orders"}

func pick(f *gofakeit.Faker, list []string) string {
	return list[f.Number(0, len(list)-1)]
}
