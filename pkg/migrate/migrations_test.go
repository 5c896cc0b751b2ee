package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rahulmehra/mandiflow-backend/pkg/migrate"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDeliveryMigrationGuardsDuplicateProvisioning(t *testing.T) {
	content := readMigration(t, "*_create_delivery_tracking.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_tracking_order_id",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_tracking_tracking_number",
		"DROP TABLE IF EXISTS delivery_status_histories",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCatalogMigrationKeepsStockNonNegative(t *testing.T) {
	content := readMigration(t, "*_create_catalog.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_retailer_product",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_wholesaler_product",
		"CHECK (stock_quantity >= 0)",
		"CHECK (minimum_order_quantity >= 1)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
