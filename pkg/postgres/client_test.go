package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/config"
)

func testConfig() config.PostgresConfig {
	port, err := strconv.Atoi(os.Getenv("TEST_POSTGRES_PORT"))
	if err != nil {
		port = 5432
	}
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	return config.PostgresConfig{
		Host:            get("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        get("TEST_POSTGRES_DB", "smartretrieval_test"),
		User:            get("TEST_POSTGRES_USER", "smartretrieval"),
		Password:        get("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
}

func connect(t *testing.T) *Client {
	t.Helper()
	c, err := New(context.Background(), testConfig())
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Host, cfg.Port = "127.0.0.1", 1
	_, err := New(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "pinging postgres") {
		t.Errorf("err = %v, want a ping failure", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	c := connect(t)
	ctx := context.Background()
	table := "tx_test_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if _, err := c.DB.ExecContext(ctx, "CREATE TABLE "+table+" (n INT)"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.DB.Exec("DROP TABLE " + table) })

	boom := errors.New("boom")
	err := c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+table+" VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	var n int
	if err := c.DB.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows = %d after rollback, want 0", n)
	}
}

func TestInReadTxRejectsWrites(t *testing.T) {
	c := connect(t)
	ctx := context.Background()
	table := "ro_test_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if _, err := c.DB.ExecContext(ctx, "CREATE TABLE "+table+" (n INT)"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.DB.Exec("DROP TABLE " + table) })

	err := c.InReadTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO "+table+" VALUES (1)")
		return err
	})
	if err == nil {
		t.Error("write inside a read-only transaction succeeded")
	}
}
