package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		wantErr bool
	}{
		{"simple", "dialogues", false},
		{"underscore and digits", "_run_2024", false},
		{"empty", "", true},
		{"leading digit", "1table", true},
		{"injection", "x; DROP TABLE y", true},
		{"quote", `a"b`, true},
		{"schema qualified", "public.dialogues", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTableName(tt.table)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsTarget(t *testing.T) {
	assert.True(t, IsTarget("postgres://localhost/db"))
	assert.True(t, IsTarget("PostgreSQL://localhost/db"))
	assert.False(t, IsTarget("out/data.json"))
	assert.False(t, IsTarget("mysql://localhost/db"))
}

func TestParseTarget(t *testing.T) {
	dsn, table, err := ParseTarget("postgres://user:pw@localhost:5432/gen?sslmode=disable&table=run_1")
	require.NoError(t, err)
	assert.Equal(t, "run_1", table)
	assert.Equal(t, "postgres://user:pw@localhost:5432/gen?sslmode=disable", dsn)

	_, table, err = ParseTarget("postgres://localhost/gen")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, table)

	_, _, err = ParseTarget("postgres://localhost/gen?table=bad-name")
	assert.Error(t, err)

	_, _, err = ParseTarget("file:///tmp/out.json")
	assert.Error(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	target := os.Getenv("DIALOGEN_TEST_DATABASE_URL")
	if target == "" {
		t.Skip("DIALOGEN_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	dsn, _, err := ParseTarget(target)
	require.NoError(t, err)
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	table := fmt.Sprintf("dialogen_test_%d", time.Now().UnixNano())
	store, err := NewStore(ctx, db, table, nil)
	require.NoError(t, err)
	defer func() {
		_, _ = db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
		store.Close()
	}()

	ds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ds)

	want := dataset.Dataset{
		{Conversation: dataset.Dialogue{{Instruction: "請介紹台北", Output: "台北是..."}}, Seeds: []string{"s1"}},
		{Conversation: dataset.Dialogue{{Instruction: "Q", Output: "A"}, {Instruction: "Q", Output: "A"}}},
	}
	require.NoError(t, store.Save(ctx, want))
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
