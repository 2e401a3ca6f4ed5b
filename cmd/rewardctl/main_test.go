package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/config"
	"github.com/learnquest/rewards-engine/internal/app"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

const discountTOML = `
id = "save-10"
name = "Save 10%"
type = "DISCOUNT"
trigger = "LEVEL_UP"
expiration_days = 7

[value]
percentage = 10
code = "SAVE10"
`

func writeDefinition(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "def.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// useMemoryEngine points the CLI at one in-memory engine for the whole test.
func useMemoryEngine(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory

	clock := shared.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	a, err := app.New(context.Background(), cfg, app.Options{Output: io.Discard, Clock: clock})
	require.NoError(t, err)

	prev := openEngine
	openEngine = func(context.Context, *config.Config) (*app.App, func() error, error) {
		return a, func() error { return nil }, nil
	}
	t.Setenv("STORE_DRIVER", "memory")
	t.Cleanup(func() {
		openEngine = prev
		_ = a.Close()
	})
	return a
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--output", "text"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDecodeDefinitionFile_Discount(t *testing.T) {
	p, err := decodeDefinitionFile(writeDefinition(t, discountTOML))
	require.NoError(t, err)

	assert.Equal(t, "save-10", p.ID)
	assert.Equal(t, reward.TypeDiscount, p.Type)
	assert.Equal(t, reward.TriggerLevelUp, p.Trigger)
	assert.Equal(t, reward.DiscountValue{Percentage: 10, Code: "SAVE10"}, p.Value)
	assert.True(t, p.IsActive)
	require.NotNil(t, p.ExpirationDays)
	assert.Equal(t, 7, *p.ExpirationDays)
}

func TestDecodeDefinitionFile_PointsBareValue(t *testing.T) {
	p, err := decodeDefinitionFile(writeDefinition(t, `
name = "Bonus"
type = "points"
trigger = "lesson_completion"
is_active = false
value = 50
`))
	require.NoError(t, err)

	assert.Equal(t, reward.PointsValue{Points: 50}, p.Value)
	assert.False(t, p.IsActive)
}

func TestDecodeDefinitionFile_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown type":    "name = \"x\"\ntype = \"voucher\"\ntrigger = \"LEVEL_UP\"\nvalue = 1\n",
		"unknown trigger": "name = \"x\"\ntype = \"POINTS\"\ntrigger = \"LOGIN\"\nvalue = 1\n",
		"missing value":   "name = \"x\"\ntype = \"POINTS\"\ntrigger = \"LEVEL_UP\"\n",
		"unknown key":     "name = \"x\"\ntype = \"POINTS\"\ntrigger = \"LEVEL_UP\"\nvalue = 1\ncolour = \"red\"\n",
		"bad payload":     "name = \"x\"\ntype = \"DISCOUNT\"\ntrigger = \"LEVEL_UP\"\n[value]\npercentage = 150\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeDefinitionFile(writeDefinition(t, body))
			assert.Error(t, err)
		})
	}
}

func TestCLI_CatalogAwardConsume(t *testing.T) {
	a := useMemoryEngine(t)
	_, err := a.AddUser(context.Background(), "u1", "Ada")
	require.NoError(t, err)

	out, err := runCLI(t, "catalog", "create", "--file", writeDefinition(t, discountTOML))
	require.NoError(t, err)
	assert.Contains(t, out, "created reward save-10")

	out, err = runCLI(t, "award", "u1", "save-10")
	require.NoError(t, err)
	assert.Contains(t, out, "awarded save-10 to u1")

	out, err = runCLI(t, "consume", "u1", "save-10")
	require.NoError(t, err)
	assert.Contains(t, out, "consumed save-10")

	_, err = runCLI(t, "consume", "u1", "save-10")
	assert.ErrorIs(t, err, shared.ErrRewardAlreadyConsumed)
}

func TestCLI_JSONOutput(t *testing.T) {
	a := useMemoryEngine(t)
	_, err := a.AddUser(context.Background(), "u1", "")
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--output", "json", "points", "credit", "u1", "150"})
	require.NoError(t, rootCmd.Execute())

	var entry struct {
		Points int64
		Level  int
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, int64(150), entry.Points)
	assert.Equal(t, 2, entry.Level)
}

func TestCLI_Validation(t *testing.T) {
	useMemoryEngine(t)

	_, err := runCLI(t, "points", "credit", "u1", "lots")
	assert.Error(t, err)

	_, err = runCLI(t, "catalog", "list", "--active", "--inactive")
	assert.Error(t, err)

	_, err = runCLI(t, "migrate")
	assert.EqualError(t, err, "migrations require the postgres driver")
}
