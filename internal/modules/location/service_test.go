package location

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/database/dbtest"
)

func TestDefaultLayout(t *testing.T) {
	layout, err := DefaultLayout()
	require.NoError(t, err)
	require.Len(t, layout.Locations, 1)

	loc := layout.Locations[0]
	assert.Equal(t, int64(1), loc.Number)
	assert.Equal(t, "GLENDORA", loc.Name)

	spots := loc.Spots()
	assert.Len(t, spots, 6+12+12+9+6+2)

	byCode := map[string]*Spot{}
	for _, s := range spots {
		byCode[s.Code] = s
	}
	assert.Equal(t, CategoryWillCallConstruction, byCode["W2C"].Category)
	assert.Equal(t, [2]int{1, 2}, [2]int{byCode["W2C"].GridRow, byCode["W2C"].GridCol})
	assert.Equal(t, [2]int{1, 5}, [2]int{byCode["W4F"].GridRow, byCode["W4F"].GridCol})
	assert.Equal(t, "Pending Returns 2", byCode["PR-2"].Name)
	assert.Equal(t, [2]int{0, 1}, [2]int{byCode["PR-2"].GridRow, byCode["PR-2"].GridCol})
	assert.Equal(t, "LT-1A", byCode["LT-1A"].Name)
}

func TestParseLayout_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", `locations: []`},
		{"unknown category", "locations:\n  - number: 2\n    name: X\n    sections:\n      - category: attic\n        columns: 1\n        spots: [A]\n"},
		{"zero columns", "locations:\n  - number: 2\n    name: X\n    sections:\n      - category: staging\n        columns: 0\n        spots: [A]\n"},
		{"duplicate code", "locations:\n  - number: 2\n    name: X\n    sections:\n      - category: staging\n        columns: 2\n        spots: [A, A]\n"},
		{"unknown field", "locations:\n  - number: 2\n    name: X\n    colour: red\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayout([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestCategoryOrderSQL(t *testing.T) {
	got := CategoryOrderSQL("s.category")
	assert.Contains(t, got, "WHEN 'will_call_construction' THEN 0")
	assert.Contains(t, got, "WHEN 'pending_returns' THEN 5")
}

func TestSeed_Idempotent(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), zap.NewNop())
	ctx := context.Background()

	layout, err := DefaultLayout()
	require.NoError(t, err)

	res, err := svc.Seed(ctx, layout)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LocationsCreated)
	assert.Equal(t, 47, res.SpotsInserted)
	assert.Zero(t, res.SpotsUpdated)

	res, err = svc.Seed(ctx, layout)
	require.NoError(t, err)
	assert.Zero(t, res.LocationsCreated)
	assert.Zero(t, res.SpotsInserted)
	assert.Equal(t, 47, res.SpotsUpdated)

	spots, err := svc.ListSpots(ctx, uuid.Nil, false)
	require.NoError(t, err)
	require.Len(t, spots, 47)
	assert.Equal(t, "W1A", spots[0].Code)
	assert.Equal(t, "PR-2", spots[len(spots)-1].Code)
}

func TestListSpots_AvailableOnly(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), zap.NewNop())
	ctx := context.Background()

	layout, err := DefaultLayout()
	require.NoError(t, err)
	_, err = svc.Seed(ctx, layout)
	require.NoError(t, err)

	all, err := svc.ListSpots(ctx, uuid.Nil, false)
	require.NoError(t, err)
	occupied := all[0]

	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `
		INSERT INTO staging_records (id, spot_id, status, staged_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`, uuid.New(), occupied.ID, "ready", now, now)
	require.NoError(t, err)

	free, err := svc.ListSpots(ctx, occupied.LocationID, true)
	require.NoError(t, err)
	assert.Len(t, free, len(all)-1)
	for _, s := range free {
		assert.NotEqual(t, occupied.ID, s.ID)
	}

	got, err := svc.GetSpot(ctx, occupied.ID)
	require.NoError(t, err)
	assert.Equal(t, occupied.Code, got.Code)

	_, err = svc.GetSpot(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
