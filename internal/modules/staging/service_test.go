package staging_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/database"
	"github.com/georgemunganga/materialive/internal/database/dbtest"
	"github.com/georgemunganga/materialive/internal/modules/auth"
	"github.com/georgemunganga/materialive/internal/modules/location"
	"github.com/georgemunganga/materialive/internal/modules/purchasing"
	"github.com/georgemunganga/materialive/internal/modules/staging"
	erpsync "github.com/georgemunganga/materialive/internal/modules/sync"
	"github.com/georgemunganga/materialive/internal/modules/user"
)

var (
	warehouse = auth.Principal{Username: "MARIA", Role: user.RoleWarehouse}
	field     = auth.Principal{Username: "TOM", Role: user.RoleField}
)

type fixture struct {
	db    *database.DB
	svc   staging.Service
	poID  uuid.UUID
	items map[int64]uuid.UUID
	spots map[string]uuid.UUID
	logs  *observer.ObservedLogs
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t)

	layout, err := location.DefaultLayout()
	require.NoError(t, err)
	locRepo := location.NewRepository(db)
	_, err = location.NewService(locRepo, zap.NewNop()).Seed(ctx, layout)
	require.NoError(t, err)

	syncSvc := erpsync.NewService(erpsync.NewRepository(db), zap.NewNop())
	_, err = syncSvc.ReconcileJobs(ctx, []erpsync.JobRecord{
		{JobNum: "J-100", Name: "Main St", Address: "1 Main St", City: "Glendora", State: "CA", Zip: "91740"},
	})
	require.NoError(t, err)
	_, err = syncSvc.ReconcilePurchaseOrders(ctx, []erpsync.PORecord{{
		PONum: erpsync.ExtID{Value: 5001, Valid: true},
		Items: []erpsync.ItemRecord{
			{ItemID: erpsync.ExtID{Value: 1, Valid: true}, ItemNum: "PIPE-2", Des: "2in copper pipe",
				Received: decimal.NewFromInt(10),
				Distributions: []erpsync.DistributionRecord{{JobNum: "J-100", JobName: "Main St"}}},
			{ItemID: erpsync.ExtID{Value: 2, Valid: true}, ItemNum: "VALVE", Des: "ball valve",
				Received: decimal.NewFromInt(4),
				Distributions: []erpsync.DistributionRecord{{JobNum: "J-200", JobName: "Oak Ave"}}},
		},
	}})
	require.NoError(t, err)

	purch := purchasing.NewRepository(db)
	po, err := purch.GetByNumber(ctx, 5001)
	require.NoError(t, err)
	avail, err := purch.ListItemAvailability(ctx, po.ID)
	require.NoError(t, err)
	items := map[int64]uuid.UUID{}
	for _, a := range avail {
		items[a.ExternalID] = a.ID
	}

	spotList, err := locRepo.ListSpots(ctx, uuid.Nil, false)
	require.NoError(t, err)
	spots := map[string]uuid.UUID{}
	for _, s := range spotList {
		spots[s.Code] = s.ID
	}

	core, logs := observer.New(zap.InfoLevel)
	return &fixture{
		db:    db,
		svc:   staging.NewService(staging.NewRepository(db), nil, zap.New(core)),
		poID:  po.ID,
		items: items,
		spots: spots,
		logs:  logs,
	}
}

func (f *fixture) request(spot string, lines ...staging.LineRequest) staging.StageRequest {
	poID := f.poID
	spotID := f.spots[spot]
	return staging.StageRequest{POID: &poID, SpotID: &spotID, Items: lines, PackNumber: "P-1"}
}

func (f *fixture) line(extID int64, qty int64) staging.LineRequest {
	return staging.LineRequest{ItemID: f.items[extID], Quantity: decimal.NewFromInt(qty)}
}

func (f *fixture) countRecords(t *testing.T) int {
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM staging_records`).Scan(&n))
	return n
}

func TestStage_Snapshot(t *testing.T) {
	f := setup(t)
	rec, err := f.svc.Stage(context.Background(), warehouse, f.request("W1A", f.line(1, 4)))
	require.NoError(t, err)

	assert.Equal(t, staging.StatusStaged, rec.Status)
	assert.Equal(t, "W1A", rec.SpotCode)
	assert.Equal(t, "J-100", rec.JobNum)
	assert.Equal(t, "Main St", rec.JobName)
	assert.Equal(t, "1 Main St, Glendora, CA 91740", rec.JobAddress)
	assert.Equal(t, "PIPE-2 - 2in copper pipe (qty 4)", rec.ItemDescriptions)
	assert.False(t, rec.MultiJob)
	require.NotNil(t, rec.PONumber)
	assert.Equal(t, int64(5001), *rec.PONumber)

	got, err := f.svc.GetRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.True(t, decimal.NewFromInt(4).Equal(got.Lines[0].Quantity))
}

func TestStage_ConcurrentSameSpot(t *testing.T) {
	f := setup(t)
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Stage(context.Background(), warehouse, f.request("W1A", f.line(1, 1)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, f.countRecords(t))
}

func TestStage_QuantityBound(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Stage(ctx, warehouse, f.request("W1A", f.line(1, 15)))
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), "got %v", err)
	assert.Zero(t, f.countRecords(t))

	_, err = f.svc.Stage(ctx, warehouse, f.request("W1A", f.line(1, 6)))
	require.NoError(t, err)
	_, err = f.svc.Stage(ctx, warehouse, f.request("W1B", f.line(1, 5)))
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), "only 4 left, got %v", err)
	_, err = f.svc.Stage(ctx, warehouse, f.request("W1B", f.line(1, 4)))
	require.NoError(t, err)
}

func TestStage_ReturnedReleasesQuantity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec, err := f.svc.Stage(ctx, warehouse, f.request("W1A", f.line(2, 4)))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, warehouse, rec.ID, staging.StatusReturned)
	require.NoError(t, err)

	_, err = f.svc.Stage(ctx, warehouse, f.request("W1A", f.line(2, 4)))
	require.NoError(t, err)
}

func TestStage_Validation(t *testing.T) {
	f := setup(t)
	poID := f.poID
	spotID := f.spots["W1A"]
	otherPO := uuid.New()
	missingSpot := uuid.New()

	tests := []struct {
		name string
		p    auth.Principal
		req  staging.StageRequest
		kind apperr.Kind
	}{
		{"field role", field, f.request("W1A", f.line(1, 1)), apperr.KindForbidden},
		{"no destination", warehouse, staging.StageRequest{POID: &poID, Items: []staging.LineRequest{f.line(1, 1)}}, apperr.KindInvalidInput},
		{"both destinations", warehouse, staging.StageRequest{POID: &poID, SpotID: &spotID, CustomLocation: "dock",
			Items: []staging.LineRequest{f.line(1, 1)}}, apperr.KindInvalidInput},
		{"no items", warehouse, f.request("W1A"), apperr.KindInvalidInput},
		{"zero quantity", warehouse, f.request("W1A", f.line(1, 0)), apperr.KindInvalidInput},
		{"duplicate item", warehouse, f.request("W1A", f.line(1, 1), f.line(1, 2)), apperr.KindInvalidInput},
		{"unknown po", warehouse, staging.StageRequest{POID: &otherPO, SpotID: &spotID,
			Items: []staging.LineRequest{f.line(1, 1)}}, apperr.KindNotFound},
		{"unknown item", warehouse, f.request("W1A", staging.LineRequest{ItemID: uuid.New(), Quantity: decimal.NewFromInt(1)}), apperr.KindNotFound},
		{"unknown spot", warehouse, staging.StageRequest{POID: &poID, SpotID: &missingSpot,
			Items: []staging.LineRequest{f.line(1, 1)}}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Stage(context.Background(), tt.p, tt.req)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "got %v", err)
		})
	}
	assert.Zero(t, f.countRecords(t))
}

func TestStage_CustomLocationAndMultiJob(t *testing.T) {
	f := setup(t)
	poID := f.poID
	rec, err := f.svc.Stage(context.Background(), warehouse, staging.StageRequest{
		POID:           &poID,
		CustomLocation: "  Yard by gate 2 ",
		Items:          []staging.LineRequest{f.line(1, 2), f.line(2, 1)},
	})
	require.NoError(t, err)
	require.NotNil(t, rec.CustomLocation)
	assert.Equal(t, "Yard by gate 2", *rec.CustomLocation)
	assert.Nil(t, rec.SpotID)
	assert.True(t, rec.MultiJob)
	assert.Equal(t, "J-100", rec.JobNum)
	assert.Equal(t, 1, f.logs.FilterMessage("staged pack spans several jobs; keeping the first").Len())
}

func TestUpdateStatus_ForwardOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rec, err := f.svc.Stage(ctx, warehouse, f.request("W1A", f.line(1, 1)))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, field, rec.ID, staging.StatusReady)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.UpdateStatus(ctx, warehouse, rec.ID, staging.StatusStaged)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = f.svc.UpdateStatus(ctx, warehouse, rec.ID, staging.StatusPickedUp)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	got, err := f.svc.UpdateStatus(ctx, warehouse, rec.ID, staging.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, staging.StatusReady, got.Status)

	got, err = f.svc.UpdateStatus(ctx, warehouse, rec.ID, staging.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, staging.StatusDelivered, got.Status)

	_, err = f.svc.UpdateStatus(ctx, warehouse, rec.ID, staging.StatusReturned)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	// The spot is free again.
	_, err = f.svc.Stage(ctx, warehouse, f.request("W1A", f.line(1, 1)))
	require.NoError(t, err)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to staging.Status
		want     bool
	}{
		{staging.StatusStaged, staging.StatusReady, true},
		{staging.StatusStaged, staging.StatusPickedUp, true},
		{staging.StatusReady, staging.StatusReturned, true},
		{staging.StatusReady, staging.StatusStaged, false},
		{staging.StatusPickedUp, staging.StatusReturned, false},
		{staging.StatusReturned, staging.StatusStaged, false},
		{staging.StatusDelivered, staging.StatusReady, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, staging.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestSplitSignerName(t *testing.T) {
	tests := []struct{ in, initial, last string }{
		{"Jane Doe", "J", "DOE"},
		{"  jane   van der berg ", "J", "BERG"},
		{"Cher", "C", "CHER"},
		{"élodie durand", "É", "DURAND"},
		{"", "", ""},
	}
	for _, tt := range tests {
		initial, last := staging.SplitSignerName(tt.in)
		assert.Equal(t, tt.initial, initial, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

type fakeSignatures struct {
	path string
	err  error
	got  []uuid.UUID
}

func (s *fakeSignatures) PutSignature(_ context.Context, id uuid.UUID, _ time.Time, _ string) (string, error) {
	s.got = append(s.got, id)
	return s.path, s.err
}

func TestConfirmDelivery(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sigs := &fakeSignatures{path: "signatures/2024/03/02/x.png"}
	svc := staging.NewService(staging.NewRepository(f.db), sigs, zap.NewNop())

	rec, err := svc.Stage(ctx, warehouse, f.request("W1A", f.line(1, 3)))
	require.NoError(t, err)

	_, err = svc.ConfirmDelivery(ctx, field, staging.DeliveryRequest{RecordID: rec.ID, SignerName: "Jane Doe", Signature: "sig"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	d, err := svc.ConfirmDelivery(ctx, warehouse, staging.DeliveryRequest{
		RecordID: rec.ID, SignerName: " Jane  Doe ", Signature: "data:image/png;base64,AAAA",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", d.SignerName)
	assert.Equal(t, "J", d.SignerInitial)
	assert.Equal(t, "DOE", d.SignerLastName)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), d.DeliveryDate)
	assert.True(t, d.AttachmentUploaded)
	assert.Equal(t, []uuid.UUID{d.ID}, sigs.got)

	got, err := svc.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, staging.StatusPickedUp, got.Status)

	_, err = svc.ConfirmDelivery(ctx, warehouse, staging.DeliveryRequest{RecordID: rec.ID, SignerName: "Jane Doe", Signature: "sig"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.ConfirmDelivery(ctx, warehouse, staging.DeliveryRequest{RecordID: uuid.New(), SignerName: "Jane Doe", Signature: "sig"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.ConfirmDelivery(ctx, warehouse, staging.DeliveryRequest{RecordID: rec.ID, SignerName: "  ", Signature: "sig"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	history, err := svc.ListDeliveries(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "J-100", history[0].JobNum)
	require.NotNil(t, history[0].AttachmentPath)
	assert.Equal(t, sigs.path, *history[0].AttachmentPath)
}

func TestConfirmDelivery_ArchiveFailureKeepsDelivery(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := staging.NewService(staging.NewRepository(f.db), &fakeSignatures{err: errors.New("unreachable")}, zap.NewNop())

	rec, err := svc.Stage(ctx, warehouse, f.request("W1A", f.line(1, 1)))
	require.NoError(t, err)
	d, err := svc.ConfirmDelivery(ctx, warehouse, staging.DeliveryRequest{RecordID: rec.ID, SignerName: "Jane Doe", Signature: "sig"})
	require.NoError(t, err)
	assert.False(t, d.AttachmentUploaded)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStage_FractionalQuantities(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tenth := decimal.RequireFromString("0.1")

	for i := 0; i < 3; i++ {
		poID := f.poID
		_, err := f.svc.Stage(ctx, warehouse, staging.StageRequest{
			POID:           &poID,
			CustomLocation: "DOCK " + string(rune('A'+i)),
			Items:          []staging.LineRequest{{ItemID: f.items[1], Quantity: tenth}},
		})
		require.NoError(t, err)
	}

	avail, err := purchasing.NewRepository(f.db).ListItemAvailability(ctx, f.poID)
	require.NoError(t, err)
	require.NotEmpty(t, avail)
	assert.Equal(t, "0.3", avail[0].Staged.String())
	assert.Equal(t, "9.7", avail[0].Available.String())

	over := f.request("W1B")
	over.Items = []staging.LineRequest{{ItemID: f.items[1], Quantity: decimal.RequireFromString("9.7001")}}
	_, err = f.svc.Stage(ctx, warehouse, over)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), "got %v", err)

	rest := f.request("W1B")
	rest.Items = []staging.LineRequest{{ItemID: f.items[1], Quantity: decimal.RequireFromString("9.7")}}
	_, err = f.svc.Stage(ctx, warehouse, rest)
	require.NoError(t, err)

	avail, err = purchasing.NewRepository(f.db).ListItemAvailability(ctx, f.poID)
	require.NoError(t, err)
	assert.True(t, avail[0].Staged.Equal(decimal.NewFromInt(10)), "staged %s", avail[0].Staged)
	assert.True(t, avail[0].Available.IsZero())
}

func TestConfirmDelivery_StatusFailureWritesNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec, err := f.svc.Stage(ctx, warehouse, f.request("W1A", f.line(1, 2)))
	require.NoError(t, err)

	_, err = f.db.Exec(`
		CREATE TRIGGER block_pickup BEFORE UPDATE OF status ON staging_records
		WHEN NEW.status = 'picked_up'
		BEGIN SELECT RAISE(ABORT, 'pickup blocked'); END`)
	require.NoError(t, err)

	req := staging.DeliveryRequest{RecordID: rec.ID, SignerName: "Jane Doe", Signature: "sig"}
	_, err = f.svc.ConfirmDelivery(ctx, warehouse, req)
	require.Error(t, err)

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM deliveries`).Scan(&n))
	assert.Zero(t, n)
	got, err := f.svc.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, staging.StatusStaged, got.Status)

	_, err = f.db.Exec(`DROP TRIGGER block_pickup`)
	require.NoError(t, err)
	_, err = f.svc.ConfirmDelivery(ctx, warehouse, req)
	require.NoError(t, err)
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM deliveries`).Scan(&n))
	assert.Equal(t, 1, n)
}
