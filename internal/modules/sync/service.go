package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/modules/location"
	"github.com/georgemunganga/materialive/internal/modules/purchasing"
)

// Service reconciles ERP batches into local storage.
//
// Every batch is validated as a whole before anything is written, so a
// malformed record fails with InvalidInput and no effect. Records are then
// written one transaction each; the first write failure stops the batch and
// is reported as UpstreamSyncFailure together with the partial Result.
// Exactly one log entry is appended per batch either way.
type Service interface {
	ReconcilePurchaseOrders(ctx context.Context, records []PORecord) (*Result, error)
	ReconcileReceivedItems(ctx context.Context, records []ReceivedItemRecord) (*Result, error)
	ReconcileLocations(ctx context.Context, records []LocationRecord) (*Result, error)
	ReconcileJobs(ctx context.Context, records []JobRecord) (*Result, error)
	Status(ctx context.Context) (*Status, error)
}

type service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

// NewService creates a new sync service.
func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) ReconcilePurchaseOrders(ctx context.Context, records []PORecord) (*Result, error) {
	return s.run(ctx, KindPurchaseOrders, len(records), func(res *Result, at time.Time) (func() error, error) {
		trees := make([]*POTree, len(records))
		for i := range records {
			tree, err := toPOTree(&records[i], at)
			if err != nil {
				return nil, err
			}
			trees[i] = tree
		}
		return func() error {
			for _, tree := range trees {
				out, err := s.repo.UpsertPurchaseOrder(ctx, tree)
				if err != nil {
					return fmt.Errorf("po %d: %w", tree.PO.Number, err)
				}
				if out.Inserted {
					res.Inserted++
				} else {
					res.Updated++
				}
				res.ItemsInserted += out.ItemsInserted
				res.ItemsUpdated += out.ItemsUpdated
				res.DistributionsInserted += out.DistributionsInserted
				res.DistributionsUpdated += out.DistributionsUpdated
				res.ReceivedItemsLinked += out.ReceivedItemsLinked
			}
			return nil
		}, nil
	})
}

func (s *service) ReconcileReceivedItems(ctx context.Context, records []ReceivedItemRecord) (*Result, error) {
	return s.run(ctx, KindReceivedItems, len(records), func(res *Result, at time.Time) (func() error, error) {
		items := make([]*purchasing.ReceivedItem, len(records))
		for i, rec := range records {
			if !rec.SerialNum.Valid {
				return nil, apperr.InvalidInput("received item %d: serialnum is required", i)
			}
			items[i] = &purchasing.ReceivedItem{
				SerialNum:    rec.SerialNum.Value,
				PONumber:     rec.PONum.Ptr(),
				ItemNum:      rec.ItemNum.String(),
				JobNum:       rec.JobNum.String(),
				ReceivedDate: rec.Date.String(),
				Quantity:     rec.Quantity,
				SyncedAt:     at,
			}
		}
		return func() error {
			for _, ri := range items {
				inserted, err := s.repo.UpsertReceivedItem(ctx, ri)
				if err != nil {
					return fmt.Errorf("received item %d: %w", ri.SerialNum, err)
				}
				count(res, inserted)
			}
			return nil
		}, nil
	})
}

func (s *service) ReconcileLocations(ctx context.Context, records []LocationRecord) (*Result, error) {
	return s.run(ctx, KindLocations, len(records), func(res *Result, at time.Time) (func() error, error) {
		var locs []*location.Location
		for i, rec := range records {
			if !rec.Type.Valid || rec.Type.Value != location.WarehouseLocationType {
				res.Skipped++
				continue
			}
			if !rec.LocationNum.Valid {
				return nil, apperr.InvalidInput("location %d: locationnum is required", i)
			}
			syncedAt := at
			locs = append(locs, &location.Location{
				Number:   rec.LocationNum.Ptr(),
				Name:     rec.Name.String(),
				Type:     location.WarehouseLocationType,
				Active:   true,
				SyncedAt: &syncedAt,
			})
		}
		return func() error {
			for _, l := range locs {
				inserted, err := s.repo.UpsertLocation(ctx, l)
				if err != nil {
					return fmt.Errorf("location %d: %w", *l.Number, err)
				}
				count(res, inserted)
			}
			return nil
		}, nil
	})
}

func (s *service) ReconcileJobs(ctx context.Context, records []JobRecord) (*Result, error) {
	return s.run(ctx, KindJobs, len(records), func(res *Result, at time.Time) (func() error, error) {
		jobs := make([]*purchasing.Job, len(records))
		for i, rec := range records {
			if rec.JobNum == "" {
				return nil, apperr.InvalidInput("job %d: jobnum is required", i)
			}
			jobs[i] = &purchasing.Job{
				JobNum:   rec.JobNum.String(),
				Name:     rec.Name.String(),
				Address:  rec.Address.String(),
				City:     rec.City.String(),
				State:    rec.State.String(),
				Zip:      rec.Zip.String(),
				Status:   rec.Status.String(),
				AttachID: rec.AttachID.Ptr(),
				SyncedAt: at,
			}
		}
		return func() error {
			for _, j := range jobs {
				inserted, err := s.repo.UpsertJob(ctx, j)
				if err != nil {
					return fmt.Errorf("job %s: %w", j.JobNum, err)
				}
				count(res, inserted)
			}
			return nil
		}, nil
	})
}

func (s *service) Status(ctx context.Context) (*Status, error) {
	st := &Status{LastSync: make(map[Kind]*LogEntry, len(Kinds))}
	for _, kind := range Kinds {
		e, err := s.repo.LastLog(ctx, kind)
		if apperr.Is(err, apperr.KindNotFound) {
			e = &LogEntry{Kind: kind, Status: LogNever}
		} else if err != nil {
			return nil, err
		}
		st.LastSync[kind] = e
	}
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	st.Counts = counts
	return st, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// prepareFunc validates a batch and returns the function that writes it.
type prepareFunc func(res *Result, at time.Time) (func() error, error)

func (s *service) run(ctx context.Context, kind Kind, total int, prepare prepareFunc) (*Result, error) {
	started := s.now()
	res := &Result{Kind: kind, Total: total}

	write, err := prepare(res, started)
	if err == nil {
		if werr := write(); werr != nil {
			err = apperr.Wrap(apperr.KindUpstreamSyncFailure, werr,
				"%s sync aborted after %d of %d records: %v", kind, res.Affected()+res.Skipped, total, werr)
		}
	}

	completed := s.now()
	entry := &LogEntry{
		ID:            uuid.New(),
		Kind:          kind,
		Status:        LogSuccess,
		RecordsSynced: res.Affected(),
		Inserted:      res.Inserted,
		Updated:       res.Updated,
		Skipped:       res.Skipped,
		StartedAt:     &started,
		CompletedAt:   &completed,
	}
	if err != nil {
		entry.Status = LogFailed
		entry.ErrorMessage = err.Error()
	}
	if lerr := s.repo.AppendLog(context.WithoutCancel(ctx), entry); lerr != nil {
		s.log.Error("append sync log", zap.String("kind", string(kind)), zap.Error(lerr))
	}

	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.Int("total", total),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
		zap.Duration("duration", completed.Sub(started)),
	}
	if err != nil {
		s.log.Error("sync batch failed", append(fields, zap.Error(err))...)
		return res, err
	}
	s.log.Info("sync batch completed", fields...)
	return res, nil
}

func count(res *Result, inserted bool) {
	if inserted {
		res.Inserted++
	} else {
		res.Updated++
	}
}

func toPOTree(rec *PORecord, at time.Time) (*POTree, error) {
	if !rec.PONum.Valid {
		return nil, apperr.InvalidInput("purchase order: ponum is required")
	}
	status, err := purchasing.ParsePOStatus(rec.Status.String())
	if err != nil {
		return nil, apperr.InvalidInput("po %d: %s", rec.PONum.Value, apperr.Message(err))
	}

	tree := &POTree{
		PO: purchasing.PurchaseOrder{
			Number:     rec.PONum.Value,
			VendorNum:  rec.VenNum.String(),
			VendorName: rec.VendorName.String(),
			PODate:     rec.PODate.String(),
			Blurb:      rec.Blurb.String(),
			RequestID:  rec.RequestID.String(),
			AttachID:   rec.AttachID.Ptr(),
			Status:     status,
			SyncedAt:   at,
		},
		Items: make([]ItemTree, 0, len(rec.Items)),
	}

	seen := make(map[int64]bool, len(rec.Items))
	for i, it := range rec.Items {
		if !it.ItemID.Valid {
			return nil, apperr.InvalidInput("po %d item %d: itemid is required", rec.PONum.Value, i)
		}
		if seen[it.ItemID.Value] {
			return nil, apperr.InvalidInput("po %d: duplicate itemid %d", rec.PONum.Value, it.ItemID.Value)
		}
		seen[it.ItemID.Value] = true

		order := i
		if it.Order.Valid {
			order = int(it.Order.Value)
		}
		node := ItemTree{
			Item: purchasing.Item{
				ExternalID:    it.ItemID.Value,
				Order:         order,
				ItemNum:       it.ItemNum.String(),
				Description:   it.Des.String(),
				VendorItemNum: it.VenItemNum.String(),
				Outstanding:   it.Outstanding,
				Received:      it.Received,
				Unposted:      it.Unposted,
				SyncedAt:      at,
			},
			Distributions: make([]purchasing.Distribution, 0, len(it.Distributions)),
		}

		occurrences := make(map[int64]int)
		for j, d := range it.Distributions {
			extID := it.ItemID.Value
			if d.ItemID.Valid {
				extID = d.ItemID.Value
			}
			node.Distributions = append(node.Distributions, purchasing.Distribution{
				ExternalID:  extID,
				Occurrence:  occurrences[extID],
				Order:       j,
				JobNum:      d.JobNum.String(),
				JobName:     d.JobName.String(),
				PhaseNum:    d.PhaseNum.String(),
				PhaseName:   d.PhaseName.String(),
				CatNum:      d.CatNum.String(),
				CatName:     d.CatName.String(),
				Outstanding: d.Outstanding,
				Received:    d.Received,
				Unposted:    d.Unposted,
			})
			occurrences[extID]++
		}
		tree.Items = append(tree.Items, node)
	}
	return tree, nil
}
