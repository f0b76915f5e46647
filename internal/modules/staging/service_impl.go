package staging

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/attachment"
	"github.com/georgemunganga/materialive/internal/modules/auth"
)

// deliveryHistoryLimit is the number of deliveries ListDeliveries returns.
const deliveryHistoryLimit = 50

type service struct {
	repo       Repository
	signatures attachment.Store
	log        *zap.Logger
	now        func() time.Time
}

// NewService creates a new staging service. A nil signatures store disables
// signature archiving.
func NewService(repo Repository, signatures attachment.Store, log *zap.Logger) Service {
	if signatures == nil {
		signatures = attachment.Nop{}
	}
	return &service{
		repo:       repo,
		signatures: signatures,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Stage(ctx context.Context, p auth.Principal, req StageRequest) (*Record, error) {
	if err := p.RequireWriter(); err != nil {
		return nil, err
	}

	custom := strings.TrimSpace(req.CustomLocation)
	if (req.SpotID == nil) == (custom == "") {
		return nil, apperr.InvalidInput("exactly one of spot_id or custom_location is required")
	}
	if req.POID == nil {
		return nil, apperr.InvalidInput("po_id is required")
	}
	if len(req.Items) == 0 {
		return nil, apperr.InvalidInput("at least one item is required")
	}

	now := s.now()
	rec := &Record{
		ID:         uuid.New(),
		POID:       req.POID,
		RequestID:  strings.TrimSpace(req.RequestID),
		SpotID:     req.SpotID,
		PackNumber: strings.TrimSpace(req.PackNumber),
		Notes:      strings.TrimSpace(req.Notes),
		Status:     StatusStaged,
		StagedAt:   now,
		UpdatedAt:  now,
		Lines:      make([]*Line, 0, len(req.Items)),
	}
	if custom != "" {
		rec.CustomLocation = &custom
	}
	if p.UserID != uuid.Nil {
		userID := p.UserID
		rec.StagedBy = &userID
	}

	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, it := range req.Items {
		if it.ItemID == uuid.Nil {
			return nil, apperr.InvalidInput("item_id is required")
		}
		if seen[it.ItemID] {
			return nil, apperr.InvalidInput("item %s is listed twice", it.ItemID)
		}
		seen[it.ItemID] = true
		if !it.Quantity.IsPositive() {
			return nil, apperr.InvalidInput("quantity for item %s must be greater than zero", it.ItemID)
		}
		rec.Lines = append(rec.Lines, &Line{
			ID:       uuid.New(),
			RecordID: rec.ID,
			ItemID:   it.ItemID,
			Quantity: it.Quantity,
		})
	}

	if err := s.repo.Stage(ctx, rec); err != nil {
		return nil, err
	}

	if rec.MultiJob {
		s.log.Warn("staged pack spans several jobs; keeping the first",
			zap.String("staging_id", rec.ID.String()),
			zap.String("job_num", rec.JobNum))
	}
	s.log.Info("items staged",
		zap.String("staging_id", rec.ID.String()),
		zap.String("location", rec.location()),
		zap.Int("lines", len(rec.Lines)),
		zap.String("username", p.Username))
	return rec, nil
}

func (s *service) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListActive(ctx context.Context) ([]*Record, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) UpdateStatus(ctx context.Context, p auth.Principal, id uuid.UUID, status Status) (*Record, error) {
	if err := p.RequireWriter(); err != nil {
		return nil, err
	}
	if !directStatuses[status] {
		return nil, apperr.InvalidInput("status %q cannot be set directly", status)
	}

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rec.Status, status) {
		return nil, apperr.Conflict("cannot move staging record from %s to %s", rec.Status, status)
	}
	if err := s.repo.SetStatus(ctx, id, rec.Status, status, s.now()); err != nil {
		return nil, err
	}

	s.log.Info("staging status changed",
		zap.String("staging_id", id.String()),
		zap.String("from", string(rec.Status)),
		zap.String("to", string(status)),
		zap.String("username", p.Username))
	return s.repo.GetByID(ctx, id)
}

func (s *service) ConfirmDelivery(ctx context.Context, p auth.Principal, req DeliveryRequest) (*Delivery, error) {
	if err := p.RequireWriter(); err != nil {
		return nil, err
	}
	name := strings.Join(strings.Fields(req.SignerName), " ")
	if req.RecordID == uuid.Nil || name == "" || req.Signature == "" {
		return nil, apperr.InvalidInput("staging_record_id, signer_name and signature_data are required")
	}

	now := s.now()
	initial, lastName := SplitSignerName(name)
	d := &Delivery{
		ID:             uuid.New(),
		RecordID:       req.RecordID,
		DeliveryDate:   now.Format("2006-01-02"),
		SignerName:     name,
		SignerInitial:  initial,
		SignerLastName: lastName,
		SignatureData:  req.Signature,
		Notes:          strings.TrimSpace(req.Notes),
		SignedAt:       now,
	}
	if p.UserID != uuid.Nil {
		userID := p.UserID
		d.DeliveredBy = &userID
	}

	if err := s.repo.ConfirmDelivery(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info("delivery confirmed",
		zap.String("delivery_id", d.ID.String()),
		zap.String("staging_id", d.RecordID.String()),
		zap.String("signer", d.SignerInitial+" "+d.SignerLastName),
		zap.String("username", p.Username))

	s.archiveSignature(ctx, d)
	return d, nil
}

func (s *service) ListDeliveries(ctx context.Context) ([]*DeliverySummary, error) {
	return s.repo.ListDeliveries(ctx, deliveryHistoryLimit)
}

// archiveSignature copies the signature to object storage. The delivery is
// already committed, so failures are only logged.
func (s *service) archiveSignature(ctx context.Context, d *Delivery) {
	path, err := s.signatures.PutSignature(ctx, d.ID, d.SignedAt, d.SignatureData)
	if err != nil {
		s.log.Warn("signature archive failed", zap.String("delivery_id", d.ID.String()), zap.Error(err))
		return
	}
	if path == "" {
		return
	}
	if err := s.repo.SetDeliveryAttachment(ctx, d.ID, path); err != nil {
		s.log.Warn("record signature path", zap.String("delivery_id", d.ID.String()), zap.Error(err))
		return
	}
	d.AttachmentUploaded = true
	d.AttachmentPath = &path
}
