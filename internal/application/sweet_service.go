package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/entity"
	repo "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/helpers"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/mailer"
)

// searchCap bounds the dedicated search endpoint, which is unpaginated.
const searchCap = 100

var ErrImagesNotConfigured = errors.New("image storage not configured")

// SweetService owns the catalog and the stock mutation protocol.
// Redis, RabbitMQ, Elasticsearch and GCS are optional collaborators;
// a nil client disables the corresponding feature.
type SweetService struct {
	Sweets    repo.SweetRepository
	Events    repo.EventRepository
	Redis     *redis.Client
	Pub       *helpers.RabbitPublisher
	ES        *elasticsearch.Client
	ESIndex   string
	GCS       *storage.Client
	GCSBucket string
	Logger    *logrus.Logger
	// Timeout bounds each store round-trip; zero means no bound.
	Timeout time.Duration
}

func NewSweetService(sweets repo.SweetRepository, events repo.EventRepository, rdb *redis.Client, pub *helpers.RabbitPublisher, es *elasticsearch.Client, esIndex string, gcs *storage.Client, gcsBucket string, logger *logrus.Logger, timeout time.Duration) *SweetService {
	return &SweetService{
		Sweets:    sweets,
		Events:    events,
		Redis:     rdb,
		Pub:       pub,
		ES:        es,
		ESIndex:   esIndex,
		GCS:       gcs,
		GCSBucket: gcsBucket,
		Logger:    logger,
		Timeout:   timeout,
	}
}

// PurchaseReceipt summarizes one applied purchase. It is computed, returned
// to the caller, and cached under the idempotency key; the durable record
// is the inventory_events row.
type PurchaseReceipt struct {
	SweetID        string  `json:"sweet_id"`
	SweetName      string  `json:"sweet_name"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	TotalPrice     float64 `json:"total_price"`
	RemainingStock int     `json:"remaining_stock"`
}

// RestockReceipt summarizes one applied restock.
type RestockReceipt struct {
	SweetID       string `json:"sweet_id"`
	SweetName     string `json:"sweet_name"`
	AddedQuantity int    `json:"added_quantity"`
	PreviousStock int    `json:"previous_stock"`
	NewStock      int    `json:"new_stock"`
}

type CreateSweetInput struct {
	Name        string
	Category    string
	Price       float64
	Quantity    int
	Description string
	ImageURL    string
}

func (s *SweetService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func (s *SweetService) Create(ctx context.Context, in CreateSweetInput) (*entity.Sweet, error) {
	sweet := &entity.Sweet{
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.Sweets.Create(opCtx, sweet); err != nil {
		return nil, err
	}
	s.indexSweet(ctx, sweet)
	return sweet, nil
}

func (s *SweetService) Get(ctx context.Context, id string) (*entity.Sweet, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.Sweets.GetByID(opCtx, id)
}

func (s *SweetService) Update(ctx context.Context, id string, upd entity.SweetUpdate) (*entity.Sweet, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	sweet, err := s.Sweets.Update(opCtx, id, upd)
	if err != nil {
		return nil, err
	}
	s.indexSweet(ctx, sweet)
	return sweet, nil
}

func (s *SweetService) Delete(ctx context.Context, id string) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.Sweets.Delete(opCtx, id); err != nil {
		return err
	}
	s.dropIndex(ctx, id)
	return nil
}

func (s *SweetService) List(ctx context.Context, f repo.SweetFilter) ([]*entity.Sweet, int, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.Sweets.List(opCtx, f)
}

// Search serves the dedicated search mode: text matches name OR description
// and results sort by name. Served from Elasticsearch when configured,
// from Postgres otherwise.
func (s *SweetService) Search(ctx context.Context, f repo.SweetFilter) ([]*entity.Sweet, error) {
	f.SearchDescription = true
	f.Limit = searchCap
	f.Offset = 0

	if s.ES != nil && s.ESIndex != "" {
		sweets, err := s.searchES(ctx, f)
		if err == nil {
			return sweets, nil
		}
		if s.Logger != nil {
			s.Logger.WithError(err).Warn("es search failed, falling back to store")
		}
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	sweets, _, err := s.Sweets.List(opCtx, f)
	return sweets, err
}

// purchaseOutcome is what an idempotency key replays.
type purchaseOutcome struct {
	Receipt PurchaseReceipt `json:"receipt"`
	Sweet   entity.Sweet    `json:"sweet"`
}

type restockOutcome struct {
	Receipt RestockReceipt `json:"receipt"`
	Sweet   entity.Sweet   `json:"sweet"`
}

// idemKey scopes the cached outcome to the principal and the sweet, so the
// same client-chosen key on another user or another sweet never replays a
// foreign receipt.
func idemKey(kind, userID, sweetID, key string) string {
	return "idem:" + kind + ":" + userID + ":" + sweetID + ":" + key
}

// Purchase applies a stock decrement for buyer and returns the receipt.
// When the caller supplies an idempotency key and the same key was already
// applied, the cached outcome is replayed without touching stock.
func (s *SweetService) Purchase(ctx context.Context, id string, qty int, buyer *entity.User, idempotencyKey string) (*PurchaseReceipt, *entity.Sweet, error) {
	if idempotencyKey != "" && s.Redis != nil {
		var cached purchaseOutcome
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, idemKey(entity.EventPurchase, buyer.ID, id, idempotencyKey), &cached); err == nil && ok {
			return &cached.Receipt, &cached.Sweet, nil
		}
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	updated, err := s.Sweets.DecrementStock(opCtx, id, qty)
	if err != nil {
		return nil, nil, err
	}

	receipt := &PurchaseReceipt{
		SweetID:        updated.ID,
		SweetName:      updated.Name,
		Quantity:       qty,
		UnitPrice:      updated.Price,
		TotalPrice:     updated.Price * float64(qty),
		RemainingStock: updated.Quantity,
	}

	s.recordEvent(ctx, &entity.InventoryEvent{
		SweetID:   updated.ID,
		UserID:    buyer.ID,
		Kind:      entity.EventPurchase,
		Delta:     -qty,
		UnitPrice: updated.Price,
		Resulting: updated.Quantity,
	})
	if idempotencyKey != "" && s.Redis != nil {
		out := purchaseOutcome{Receipt: *receipt, Sweet: *updated}
		if err := helpers.RedisSetJSON(ctx, s.Redis, idemKey(entity.EventPurchase, buyer.ID, id, idempotencyKey), out, 24*time.Hour); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("idempotency cache write failed")
		}
	}
	s.indexSweet(ctx, updated)
	s.sendReceiptEmail(ctx, buyer.Email, receipt)

	return receipt, updated, nil
}

// Restock applies a stock increment and returns the receipt.
func (s *SweetService) Restock(ctx context.Context, id string, qty int, admin *entity.User, idempotencyKey string) (*RestockReceipt, *entity.Sweet, error) {
	if idempotencyKey != "" && s.Redis != nil {
		var cached restockOutcome
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, idemKey(entity.EventRestock, admin.ID, id, idempotencyKey), &cached); err == nil && ok {
			return &cached.Receipt, &cached.Sweet, nil
		}
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	updated, err := s.Sweets.IncrementStock(opCtx, id, qty)
	if err != nil {
		return nil, nil, err
	}

	receipt := &RestockReceipt{
		SweetID:       updated.ID,
		SweetName:     updated.Name,
		AddedQuantity: qty,
		PreviousStock: updated.Quantity - qty,
		NewStock:      updated.Quantity,
	}

	s.recordEvent(ctx, &entity.InventoryEvent{
		SweetID:   updated.ID,
		UserID:    admin.ID,
		Kind:      entity.EventRestock,
		Delta:     qty,
		UnitPrice: updated.Price,
		Resulting: updated.Quantity,
	})
	if idempotencyKey != "" && s.Redis != nil {
		out := restockOutcome{Receipt: *receipt, Sweet: *updated}
		if err := helpers.RedisSetJSON(ctx, s.Redis, idemKey(entity.EventRestock, admin.ID, id, idempotencyKey), out, 24*time.Hour); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("idempotency cache write failed")
		}
	}
	s.indexSweet(ctx, updated)

	return receipt, updated, nil
}

// UploadImage stores an image in GCS and points the sweet at it.
func (s *SweetService) UploadImage(ctx context.Context, id string, r io.Reader, filename, contentType string) (*entity.Sweet, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, ErrImagesNotConfigured
	}
	// Confirm the sweet exists before uploading anything.
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("sweets", id, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, entity.SweetUpdate{ImageURL: &url})
}

// recordEvent appends to the audit trail. Failures are logged, never
// surfaced: the stock mutation already committed.
func (s *SweetService) recordEvent(ctx context.Context, ev *entity.InventoryEvent) {
	if s.Events == nil {
		return
	}
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.Events.Record(opCtx, ev); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"sweet_id": ev.SweetID,
			"kind":     ev.Kind,
		}).Warn("inventory event write failed")
	}
}

func (s *SweetService) sendReceiptEmail(ctx context.Context, to string, receipt *PurchaseReceipt) {
	if s.Pub == nil || to == "" {
		return
	}
	job := mailer.EmailJob{
		To:      to,
		Subject: "Your Sweet Shop receipt",
		Text: fmt.Sprintf("Thanks for your order!\n\n%d x %s @ %.2f = %.2f\nRemaining stock: %d\n",
			receipt.Quantity, receipt.SweetName, receipt.UnitPrice, receipt.TotalPrice, receipt.RemainingStock),
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("to", to).Warn("receipt email publish failed")
	}
}

func (s *SweetService) indexSweet(ctx context.Context, sweet *entity.Sweet) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	b, _ := json.Marshal(sweet)
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Index(s.ESIndex, strings.NewReader(string(b)),
		s.ES.Index.WithDocumentID(sweet.ID), s.ES.Index.WithContext(c))
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("sweet_id", sweet.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("sweet_id", sweet.ID).Warn("es index response error")
	}
}

func (s *SweetService) dropIndex(ctx context.Context, id string) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Delete(s.ESIndex, id, s.ES.Delete.WithContext(c))
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("sweet_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// esSearchQuery builds the search request body for the sweets index.
func esSearchQuery(f repo.SweetFilter) map[string]any {
	must := []map[string]any{}
	filter := []map[string]any{}
	if f.Text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  f.Text,
				"fields": []string{"name^2", "description"},
			},
		})
	}
	if f.Category != "" {
		filter = append(filter, map[string]any{
			"term": map[string]any{"category.keyword": f.Category},
		})
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		rng := map[string]any{}
		if f.MinPrice != nil {
			rng["gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			rng["lte"] = *f.MaxPrice
		}
		filter = append(filter, map[string]any{"range": map[string]any{"price": rng}})
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"must": must, "filter": filter},
		},
		"sort": []map[string]any{
			{"name.keyword": map[string]any{"order": "asc"}},
			// _id is not sortable on ES 8 without enabling fielddata on it;
			// the indexed document carries its own id field.
			{"id.keyword": map[string]any{"order": "asc"}},
		},
		"size": f.Limit,
	}
}

func (s *SweetService) searchES(ctx context.Context, f repo.SweetFilter) ([]*entity.Sweet, error) {
	b, _ := json.Marshal(esSearchQuery(f))

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source entity.Sweet `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]*entity.Sweet, 0, len(parsed.Hits.Hits))
	for i := range parsed.Hits.Hits {
		sweet := parsed.Hits.Hits[i].Source
		out = append(out, &sweet)
	}
	return out, nil
}
