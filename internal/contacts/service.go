package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudsaver/cloudsaver/internal/docstore"
)

const collection = "contacts"

// Service owns the mapping between a signed-in user's intents and the remote
// contact collection. Every query and mutation is scoped by the caller's owner
// id; that scope is the sole access-control boundary.
type Service struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewService(store docstore.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("component", "contacts")),
	}
}

// List returns a point-in-time snapshot of the owner's contacts in the order
// selected by key.
func (s *Service) List(ctx context.Context, ownerID string, key SortKey) ([]Contact, error) {
	if s.store == nil {
		return nil, fmt.Errorf("contact store not configured")
	}
	docs, err := s.store.Find(ctx, docstore.Query{
		Collection: collection,
		OwnerID:    ownerID,
		OrderBy:    orderFor(key),
	})
	if err != nil {
		return nil, err
	}
	items := make([]Contact, 0, len(docs))
	for _, doc := range docs {
		items = append(items, fromDocument(doc))
	}
	return items, nil
}

// Create writes a new contact after a scoped duplicate-phone read. The check
// and the write are two store round trips; a writer racing in between can
// still produce a duplicate. That window is accepted, matching the store's
// lack of a uniqueness constraint.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (Contact, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" {
		return Contact{}, &ValidationError{Field: "name"}
	}
	if phone == "" {
		return Contact{}, &ValidationError{Field: "phone"}
	}
	exists, err := s.phoneExists(ctx, ownerID, phone)
	if err != nil {
		return Contact{}, err
	}
	if exists {
		return Contact{}, ErrDuplicatePhone
	}
	doc, err := s.store.Insert(ctx, collection, ownerID, map[string]interface{}{
		"name":  name,
		"phone": phone,
		"notes": req.Notes,
	})
	if err != nil {
		return Contact{}, err
	}
	s.logger.Info("contact created", slog.String("contact_id", doc.ID))
	return fromDocument(doc), nil
}

// Update patches the fields set in req. A phone change re-runs the duplicate
// check; updated_at always advances, created_at and the owner never change.
func (s *Service) Update(ctx context.Context, ownerID, id string, req UpdateRequest) (Contact, error) {
	current, err := s.get(ctx, ownerID, id)
	if err != nil {
		return Contact{}, err
	}
	patch := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return Contact{}, &ValidationError{Field: "name"}
		}
		patch["name"] = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone == "" {
			return Contact{}, &ValidationError{Field: "phone"}
		}
		if phone != current.Phone {
			exists, err := s.phoneExists(ctx, ownerID, phone)
			if err != nil {
				return Contact{}, err
			}
			if exists {
				return Contact{}, ErrDuplicatePhone
			}
		}
		patch["phone"] = phone
	}
	if req.Notes != nil {
		patch["notes"] = *req.Notes
	}
	doc, err := s.store.Update(ctx, collection, id, patch)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Contact{}, ErrContactNotFound
		}
		return Contact{}, err
	}
	return fromDocument(doc), nil
}

// Delete removes the contact unconditionally by id. Ownership is enforced by
// the listing scope: callers only ever hold ids from their own subscribed
// list.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, collection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrContactNotFound
		}
		return err
	}
	s.logger.Info("contact deleted", slog.String("contact_id", id))
	return nil
}

func (s *Service) get(ctx context.Context, ownerID, id string) (Contact, error) {
	doc, err := s.store.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Contact{}, ErrContactNotFound
		}
		return Contact{}, err
	}
	if doc.OwnerID != ownerID {
		return Contact{}, ErrContactNotFound
	}
	return fromDocument(doc), nil
}

func (s *Service) phoneExists(ctx context.Context, ownerID, phone string) (bool, error) {
	docs, err := s.store.Find(ctx, docstore.Query{
		Collection: collection,
		OwnerID:    ownerID,
		Filters:    []docstore.Filter{{Field: "phone", Value: phone}},
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func orderFor(key SortKey) docstore.Order {
	if key == SortByDate {
		return docstore.Order{Field: "createdAt", Descending: true}
	}
	return docstore.Order{Field: "name"}
}

// fromDocument decodes a stored document into a Contact. Fields the record
// type does not declare are ignored, never merged.
func fromDocument(doc docstore.Document) Contact {
	name, _ := doc.Data["name"].(string)
	phone, _ := doc.Data["phone"].(string)
	notes, _ := doc.Data["notes"].(string)
	return Contact{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Name:      name,
		Phone:     phone,
		Notes:     notes,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
