package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"healthcrm/internal/caching"
	"healthcrm/internal/models"

	"github.com/google/uuid"
)

// DraftStore persists unsent compose state under drafts:<ownerID>:<draftID>.
type DraftStore interface {
	Save(ctx context.Context, draft *models.Draft) error
	Get(ctx context.Context, ownerID uuid.UUID, id string) (*models.Draft, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]models.Draft, error)
	Delete(ctx context.Context, ownerID uuid.UUID, id string) error
}

type draftStore struct {
	store caching.Store
}

func NewDraftStore(store caching.Store) DraftStore {
	return &draftStore{store: store}
}

func draftPrefix(ownerID uuid.UUID) string {
	return fmt.Sprintf("drafts:%s:", ownerID)
}

func draftKey(ownerID uuid.UUID, id string) string {
	return draftPrefix(ownerID) + id
}

func (s *draftStore) Save(ctx context.Context, draft *models.Draft) error {
	return caching.SetJSON(ctx, s.store, draftKey(draft.OwnerID, draft.ID), draft, 0)
}

func (s *draftStore) Get(ctx context.Context, ownerID uuid.UUID, id string) (*models.Draft, error) {
	var d models.Draft
	if err := caching.GetJSON(ctx, s.store, draftKey(ownerID, id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns the owner's drafts, most recently updated first.
func (s *draftStore) List(ctx context.Context, ownerID uuid.UUID) ([]models.Draft, error) {
	keys, err := s.store.Keys(ctx, draftPrefix(ownerID))
	if err != nil {
		return nil, err
	}
	drafts := make([]models.Draft, 0, len(keys))
	for _, k := range keys {
		var d models.Draft
		if err := caching.GetJSON(ctx, s.store, k, &d); err != nil {
			if errors.Is(err, caching.ErrMiss) {
				continue
			}
			return nil, err
		}
		drafts = append(drafts, d)
	}
	slices.SortStableFunc(drafts, func(a, b models.Draft) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return drafts, nil
}

func (s *draftStore) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	return s.store.Delete(ctx, draftKey(ownerID, id))
}

// ComposeStager hands a reply or forward payload to the next compose screen
// load of the same user session. Payloads are taken exactly once.
type ComposeStager interface {
	Stage(ctx context.Context, ownerID uuid.UUID, sessionID string, payload models.ComposePayload) error
	Take(ctx context.Context, ownerID uuid.UUID, sessionID string) (*models.ComposePayload, error)
}

type composeStager struct {
	store caching.Store
	ttl   time.Duration
}

func NewComposeStager(store caching.Store, ttl time.Duration) ComposeStager {
	return &composeStager{store: store, ttl: ttl}
}

// composeKey scopes a staged payload to one user's session. Tokens without a
// session id still stay private to their owner.
func composeKey(ownerID uuid.UUID, sessionID string) string {
	return fmt.Sprintf("compose:%s:%s", ownerID, sessionID)
}

func (s *composeStager) Stage(ctx context.Context, ownerID uuid.UUID, sessionID string, payload models.ComposePayload) error {
	return caching.SetJSON(ctx, s.store, composeKey(ownerID, sessionID), payload, s.ttl)
}

// Take returns the staged payload and clears it, or nil when nothing is staged.
func (s *composeStager) Take(ctx context.Context, ownerID uuid.UUID, sessionID string) (*models.ComposePayload, error) {
	key := composeKey(ownerID, sessionID)
	var p models.ComposePayload
	if err := caching.GetJSON(ctx, s.store, key, &p); err != nil {
		if errors.Is(err, caching.ErrMiss) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return nil, err
	}
	return &p, nil
}
