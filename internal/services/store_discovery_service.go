package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pantry/internal/geo"
	"pantry/internal/metrics"
	"pantry/internal/models"
	"pantry/internal/places"
	"pantry/internal/repositories"

	"github.com/rs/zerolog/log"
)

// EventStoreDiscovered is published for every store added from places results.
const EventStoreDiscovered = "store.discovered"

// StoreDiscoveredEvent is the payload of EventStoreDiscovered.
type StoreDiscoveredEvent struct {
	StoreID         string `json:"storeId"`
	ExternalPlaceID string `json:"externalPlaceId"`
	Name            string `json:"name"`
}

// PlacesSearcher finds candidate places around a point, most relevant first.
type PlacesSearcher interface {
	SearchNearby(ctx context.Context, center geo.Point) ([]places.Place, error)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishEvent(routingKey string, payload interface{}) error
}

// StoreDiscoveryService resolves the stores near a point, registering places
// seen for the first time.
type StoreDiscoveryService struct {
	stores   repositories.StoreRepository
	products repositories.ProductRepository
	places   PlacesSearcher
	events   EventPublisher
	metrics  metrics.Recorder
}

// NewStoreDiscoveryService creates a new StoreDiscoveryService.
func NewStoreDiscoveryService(stores repositories.StoreRepository, products repositories.ProductRepository, searcher PlacesSearcher) *StoreDiscoveryService {
	return &StoreDiscoveryService{
		stores:   stores,
		products: products,
		places:   searcher,
		metrics:  metrics.Noop{},
	}
}

// WithEvents enables store.discovered events.
func (s *StoreDiscoveryService) WithEvents(p EventPublisher) *StoreDiscoveryService {
	s.events = p
	return s
}

// WithMetrics sets the metrics recorder.
func (s *StoreDiscoveryService) WithMetrics(r metrics.Recorder) *StoreDiscoveryService {
	if r != nil {
		s.metrics = r
	}
	return s
}

// FindNearbyStores returns registry stores for the places around center, in
// the places API's ranking order. A non-blank query keeps only stores with a
// product whose name contains it, ignoring case.
func (s *StoreDiscoveryService) FindNearbyStores(ctx context.Context, center geo.Point, query string) ([]models.Store, error) {
	if !center.Valid() {
		return nil, newValidationError("invalid latitude or longitude")
	}
	query = strings.TrimSpace(query)

	candidates, err := s.places.SearchNearby(ctx, center)
	if err != nil {
		s.metrics.RecordPlacesRequest(metrics.OutcomeError)
		return nil, fmt.Errorf("failed to search nearby places: %w", err)
	}
	s.metrics.RecordPlacesRequest(metrics.OutcomeSuccess)

	placeIDs := make([]string, 0, len(candidates))
	rank := make(map[string]int, len(candidates))
	for _, c := range candidates {
		if c.ID == "" {
			continue
		}
		if _, dup := rank[c.ID]; dup {
			continue
		}
		rank[c.ID] = len(placeIDs)
		placeIDs = append(placeIDs, c.ID)
	}
	if len(placeIDs) == 0 {
		return []models.Store{}, nil
	}

	existing, err := s.stores.FindByExternalPlaceIDs(ctx, placeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing stores: %w", err)
	}

	created, conflicted, err := s.registerNew(ctx, candidates, existing)
	if err != nil {
		return nil, err
	}

	result := append(existing, created...)
	if conflicted {
		// Another request registered some of the same places first; the
		// registry holds its rows.
		if result, err = s.stores.FindByExternalPlaceIDs(ctx, placeIDs); err != nil {
			return nil, fmt.Errorf("failed to reload stores: %w", err)
		}
	}

	if query != "" {
		if result, err = s.filterByProductName(ctx, result, query); err != nil {
			return nil, err
		}
	}

	sortByRank(result, rank)
	return result, nil
}

// registerNew inserts stores for candidates missing from existing and returns
// the ones this call actually created. conflicted is set when some inserts
// were skipped because the place was registered concurrently.
func (s *StoreDiscoveryService) registerNew(ctx context.Context, candidates []places.Place, existing []models.Store) (created []models.Store, conflicted bool, err error) {
	known := make(map[string]bool, len(existing))
	for _, st := range existing {
		known[st.PlaceID()] = true
	}

	var fresh []models.Store
	for _, c := range candidates {
		if c.ID == "" || known[c.ID] || c.DisplayName == "" {
			continue
		}
		known[c.ID] = true
		placeID := c.ID
		fresh = append(fresh, models.Store{
			Name:            c.DisplayName,
			ExternalPlaceID: &placeID,
			Address:         c.FormattedAddress,
			IconURL:         places.IconURL(c.WebsiteURI),
			Latitude:        c.Latitude,
			Longitude:       c.Longitude,
		})
	}
	if len(fresh) == 0 {
		log.Debug().Int("existing", len(existing)).Int("created", 0).Msg("Stores reconciled")
		return nil, false, nil
	}

	inserted, err := s.stores.CreateMissing(ctx, fresh)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create stores: %w", err)
	}
	log.Debug().Int("existing", len(existing)).Int64("created", inserted).Int("attempted", len(fresh)).Msg("Stores reconciled")

	created = fresh
	if inserted < int64(len(fresh)) {
		conflicted = true
		created = s.confirmInserted(ctx, fresh)
	}
	s.metrics.RecordStoresDiscovered(len(created))
	s.publishDiscovered(created)
	return created, conflicted, nil
}

// confirmInserted keeps the stores whose generated id made it into the
// registry, i.e. those not skipped on conflict.
func (s *StoreDiscoveryService) confirmInserted(ctx context.Context, attempted []models.Store) []models.Store {
	var confirmed []models.Store
	for _, st := range attempted {
		got, err := s.stores.GetByID(ctx, st.ID)
		if err == nil && got.PlaceID() == st.PlaceID() {
			confirmed = append(confirmed, *got)
		}
	}
	return confirmed
}

func (s *StoreDiscoveryService) publishDiscovered(stores []models.Store) {
	if s.events == nil {
		return
	}
	for _, st := range stores {
		err := s.events.PublishEvent(EventStoreDiscovered, StoreDiscoveredEvent{
			StoreID:         st.ID,
			ExternalPlaceID: st.PlaceID(),
			Name:            st.Name,
		})
		if err != nil {
			log.Error().Err(err).Str("store_id", st.ID).Msg("Failed to publish store.discovered")
		}
	}
}

func (s *StoreDiscoveryService) filterByProductName(ctx context.Context, stores []models.Store, query string) ([]models.Store, error) {
	ids, err := s.products.StoreIDsWithProductName(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter stores by product name: %w", err)
	}
	matching := make(map[string]bool, len(ids))
	for _, id := range ids {
		matching[id] = true
	}

	filtered := make([]models.Store, 0, len(stores))
	for _, st := range stores {
		if matching[st.ID] {
			filtered = append(filtered, st)
		}
	}
	return filtered, nil
}

// sortByRank orders stores by candidate position. Stores without a candidate
// go last, keeping their relative order.
func sortByRank(stores []models.Store, rank map[string]int) {
	pos := func(st models.Store) int {
		if r, ok := rank[st.PlaceID()]; ok {
			return r
		}
		return len(rank)
	}
	sort.SliceStable(stores, func(i, j int) bool {
		return pos(stores[i]) < pos(stores[j])
	})
}
