package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/models"
)

// fakeStore is an in-memory docstore.Store for pass tests.
type fakeStore struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
	setErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string]map[string]json.RawMessage)}
}

func (s *fakeStore) seed(collection, id string, record any) {
	data, err := json.Marshal(record)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]json.RawMessage)
	}
	s.collections[collection][id] = data
}

func (s *fakeStore) ids(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *fakeStore) Get(ctx context.Context, collection, id string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.collections[collection][id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s/%s not found", collection, id))
	}
	return json.Unmarshal(data, dest)
}

func (s *fakeStore) Set(ctx context.Context, collection, id string, record any, merge bool) error {
	if s.setErr != nil {
		return s.setErr
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]json.RawMessage)
	}
	if merge {
		if existing, ok := s.collections[collection][id]; ok {
			var base, overlay map[string]any
			if err := json.Unmarshal(existing, &base); err == nil && json.Unmarshal(data, &overlay) == nil {
				for k, v := range overlay {
					base[k] = v
				}
				data, _ = json.Marshal(base)
			}
		}
	}
	s.collections[collection][id] = data
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *fakeStore) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]docstore.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, docstore.Document{ID: id, Data: s.collections[collection][id]})
	}
	return docs, nil
}

func (s *fakeStore) ListIDs(ctx context.Context, collection string) ([]string, error) {
	return s.ids(collection), nil
}

func (s *fakeStore) Query(ctx context.Context, collection string, fields map[string]string) ([]docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var docs []docstore.Document
	for id, data := range s.collections[collection] {
		if matchesFields(data, fields) {
			docs = append(docs, docstore.Document{ID: id, Data: data})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *fakeStore) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.collections[collection], id)
	}
	return nil
}

func (s *fakeStore) DeleteMatching(ctx context.Context, collection string, fields map[string]string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, data := range s.collections[collection] {
		if matchesFields(data, fields) {
			delete(s.collections[collection], id)
			deleted++
		}
	}
	return deleted, nil
}

func matchesFields(data json.RawMessage, fields map[string]string) bool {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	for k, v := range fields {
		if fmt.Sprintf("%v", m[k]) != v {
			return false
		}
	}
	return true
}

// fakeDirectory serves canned search pages and business details.
type fakeDirectory struct {
	businesses []models.Business
	details    map[string]*models.Business
	detailErr  map[string]error
	searchErr  error

	searchCalls int
}

func (d *fakeDirectory) Search(ctx context.Context, location, term string, radius, limit, offset int) (*models.BusinessSearchPage, error) {
	d.searchCalls++
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	if offset >= len(d.businesses) {
		return &models.BusinessSearchPage{Total: len(d.businesses)}, nil
	}
	end := offset + limit
	if end > len(d.businesses) {
		end = len(d.businesses)
	}
	return &models.BusinessSearchPage{
		Businesses: d.businesses[offset:end],
		Total:      len(d.businesses),
	}, nil
}

func (d *fakeDirectory) GetBusiness(ctx context.Context, id string) (*models.Business, error) {
	if err, ok := d.detailErr[id]; ok {
		return nil, err
	}
	if detail, ok := d.details[id]; ok {
		return detail, nil
	}
	return nil, fmt.Errorf("business %s not found", id)
}

// fakeMatcher maps business ids to places. Unmapped businesses have no match.
type fakeMatcher struct {
	places   map[string]*models.Place
	matchErr map[string]error
}

func (m *fakeMatcher) Match(ctx context.Context, business *models.Business) (*models.Place, error) {
	if err, ok := m.matchErr[business.ID]; ok {
		return nil, err
	}
	return m.places[business.ID], nil
}

// fakePlaces serves canned place details keyed by place id.
type fakePlaces struct {
	details map[string]*models.Place
	err     error
}

func (p *fakePlaces) PlaceDetails(ctx context.Context, placeID string, fields []string) (*models.Place, error) {
	if p.err != nil {
		return nil, p.err
	}
	if place, ok := p.details[placeID]; ok {
		return place, nil
	}
	return nil, fmt.Errorf("place %s not found", placeID)
}

// fakeLeases records lease activity.
type fakeLeases struct {
	err      error
	acquired []string
	released int
}

type fakeLease struct {
	leases *fakeLeases
}

func (l *fakeLease) Release(ctx context.Context) error {
	l.leases.released++
	return nil
}

func (l *fakeLeases) Acquire(ctx context.Context, collection string, ttl time.Duration) (Releaser, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, collection)
	return &fakeLease{leases: l}, nil
}

// fakeEvents records emitted events.
type fakeEvents struct {
	records []string
	passes  []PassResult
}

func (e *fakeEvents) RecordSynced(ctx context.Context, collection, id string, data json.RawMessage) error {
	e.records = append(e.records, collection+"/"+id)
	return nil
}

func (e *fakeEvents) PassCompleted(ctx context.Context, result PassResult) error {
	e.passes = append(e.passes, result)
	return nil
}
