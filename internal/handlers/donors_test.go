package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemolink/hemolink-backend/internal/config"
	"github.com/hemolink/hemolink-backend/internal/models"
	"github.com/hemolink/hemolink-backend/internal/repository"
	"github.com/hemolink/hemolink-backend/internal/services"
)

// fakeDonorStore is an in-memory DonorStore keyed by phone number, mirroring
// the upsert-by-contact semantics of the PostgreSQL store.
type fakeDonorStore struct {
	mu      sync.Mutex
	byPhone map[string]*models.Donor
	nextID  int
}

func newFakeDonorStore() *fakeDonorStore {
	return &fakeDonorStore{byPhone: make(map[string]*models.Donor)}
}

func (s *fakeDonorStore) UpsertByPhone(_ context.Context, d *models.Donor) (*models.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.byPhone[d.PhoneNumber]; ok {
		updated := *d
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = now
		s.byPhone[d.PhoneNumber] = &updated
		return &updated, nil
	}
	s.nextID++
	stored := *d
	stored.ID = testUUID(s.nextID)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.byPhone[d.PhoneNumber] = &stored
	return &stored, nil
}

func (s *fakeDonorStore) GetByID(_ context.Context, id string) (*models.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.byPhone {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, repository.ErrDonorNotFound
}

func (s *fakeDonorStore) ListAvailable(context.Context) ([]models.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Donor{}
	for _, d := range s.byPhone {
		if d.IsAvailable {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeDonorStore) Update(_ context.Context, id string, d *models.Donor) (*models.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for phone, existing := range s.byPhone {
		if existing.ID == id {
			updated := *d
			updated.ID = id
			updated.CreatedAt = existing.CreatedAt
			updated.UpdatedAt = time.Now().UTC()
			delete(s.byPhone, phone)
			s.byPhone[updated.PhoneNumber] = &updated
			return &updated, nil
		}
	}
	return nil, repository.ErrDonorNotFound
}

func (s *fakeDonorStore) SetVerified(_ context.Context, id string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.byPhone {
		if d.ID == id {
			d.IsVerified = verified
			return nil
		}
	}
	return repository.ErrDonorNotFound
}

func (s *fakeDonorStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for phone, d := range s.byPhone {
		if d.ID == id {
			delete(s.byPhone, phone)
			return nil
		}
	}
	return repository.ErrDonorNotFound
}

func (s *fakeDonorStore) AdminList(context.Context, string, string) ([]models.Donor, error) {
	return s.ListAvailable(context.Background())
}

func (s *fakeDonorStore) Stats(context.Context) (*models.DonorStats, error) {
	return &models.DonorStats{}, nil
}

func testUUID(n int) string {
	const base = "00000000-0000-0000-0000-"
	return base + func() string {
		s := "000000000000"
		d := []byte(s)
		for i := len(d) - 1; n > 0 && i >= 0; i-- {
			d[i] = byte('0' + n%10)
			n /= 10
		}
		return string(d)
	}()
}

type fakeLogReader struct{}

func (fakeLogReader) Recent(context.Context, repository.SearchLogFilter) ([]models.SearchLog, error) {
	return []models.SearchLog{}, nil
}
func (fakeLogReader) Count(context.Context) (int64, error) { return 0, nil }

type nullSink struct{}

func (nullSink) Append(context.Context, *models.SearchLog) error { return nil }

// recordingConn collects hub events for feed assertions.
type recordingConn struct {
	mu     sync.Mutex
	events []services.DonorEvent
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, v.(services.DonorEvent))
	return nil
}
func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) received() []services.DonorEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]services.DonorEvent(nil), c.events...)
}

// setupHandlers wires the handler package against in-memory fakes and a real
// hub and search engine. Returns the store and hub for assertions.
func setupHandlers(t *testing.T, requireVerified bool) (*fakeDonorStore, *services.DonorHub) {
	t.Helper()
	store := newFakeDonorStore()
	hub := services.NewDonorHub()
	engine := services.NewSearchEngine(
		storeFinder{store}, services.NewMemorySearchLimiter(), nullSink{}, requireVerified)
	Init(&config.Config{RequireVerified: requireVerified}, store, fakeLogReader{}, engine, hub)
	return store, hub
}

// storeFinder adapts the fake store to the search engine's candidate query.
type storeFinder struct{ store *fakeDonorStore }

func (f storeFinder) QueryByFilter(ctx context.Context, bloodType string, availableOnly, verifiedOnly bool) ([]models.Donor, error) {
	all, _ := f.store.ListAvailable(ctx)
	out := []models.Donor{}
	for _, d := range all {
		if bloodType != models.BloodTypeAny && d.BloodType != bloodType {
			continue
		}
		if verifiedOnly && !d.IsVerified {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	r.RemoteAddr = "192.0.2.10:40000"
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func registerAsha(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	return postJSON(t, CreateDonor, "/api/v1/donors", DonorRequest{
		FirstName:   "Asha",
		PhoneNumber: "+254700000001",
		BloodType:   "O+",
		Latitude:    -1.2921,
		Longitude:   36.8219,
		City:        "Nairobi",
	})
}

func TestCreateDonorBroadcastsToSubscribers(t *testing.T) {
	_, hub := setupHandlers(t, false)

	matching := &recordingConn{}
	other := &recordingConn{}
	hub.Register(matching)
	hub.Register(other)
	hub.Subscribe(matching, "O+")
	hub.Subscribe(other, "A-")

	w := registerAsha(t)
	require.Equal(t, http.StatusCreated, w.Code)

	var donor models.Donor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &donor))
	assert.NotEmpty(t, donor.ID)
	assert.Equal(t, "Asha", donor.FirstName)

	events := matching.received()
	require.Len(t, events, 1, "O+ subscriber gets exactly one new_donor event")
	assert.Equal(t, services.EventTypeNewDonor, events[0].Type)
	assert.Equal(t, donor.ID, events[0].Donor.ID)

	assert.Empty(t, other.received(), "A- subscriber hears nothing about an O+ donor")
}

func TestCreateDonorUpsertsByPhone(t *testing.T) {
	store, _ := setupHandlers(t, false)

	w := registerAsha(t)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, CreateDonor, "/api/v1/donors", DonorRequest{
		FirstName:   "Asha W.",
		PhoneNumber: "+254700000001",
		BloodType:   "O+",
		Latitude:    -1.30,
		Longitude:   36.80,
		City:        "Nairobi",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.byPhone, 1, "repeat registration must not duplicate the record")
	assert.Equal(t, "Asha W.", store.byPhone["+254700000001"].FirstName)
}

func TestCreateDonorRejectsBadBloodType(t *testing.T) {
	setupHandlers(t, false)

	w := postJSON(t, CreateDonor, "/api/v1/donors", DonorRequest{
		FirstName:   "Asha",
		PhoneNumber: "+254700000001",
		BloodType:   "X+",
		Latitude:    -1.2921,
		Longitude:   36.8219,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateDonorRejectsBadCoordinates(t *testing.T) {
	setupHandlers(t, false)

	w := postJSON(t, CreateDonor, "/api/v1/donors", DonorRequest{
		FirstName:   "Asha",
		PhoneNumber: "+254700000001",
		BloodType:   "O+",
		Latitude:    97.0,
		Longitude:   36.8219,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDonorInvalidID(t *testing.T) {
	setupHandlers(t, false)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/donors/not-a-uuid", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("donorID", "not-a-uuid")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()
	GetDonor(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDonorNotFound(t *testing.T) {
	setupHandlers(t, false)

	id := testUUID(42)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/donors/"+id, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("donorID", id)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()
	GetDonor(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
