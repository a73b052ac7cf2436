package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "kehila/internal/errors"
	"kehila/internal/external"
	"kehila/internal/models"
	"kehila/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory stand-ins for the stores behind the bundle purchase workflow.
// Only what the routed handlers touch is implemented.

type stubEventStore struct {
	events map[int64]*models.Event
}

func (s *stubEventStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	return s.events[id], nil
}

type stubRegistrationStore struct {
	counts     map[int64]int
	registered map[string]bool
	nextID     int64
}

func (s *stubRegistrationStore) CreateIfCapacity(ctx context.Context, reg *models.Registration, capacity int) (bool, error) {
	key := fmt.Sprintf("%d:%d", reg.EventID, reg.UserID)
	if s.registered[key] {
		return false, fmt.Errorf("active registration exists for event %d: %w", reg.EventID, apperrors.ErrConflict)
	}
	if s.counts[reg.EventID] >= capacity {
		return false, nil
	}
	s.nextID++
	reg.ID = s.nextID
	s.counts[reg.EventID]++
	s.registered[key] = true
	return true, nil
}

func (s *stubRegistrationStore) CountActiveByEvent(ctx context.Context, eventID int64) (int, error) {
	return s.counts[eventID], nil
}

func (s *stubRegistrationStore) HasActiveByEventAndUser(ctx context.Context, eventID, userID int64) (bool, error) {
	return s.registered[fmt.Sprintf("%d:%d", eventID, userID)], nil
}

func (s *stubRegistrationStore) LinkToBundleRegistration(ctx context.Context, registrationIDs []int64, bundleRegistrationID int64) error {
	return nil
}

func (s *stubRegistrationStore) CancelByBundleRegistration(ctx context.Context, bundleRegistrationID int64) error {
	return nil
}

type stubBundleStore struct {
	bundles map[int64]*models.Bundle
}

func (s *stubBundleStore) Create(ctx context.Context, bundle *models.Bundle) error {
	bundle.ID = int64(len(s.bundles) + 1)
	s.bundles[bundle.ID] = bundle
	return nil
}

func (s *stubBundleStore) GetByID(ctx context.Context, id int64) (*models.Bundle, error) {
	return s.bundles[id], nil
}

func (s *stubBundleStore) ListPublished(ctx context.Context) ([]models.Bundle, error) {
	result := []models.Bundle{}
	for _, b := range s.bundles {
		if b.Published && b.Active {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (s *stubBundleStore) ListAll(ctx context.Context) ([]models.Bundle, error) {
	result := []models.Bundle{}
	for _, b := range s.bundles {
		result = append(result, *b)
	}
	return result, nil
}

func (s *stubBundleStore) Update(ctx context.Context, bundle *models.Bundle) error { return nil }

func (s *stubBundleStore) Delete(ctx context.Context, id int64) error { return nil }

type stubBundleRegStore struct {
	active  bool
	nextID  int64
	created []*models.BundleRegistration
}

func (s *stubBundleRegStore) Create(ctx context.Context, br *models.BundleRegistration) error {
	s.nextID++
	br.ID = s.nextID
	s.created = append(s.created, br)
	return nil
}

func (s *stubBundleRegStore) GetByID(ctx context.Context, id int64) (*models.BundleRegistration, error) {
	for _, br := range s.created {
		if br.ID == id {
			return br, nil
		}
	}
	return nil, nil
}

func (s *stubBundleRegStore) HasActive(ctx context.Context, bundleID, userID int64) (bool, error) {
	return s.active, nil
}

func (s *stubBundleRegStore) UpdateStatus(ctx context.Context, id int64, status, paymentStatus string) error {
	for _, br := range s.created {
		if br.ID == id {
			br.Status = status
			br.PaymentStatus = paymentStatus
		}
	}
	return nil
}

func (s *stubBundleRegStore) SetPaymentIntent(ctx context.Context, id int64, intentID string) error {
	return nil
}

type stubProfileStore struct {
	users map[string]*models.UserProfile
	byID  map[int64]*models.UserProfile
}

func (s *stubProfileStore) GetBySubject(ctx context.Context, subject string) (*models.UserProfile, error) {
	return s.users[subject], nil
}

func (s *stubProfileStore) GetByID(ctx context.Context, id int64) (*models.UserProfile, error) {
	return s.byID[id], nil
}

func (s *stubProfileStore) Create(ctx context.Context, user *models.UserProfile) error {
	user.ID = int64(100 + len(s.users))
	s.users[user.Subject] = user
	s.byID[user.ID] = user
	return nil
}

func (s *stubProfileStore) List(ctx context.Context) ([]models.UserProfile, error) {
	return nil, nil
}

func (s *stubProfileStore) ListByRoles(ctx context.Context, roles []string) ([]models.UserProfile, error) {
	return nil, nil
}

func (s *stubProfileStore) UpdateRole(ctx context.Context, id int64, role string) error {
	user, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Role = role
	return nil
}

func (s *stubProfileStore) UpdateGroups(ctx context.Context, id int64, groups []string) error {
	user, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Groups = groups
	return nil
}

func (s *stubProfileStore) UpdateContact(ctx context.Context, id int64, name, phone string) error {
	user, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Name = name
	user.Phone = phone
	return nil
}

type stubIdentity struct{}

func (s *stubIdentity) VerifyToken(ctx context.Context, token string) (*external.VerifiedIdentity, error) {
	return &external.VerifiedIdentity{Subject: "sub-1", Email: "parent@example.com"}, nil
}

type stubPayments struct{}

func (s *stubPayments) Configured() bool { return false }

func (s *stubPayments) CreateIntent(ctx context.Context, amount int64, metadata map[string]string) (*external.PaymentIntentResponse, error) {
	return nil, nil
}

func (s *stubPayments) CancelIntent(ctx context.Context, intentID string) error {
	return nil
}

type stubPublisher struct{}

func (s *stubPublisher) Publish(subject string, data interface{}) error { return nil }

type testEnv struct {
	router     *gin.Engine
	events     *stubEventStore
	regs       *stubRegistrationStore
	bundles    *stubBundleStore
	bundleRegs *stubBundleRegStore
	users      *stubProfileStore
}

func setupTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	parent := &models.UserProfile{ID: 7, Subject: "sub-1", Email: "parent@example.com", Name: "נועה לוי", Role: models.RoleParent}
	env := &testEnv{
		events:     &stubEventStore{events: map[int64]*models.Event{}},
		regs:       &stubRegistrationStore{counts: map[int64]int{}, registered: map[string]bool{}},
		bundles:    &stubBundleStore{bundles: map[int64]*models.Bundle{}},
		bundleRegs: &stubBundleRegStore{},
		users: &stubProfileStore{
			users: map[string]*models.UserProfile{"sub-1": parent},
			byID:  map[int64]*models.UserProfile{7: parent},
		},
	}

	bundleService := service.NewBundleService(
		env.bundles, env.bundleRegs, env.events, env.regs, env.users,
		&stubIdentity{}, &stubPayments{}, &stubPublisher{})
	profileService := service.NewProfileService(env.users)

	h := NewHandlers(&service.Services{Bundles: bundleService, Profiles: profileService}, nil, nil)

	r := gin.New()
	r.GET("/api/bundles", h.ListBundles)
	r.GET("/api/bundles/:id", h.GetBundle)
	r.POST("/api/bundles/register", h.RegisterBundle)
	r.PATCH("/api/admin/users/:id/groups", h.UpdateUserGroups)
	r.PATCH("/api/admin/bundle-registrations/:id/cancel", h.CancelBundleRegistration)
	env.router = r

	return env
}

func (env *testEnv) addEvent(id int64, capacity int) {
	starts := time.Now().Add(72 * time.Hour)
	env.events.events[id] = &models.Event{
		ID:        id,
		Title:     fmt.Sprintf("אירוע %d", id),
		StartsAt:  &starts,
		Capacity:  capacity,
		Status:    models.EventStatusActive,
		Published: true,
	}
}

func (env *testEnv) addBundle(id int64, eventIDs, replacementIDs []int64) {
	validUntil := time.Now().Add(30 * 24 * time.Hour)
	env.bundles.bundles[id] = &models.Bundle{
		ID:                  id,
		Title:               "חבילת קיץ",
		ValidUntil:          &validUntil,
		Published:           true,
		Active:              true,
		EventIDs:            eventIDs,
		ReplacementEventIDs: replacementIDs,
	}
}

func (env *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody bytes.Buffer
	if body != nil {
		json.NewEncoder(&reqBody).Encode(body)
	}

	req, _ := http.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestRegisterBundleEndpoint(t *testing.T) {
	env := setupTestEnv()
	env.addEvent(1, 10)
	env.addEvent(2, 10)
	env.addBundle(5, []int64{1, 2}, nil)

	w := env.do("POST", "/api/bundles/register", gin.H{"token": "tok", "bundleId": 5})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.RegisterBundleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.BundleRegistrationID)
	assert.Len(t, resp.EventRegistrations, 2)
	assert.Empty(t, resp.SkippedEvents)
	assert.Equal(t, models.RegistrationStatusPending, resp.Status)
}

func TestRegisterBundleEndpoint_FullEventReported(t *testing.T) {
	env := setupTestEnv()
	env.addEvent(1, 10)
	env.addEvent(2, 3)
	env.regs.counts[2] = 3
	env.addBundle(5, []int64{1, 2}, nil)

	w := env.do("POST", "/api/bundles/register", gin.H{"token": "tok", "bundleId": 5})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.RegisterBundleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.EventRegistrations, 1)
	require.Len(t, resp.SkippedEvents, 1)
	assert.Equal(t, int64(2), resp.SkippedEvents[0].EventID)
	assert.Equal(t, "full", resp.SkippedEvents[0].Reason)
}

func TestRegisterBundleEndpoint_MissingToken(t *testing.T) {
	env := setupTestEnv()
	env.addBundle(5, []int64{1}, nil)

	w := env.do("POST", "/api/bundles/register", gin.H{"bundleId": 5})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterBundleEndpoint_UnknownBundle(t *testing.T) {
	env := setupTestEnv()

	w := env.do("POST", "/api/bundles/register", gin.H{"token": "tok", "bundleId": 42})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterBundleEndpoint_DuplicatePurchase(t *testing.T) {
	env := setupTestEnv()
	env.addEvent(1, 10)
	env.addBundle(5, []int64{1}, nil)
	env.bundleRegs.active = true

	w := env.do("POST", "/api/bundles/register", gin.H{"token": "tok", "bundleId": 5})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBundleEndpoint(t *testing.T) {
	env := setupTestEnv()
	env.addBundle(5, []int64{1}, nil)

	w := env.do("GET", "/api/bundles/5", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var bundle models.Bundle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bundle))
	assert.Equal(t, int64(5), bundle.ID)
	assert.Equal(t, "חבילת קיץ", bundle.Title)
}

func TestGetBundleEndpoint_InvalidID(t *testing.T) {
	env := setupTestEnv()

	w := env.do("GET", "/api/bundles/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBundleEndpoint_NotFound(t *testing.T) {
	env := setupTestEnv()

	w := env.do("GET", "/api/bundles/9", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUserGroupsEndpoint(t *testing.T) {
	env := setupTestEnv()

	w := env.do("PATCH", "/api/admin/users/7/groups", gin.H{"groups": []string{"kita-a"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"kita-a"}, env.users.byID[7].Groups)
}

func TestUpdateUserGroupsEndpoint_UnknownUser(t *testing.T) {
	env := setupTestEnv()

	w := env.do("PATCH", "/api/admin/users/99/groups", gin.H{"groups": []string{"kita-a"}})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelBundleRegistrationEndpoint(t *testing.T) {
	env := setupTestEnv()
	env.addEvent(1, 10)
	env.addBundle(5, []int64{1}, nil)

	w := env.do("POST", "/api/bundles/register", gin.H{"token": "tok", "bundleId": 5})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.RegisterBundleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = env.do("PATCH", fmt.Sprintf("/api/admin/bundle-registrations/%d/cancel", resp.BundleRegistrationID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RegistrationStatusCancelled, env.bundleRegs.created[0].Status)
}

func TestCancelBundleRegistrationEndpoint_NotFound(t *testing.T) {
	env := setupTestEnv()

	w := env.do("PATCH", "/api/admin/bundle-registrations/42/cancel", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListBundlesEndpoint(t *testing.T) {
	env := setupTestEnv()
	env.addBundle(5, []int64{1}, nil)

	w := env.do("GET", "/api/bundles", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var bundles []models.Bundle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bundles))
	assert.Len(t, bundles, 1)
}
