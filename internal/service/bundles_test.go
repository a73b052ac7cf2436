package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "kehila/internal/errors"
	"kehila/internal/external"
	"kehila/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes for the workflow collaborators ----

type fakeEventStore struct {
	events map[int64]*models.Event
	errFor map[int64]error
}

func (f *fakeEventStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	if err, ok := f.errFor[id]; ok {
		return nil, err
	}
	return f.events[id], nil
}

type fakeRegistrationStore struct {
	counts              map[int64]int
	registered          map[string]bool
	nextID              int64
	created             []*models.Registration
	linkedIDs           []int64
	linkedTo            int64
	writeErr            error
	cancelledBundleRegs []int64
}

func regKey(eventID, userID int64) string {
	return fmt.Sprintf("%d:%d", eventID, userID)
}

func (f *fakeRegistrationStore) CreateIfCapacity(ctx context.Context, reg *models.Registration, capacity int) (bool, error) {
	if f.writeErr != nil {
		return false, f.writeErr
	}
	if f.registered[regKey(reg.EventID, reg.UserID)] {
		return false, fmt.Errorf("active registration exists for event %d: %w", reg.EventID, apperrors.ErrConflict)
	}
	if f.counts[reg.EventID] >= capacity {
		return false, nil
	}
	f.nextID++
	reg.ID = f.nextID
	f.counts[reg.EventID]++
	f.registered[regKey(reg.EventID, reg.UserID)] = true
	f.created = append(f.created, reg)
	return true, nil
}

func (f *fakeRegistrationStore) CountActiveByEvent(ctx context.Context, eventID int64) (int, error) {
	return f.counts[eventID], nil
}

func (f *fakeRegistrationStore) HasActiveByEventAndUser(ctx context.Context, eventID, userID int64) (bool, error) {
	return f.registered[regKey(eventID, userID)], nil
}

func (f *fakeRegistrationStore) LinkToBundleRegistration(ctx context.Context, registrationIDs []int64, bundleRegistrationID int64) error {
	f.linkedIDs = registrationIDs
	f.linkedTo = bundleRegistrationID
	return nil
}

func (f *fakeRegistrationStore) CancelByBundleRegistration(ctx context.Context, bundleRegistrationID int64) error {
	f.cancelledBundleRegs = append(f.cancelledBundleRegs, bundleRegistrationID)
	return nil
}

type fakeBundleStore struct {
	bundles map[int64]*models.Bundle
}

func (f *fakeBundleStore) Create(ctx context.Context, bundle *models.Bundle) error {
	bundle.ID = int64(len(f.bundles) + 1)
	f.bundles[bundle.ID] = bundle
	return nil
}

func (f *fakeBundleStore) GetByID(ctx context.Context, id int64) (*models.Bundle, error) {
	return f.bundles[id], nil
}

func (f *fakeBundleStore) ListPublished(ctx context.Context) ([]models.Bundle, error) {
	return nil, nil
}

func (f *fakeBundleStore) ListAll(ctx context.Context) ([]models.Bundle, error) {
	return nil, nil
}

func (f *fakeBundleStore) Update(ctx context.Context, bundle *models.Bundle) error { return nil }

func (f *fakeBundleStore) Delete(ctx context.Context, id int64) error { return nil }

type fakeBundleRegStore struct {
	active   bool
	nextID   int64
	created  []*models.BundleRegistration
	intents  map[int64]string
	statuses map[int64]string
}

func (f *fakeBundleRegStore) Create(ctx context.Context, br *models.BundleRegistration) error {
	if f.active {
		return fmt.Errorf("active registration exists for bundle %d: %w", br.BundleID, apperrors.ErrConflict)
	}
	f.nextID++
	br.ID = f.nextID
	f.created = append(f.created, br)
	return nil
}

func (f *fakeBundleRegStore) GetByID(ctx context.Context, id int64) (*models.BundleRegistration, error) {
	for _, br := range f.created {
		if br.ID == id {
			return br, nil
		}
	}
	return nil, nil
}

func (f *fakeBundleRegStore) HasActive(ctx context.Context, bundleID, userID int64) (bool, error) {
	return f.active, nil
}

func (f *fakeBundleRegStore) UpdateStatus(ctx context.Context, id int64, status, paymentStatus string) error {
	if f.statuses == nil {
		f.statuses = make(map[int64]string)
	}
	f.statuses[id] = status
	for _, br := range f.created {
		if br.ID == id {
			br.Status = status
			br.PaymentStatus = paymentStatus
		}
	}
	return nil
}

func (f *fakeBundleRegStore) SetPaymentIntent(ctx context.Context, id int64, intentID string) error {
	if f.intents == nil {
		f.intents = make(map[int64]string)
	}
	f.intents[id] = intentID
	return nil
}

type fakeProfileStore struct {
	users   map[string]*models.UserProfile
	created []*models.UserProfile
}

func (f *fakeProfileStore) GetBySubject(ctx context.Context, subject string) (*models.UserProfile, error) {
	return f.users[subject], nil
}

func (f *fakeProfileStore) Create(ctx context.Context, user *models.UserProfile) error {
	user.ID = int64(100 + len(f.created))
	f.users[user.Subject] = user
	f.created = append(f.created, user)
	return nil
}

type fakeIdentity struct {
	identity *external.VerifiedIdentity
	err      error
}

func (f *fakeIdentity) VerifyToken(ctx context.Context, token string) (*external.VerifiedIdentity, error) {
	return f.identity, f.err
}

type fakePayments struct {
	configured bool
	resp       *external.PaymentIntentResponse
	err        error
	amounts    []int64
	cancelled  []string
}

func (f *fakePayments) Configured() bool { return f.configured }

func (f *fakePayments) CreateIntent(ctx context.Context, amount int64, metadata map[string]string) (*external.PaymentIntentResponse, error) {
	f.amounts = append(f.amounts, amount)
	return f.resp, f.err
}

func (f *fakePayments) CancelIntent(ctx context.Context, intentID string) error {
	f.cancelled = append(f.cancelled, intentID)
	return nil
}

type fakePublisher struct {
	subjects []string
	err      error
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.subjects = append(f.subjects, subject)
	return f.err
}

// ---- fixture ----

type bundleFixture struct {
	events     *fakeEventStore
	regs       *fakeRegistrationStore
	bundles    *fakeBundleStore
	bundleRegs *fakeBundleRegStore
	users      *fakeProfileStore
	identity   *fakeIdentity
	payments   *fakePayments
	publisher  *fakePublisher
	svc        *BundleService
}

func newBundleFixture() *bundleFixture {
	f := &bundleFixture{
		events:     &fakeEventStore{events: map[int64]*models.Event{}, errFor: map[int64]error{}},
		regs:       &fakeRegistrationStore{counts: map[int64]int{}, registered: map[string]bool{}},
		bundles:    &fakeBundleStore{bundles: map[int64]*models.Bundle{}},
		bundleRegs: &fakeBundleRegStore{},
		users: &fakeProfileStore{users: map[string]*models.UserProfile{
			"sub-1": {ID: 7, Subject: "sub-1", Email: "parent@example.com", Name: "נועה לוי", Role: models.RoleParent},
		}},
		identity:  &fakeIdentity{identity: &external.VerifiedIdentity{Subject: "sub-1", Email: "parent@example.com"}},
		payments:  &fakePayments{},
		publisher: &fakePublisher{},
	}
	f.svc = NewBundleService(f.bundles, f.bundleRegs, f.events, f.regs, f.users, f.identity, f.payments, f.publisher)
	return f
}

func (f *bundleFixture) addEvent(id int64, capacity int) *models.Event {
	starts := time.Now().Add(72 * time.Hour)
	event := &models.Event{
		ID:        id,
		Title:     fmt.Sprintf("אירוע %d", id),
		StartsAt:  &starts,
		Capacity:  capacity,
		Status:    models.EventStatusActive,
		Published: true,
	}
	f.events.events[id] = event
	return event
}

func (f *bundleFixture) addBundle(id int64, eventIDs, replacementIDs []int64, priceAgorot int64) *models.Bundle {
	validUntil := time.Now().Add(30 * 24 * time.Hour)
	bundle := &models.Bundle{
		ID:                  id,
		Title:               "חבילת קיץ",
		PriceAgorot:         priceAgorot,
		ValidUntil:          &validUntil,
		Published:           true,
		Active:              true,
		EventIDs:            eventIDs,
		ReplacementEventIDs: replacementIDs,
	}
	f.bundles.bundles[id] = bundle
	return bundle
}

func registerReq(bundleID int64) *models.RegisterBundleRequest {
	return &models.RegisterBundleRequest{Token: "tok", BundleID: bundleID}
}

// ---- tests ----

func TestRegisterBundle_AllEligible(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addEvent(2, 10)
	f.addBundle(5, []int64{1, 2}, nil, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	assert.Len(t, resp.EventRegistrations, 2)
	assert.Empty(t, resp.SkippedEvents)
	assert.Equal(t, models.RegistrationStatusPending, resp.Status)
	assert.Equal(t, "registered for 2 of 2 events", resp.Message)
	assert.Nil(t, resp.ClientSecret)

	require.Len(t, f.bundleRegs.created, 1)
	br := f.bundleRegs.created[0]
	assert.Equal(t, int64(5), br.BundleID)
	assert.Equal(t, int64(7), br.UserID)
	assert.Equal(t, "parent@example.com", br.PurchaserEmail)

	// Member registrations back-referenced to the parent record
	assert.Equal(t, br.ID, f.regs.linkedTo)
	assert.Len(t, f.regs.linkedIDs, 2)

	assert.Contains(t, f.publisher.subjects, models.EventBundleRegistrationCompleted)
}

func TestRegisterBundle_MissingToken(t *testing.T) {
	f := newBundleFixture()

	_, err := f.svc.Register(context.Background(), &models.RegisterBundleRequest{BundleID: 5})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegisterBundle_InvalidToken(t *testing.T) {
	f := newBundleFixture()
	f.identity.err = errors.New("token expired")
	f.addBundle(5, []int64{1}, nil, 0)

	_, err := f.svc.Register(context.Background(), registerReq(5))
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRegisterBundle_BundleNotFound(t *testing.T) {
	f := newBundleFixture()

	_, err := f.svc.Register(context.Background(), registerReq(42))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRegisterBundle_ExpiredBundle(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	bundle := f.addBundle(5, []int64{1}, nil, 0)
	expired := time.Now().Add(-time.Hour)
	bundle.ValidUntil = &expired

	_, err := f.svc.Register(context.Background(), registerReq(5))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegisterBundle_DuplicatePurchase(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addBundle(5, []int64{1}, nil, 0)
	f.bundleRegs.active = true

	_, err := f.svc.Register(context.Background(), registerReq(5))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.regs.created)
}

func TestRegisterBundle_FullEventSkippedWithoutReplacements(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addEvent(2, 3)
	f.regs.counts[2] = 3 // at capacity
	f.addBundle(5, []int64{1, 2}, nil, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	require.Len(t, resp.EventRegistrations, 1)
	assert.Equal(t, int64(1), resp.EventRegistrations[0].EventID)
	assert.Equal(t, "registered", resp.EventRegistrations[0].Outcome)

	require.Len(t, resp.SkippedEvents, 1)
	assert.Equal(t, int64(2), resp.SkippedEvents[0].EventID)
	assert.Equal(t, ReasonFull, resp.SkippedEvents[0].Reason)

	assert.Equal(t, "registered for 1 of 2 events", resp.Message)
}

func TestRegisterBundle_ReplacementFirstFit(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 3)
	f.regs.counts[1] = 3 // primary full
	f.addEvent(10, 3)
	f.regs.counts[10] = 3 // first replacement also full
	f.addEvent(11, 5)
	f.addEvent(12, 5)
	f.addBundle(5, []int64{1}, []int64{10, 11, 12}, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	// The first eligible replacement in pool order wins, later ones untouched
	require.Len(t, resp.EventRegistrations, 1)
	assert.Equal(t, int64(11), resp.EventRegistrations[0].EventID)
	assert.Equal(t, "replaced", resp.EventRegistrations[0].Outcome)
	assert.Empty(t, resp.SkippedEvents)
	assert.Equal(t, 0, f.regs.counts[12])
}

func TestRegisterBundle_ReplacementConsumedOnce(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 2)
	f.regs.counts[1] = 2
	f.addEvent(2, 2)
	f.regs.counts[2] = 2
	f.addEvent(20, 5)
	f.addBundle(5, []int64{1, 2}, []int64{20}, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	// One replacement cannot cover two primaries
	require.Len(t, resp.EventRegistrations, 1)
	assert.Equal(t, int64(20), resp.EventRegistrations[0].EventID)
	assert.Equal(t, "replaced", resp.EventRegistrations[0].Outcome)

	require.Len(t, resp.SkippedEvents, 1)
	assert.Equal(t, int64(2), resp.SkippedEvents[0].EventID)
	assert.Equal(t, ReasonFull, resp.SkippedEvents[0].Reason)
}

func TestRegisterBundle_SkipKeepsPrimaryReason(t *testing.T) {
	f := newBundleFixture()
	cancelled := f.addEvent(1, 10)
	cancelled.Status = models.EventStatusCancelled
	f.addBundle(5, []int64{1}, nil, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	require.Len(t, resp.SkippedEvents, 1)
	assert.Equal(t, int64(1), resp.SkippedEvents[0].EventID)
	assert.Equal(t, ReasonCancelled, resp.SkippedEvents[0].Reason)
}

func TestRegisterBundle_AlreadyRegisteredSkipsReplacementSearch(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.regs.counts[1] = 1
	f.regs.registered[regKey(1, 7)] = true
	f.addEvent(30, 10) // eligible replacement that must not be used
	f.addBundle(5, []int64{1}, []int64{30}, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	assert.Empty(t, resp.EventRegistrations)
	require.Len(t, resp.SkippedEvents, 1)
	assert.Equal(t, ReasonAlreadyRegistered, resp.SkippedEvents[0].Reason)
	assert.Equal(t, 0, f.regs.counts[30])
}

func TestRegisterBundle_BrokenEventDoesNotSinkBatch(t *testing.T) {
	f := newBundleFixture()
	f.events.errFor[1] = errors.New("connection refused")
	f.addEvent(2, 10)
	f.addBundle(5, []int64{1, 2}, nil, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	require.Len(t, resp.EventRegistrations, 1)
	assert.Equal(t, int64(2), resp.EventRegistrations[0].EventID)
	require.Len(t, resp.SkippedEvents, 1)
	assert.Equal(t, ReasonError, resp.SkippedEvents[0].Reason)
}

func TestRegisterBundle_WriteFailureAborts(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addBundle(5, []int64{1}, nil, 0)
	f.regs.writeErr = errors.New("disk full")

	_, err := f.svc.Register(context.Background(), registerReq(5))
	assert.Error(t, err)
	assert.Empty(t, f.bundleRegs.created)
}

func TestRegisterBundle_PaymentIntentOpened(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addBundle(5, []int64{1}, nil, 12000)
	f.payments.configured = true
	f.payments.resp = &external.PaymentIntentResponse{IntentID: "pi_1", ClientSecret: "secret_1"}

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	require.NotNil(t, resp.ClientSecret)
	assert.Equal(t, "secret_1", *resp.ClientSecret)
	assert.Equal(t, []int64{12000}, f.payments.amounts)
	assert.Equal(t, "pi_1", f.bundleRegs.intents[resp.BundleRegistrationID])
	assert.Contains(t, f.publisher.subjects, models.EventPaymentIntentCreated)
}

func TestRegisterBundle_PaymentGatewayUnconfigured(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addBundle(5, []int64{1}, nil, 12000)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)
	assert.Nil(t, resp.ClientSecret)
	assert.Empty(t, f.payments.amounts)
}

func TestRegisterBundle_PaymentFailureDoesNotFailPurchase(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addBundle(5, []int64{1}, nil, 12000)
	f.payments.configured = true
	f.payments.err = errors.New("gateway timeout")

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)
	assert.Nil(t, resp.ClientSecret)
	assert.Len(t, resp.EventRegistrations, 1)
}

func TestRegisterBundle_PublishFailureDoesNotFailPurchase(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addBundle(5, []int64{1}, nil, 0)
	f.publisher.err = errors.New("nats unavailable")

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)
	assert.Len(t, resp.EventRegistrations, 1)
}

func TestRegisterBundle_CreatesProfileOnFirstPurchase(t *testing.T) {
	f := newBundleFixture()
	f.identity.identity = &external.VerifiedIdentity{Subject: "sub-new", Email: "new@example.com"}
	f.addEvent(1, 10)
	f.addBundle(5, []int64{1}, nil, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)
	assert.Len(t, resp.EventRegistrations, 1)

	require.Len(t, f.users.created, 1)
	created := f.users.created[0]
	assert.Equal(t, "sub-new", created.Subject)
	assert.Equal(t, models.RoleParent, created.Role)
	assert.Equal(t, "new@example.com", created.Name)
}

func TestRegisterBundle_UnpublishedEventSkipped(t *testing.T) {
	f := newBundleFixture()
	hidden := f.addEvent(1, 10)
	hidden.Published = false
	f.addEvent(2, 10)
	f.addBundle(5, []int64{1, 2}, nil, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	// Unpublishing withdraws the event from registration without cancelling it
	require.Len(t, resp.EventRegistrations, 1)
	assert.Equal(t, int64(2), resp.EventRegistrations[0].EventID)
	require.Len(t, resp.SkippedEvents, 1)
	assert.Equal(t, int64(1), resp.SkippedEvents[0].EventID)
	assert.Equal(t, ReasonNotPublished, resp.SkippedEvents[0].Reason)
}

func TestCancelBundleRegistration(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addBundle(5, []int64{1}, nil, 12000)
	f.payments.configured = true
	f.payments.resp = &external.PaymentIntentResponse{IntentID: "pi_1", ClientSecret: "secret_1"}

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	intentID := "pi_1"
	f.bundleRegs.created[0].PaymentIntentID = &intentID

	err = f.svc.CancelRegistration(context.Background(), resp.BundleRegistrationID)
	require.NoError(t, err)

	// Member registrations, the parent record and the open intent all cancel
	assert.Equal(t, []int64{resp.BundleRegistrationID}, f.regs.cancelledBundleRegs)
	assert.Equal(t, models.RegistrationStatusCancelled, f.bundleRegs.statuses[resp.BundleRegistrationID])
	assert.Equal(t, []string{"pi_1"}, f.payments.cancelled)
}

func TestCancelBundleRegistration_Idempotent(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addBundle(5, []int64{1}, nil, 0)

	resp, err := f.svc.Register(context.Background(), registerReq(5))
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelRegistration(context.Background(), resp.BundleRegistrationID))
	require.NoError(t, f.svc.CancelRegistration(context.Background(), resp.BundleRegistrationID))

	// The second call is a no-op on an already-cancelled purchase
	assert.Len(t, f.regs.cancelledBundleRegs, 1)
}

func TestCancelBundleRegistration_NotFound(t *testing.T) {
	f := newBundleFixture()

	err := f.svc.CancelRegistration(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateBundle_RejectsUnknownEvents(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)

	_, err := f.svc.CreateBundle(context.Background(), &models.CreateBundleRequest{
		Title:    "חבילה",
		EventIDs: []int64{1, 99},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateBundle_PersistsOrderedEvents(t *testing.T) {
	f := newBundleFixture()
	f.addEvent(1, 10)
	f.addEvent(2, 10)
	f.addEvent(3, 10)

	resp, err := f.svc.CreateBundle(context.Background(), &models.CreateBundleRequest{
		Title:               "חבילה",
		PriceAgorot:         9000,
		Published:           true,
		Active:              true,
		EventIDs:            []int64{2, 1},
		ReplacementEventIDs: []int64{3},
	})
	require.NoError(t, err)

	bundle, err := f.bundles.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, []int64{2, 1}, bundle.EventIDs)
	assert.Equal(t, []int64{3}, bundle.ReplacementEventIDs)
}
