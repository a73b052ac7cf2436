package service

import (
	"context"
	"database/sql"
	"testing"

	apperrors "kehila/internal/errors"
	"kehila/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfileDirectory struct {
	bySubject map[string]*models.UserProfile
	byID      map[int64]*models.UserProfile
	nextID    int64
}

func newFakeProfileDirectory() *fakeProfileDirectory {
	return &fakeProfileDirectory{
		bySubject: map[string]*models.UserProfile{},
		byID:      map[int64]*models.UserProfile{},
		nextID:    100,
	}
}

func (f *fakeProfileDirectory) add(user *models.UserProfile) *models.UserProfile {
	if user.ID == 0 {
		f.nextID++
		user.ID = f.nextID
	}
	f.bySubject[user.Subject] = user
	f.byID[user.ID] = user
	return user
}

func (f *fakeProfileDirectory) GetBySubject(ctx context.Context, subject string) (*models.UserProfile, error) {
	return f.bySubject[subject], nil
}

func (f *fakeProfileDirectory) GetByID(ctx context.Context, id int64) (*models.UserProfile, error) {
	return f.byID[id], nil
}

func (f *fakeProfileDirectory) Create(ctx context.Context, user *models.UserProfile) error {
	f.add(user)
	return nil
}

func (f *fakeProfileDirectory) List(ctx context.Context) ([]models.UserProfile, error) {
	return nil, nil
}

func (f *fakeProfileDirectory) ListByRoles(ctx context.Context, roles []string) ([]models.UserProfile, error) {
	return nil, nil
}

func (f *fakeProfileDirectory) UpdateRole(ctx context.Context, id int64, role string) error {
	user, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Role = role
	return nil
}

func (f *fakeProfileDirectory) UpdateGroups(ctx context.Context, id int64, groups []string) error {
	user, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Groups = groups
	return nil
}

func (f *fakeProfileDirectory) UpdateContact(ctx context.Context, id int64, name, phone string) error {
	user, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Name = name
	user.Phone = phone
	return nil
}

func TestBootstrap_CreatesProfile(t *testing.T) {
	store := newFakeProfileDirectory()
	svc := NewProfileService(store)

	user, err := svc.Bootstrap(context.Background(), "sub-1", "parent@example.com",
		&models.BootstrapProfileRequest{Name: "נועה לוי", Phone: "050-1234567"})
	require.NoError(t, err)

	assert.Equal(t, "נועה לוי", user.Name)
	assert.Equal(t, "050-1234567", user.Phone)
	assert.Equal(t, models.RoleParent, user.Role)
	assert.NotNil(t, store.bySubject["sub-1"])
}

func TestBootstrap_NameFallsBackToEmail(t *testing.T) {
	store := newFakeProfileDirectory()
	svc := NewProfileService(store)

	user, err := svc.Bootstrap(context.Background(), "sub-1", "parent@example.com",
		&models.BootstrapProfileRequest{})
	require.NoError(t, err)

	assert.Equal(t, "parent@example.com", user.Name)
}

func TestBootstrap_CompletesPurchaseCreatedProfile(t *testing.T) {
	store := newFakeProfileDirectory()
	// A bundle purchase made before bootstrap leaves the email as the name
	store.add(&models.UserProfile{
		Subject: "sub-1",
		Email:   "parent@example.com",
		Name:    "parent@example.com",
		Role:    models.RoleParent,
	})
	svc := NewProfileService(store)

	user, err := svc.Bootstrap(context.Background(), "sub-1", "parent@example.com",
		&models.BootstrapProfileRequest{Name: "נועה לוי", Phone: "050-1234567"})
	require.NoError(t, err)

	assert.Equal(t, "נועה לוי", user.Name)
	assert.Equal(t, "050-1234567", user.Phone)

	stored := store.bySubject["sub-1"]
	assert.Equal(t, "נועה לוי", stored.Name)
	assert.Equal(t, "050-1234567", stored.Phone)
}

func TestBootstrap_KeepsExistingValuesWhenRequestEmpty(t *testing.T) {
	store := newFakeProfileDirectory()
	store.add(&models.UserProfile{
		Subject: "sub-1",
		Email:   "parent@example.com",
		Name:    "נועה לוי",
		Phone:   "050-1234567",
		Role:    models.RoleParent,
	})
	svc := NewProfileService(store)

	user, err := svc.Bootstrap(context.Background(), "sub-1", "parent@example.com",
		&models.BootstrapProfileRequest{})
	require.NoError(t, err)

	assert.Equal(t, "נועה לוי", user.Name)
	assert.Equal(t, "050-1234567", user.Phone)
}

func TestUpdateRole(t *testing.T) {
	store := newFakeProfileDirectory()
	user := store.add(&models.UserProfile{Subject: "sub-1", Role: models.RoleParent})
	svc := NewProfileService(store)

	require.NoError(t, svc.UpdateRole(context.Background(), user.ID, models.RoleTrainer))
	assert.Equal(t, models.RoleTrainer, user.Role)

	err := svc.UpdateRole(context.Background(), user.ID, "owner")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = svc.UpdateRole(context.Background(), 999, models.RoleTrainer)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateGroups(t *testing.T) {
	store := newFakeProfileDirectory()
	user := store.add(&models.UserProfile{Subject: "sub-1", Role: models.RoleParent})
	svc := NewProfileService(store)

	require.NoError(t, svc.UpdateGroups(context.Background(), user.ID, []string{"kita-a", "kita-b"}))
	assert.Equal(t, []string{"kita-a", "kita-b"}, user.Groups)

	// nil clears membership instead of writing a NULL array
	require.NoError(t, svc.UpdateGroups(context.Background(), user.ID, nil))
	assert.Equal(t, []string{}, user.Groups)

	err := svc.UpdateGroups(context.Background(), 999, []string{"kita-a"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
