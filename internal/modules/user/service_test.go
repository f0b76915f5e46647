package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/database/dbtest"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	return NewService(repo), repo
}

func TestCreateUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "  jsmith ",
		FullName: "John Smith",
		PIN:      "1234",
		Role:     RoleWarehouse,
	})
	require.NoError(t, err)
	assert.Equal(t, "JSMITH", u.Username)
	assert.True(t, u.Active)

	stored, err := repo.GetByUsername(ctx, "JSMITH")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
	assert.Equal(t, RoleWarehouse, stored.Role)
	assert.Nil(t, stored.LastLoginAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PINHash), []byte("1234")))
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"missing username", CreateUserRequest{PIN: "1234", Role: RoleAdmin}},
		{"bad role", CreateUserRequest{Username: "a", PIN: "1234", Role: "boss"}},
		{"short pin", CreateUserRequest{Username: "a", PIN: "12", Role: RoleAdmin}},
		{"letters in pin", CreateUserRequest{Username: "a", PIN: "12ab", Role: RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tt.req)
			assert.True(t, apperr.Is(err, apperr.KindInvalidInput), "got %v", err)
		})
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := CreateUserRequest{Username: "ops", PIN: "4321", Role: RoleField}

	_, err := svc.CreateUser(ctx, req)
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, req)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestGetByUsername_NotFound(t *testing.T) {
	_, repo := newTestService(t)
	_, err := repo.GetByUsername(context.Background(), "NOBODY")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRole_CanWrite(t *testing.T) {
	assert.True(t, RoleAdmin.CanWrite())
	assert.True(t, RoleWarehouse.CanWrite())
	assert.False(t, RoleField.CanWrite())
}

func TestUpdateUser_Deactivate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, CreateUserRequest{Username: "field1", PIN: "1111", Role: RoleField})
	require.NoError(t, err)

	off := false
	got, err := svc.UpdateUser(ctx, u.ID, UpdateUserRequest{Active: &off})
	require.NoError(t, err)
	assert.False(t, got.Active)
	stored, err := repo.GetByUsername(ctx, "FIELD1")
	require.NoError(t, err)
	assert.False(t, stored.Active)

	_, err = svc.UpdateUser(ctx, u.ID, UpdateUserRequest{})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = svc.UpdateUser(ctx, uuid.New(), UpdateUserRequest{Active: &off})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestHandler_UpdateUser(t *testing.T) {
	svc, _ := newTestService(t)
	u, err := svc.CreateUser(context.Background(), CreateUserRequest{Username: "field2", PIN: "2222", Role: RoleField})
	require.NoError(t, err)
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)

	patch := func(path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body)))
		return rec
	}

	rec := patch("/api/v1/users/"+u.ID.String(), `{"active": false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"active":false`)

	assert.Equal(t, http.StatusBadRequest, patch("/api/v1/users/"+u.ID.String(), `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, patch("/api/v1/users/nope", `{"active": true}`).Code)
	assert.Equal(t, http.StatusNotFound, patch("/api/v1/users/"+uuid.NewString(), `{"active": true}`).Code)
}
