package staging_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/materialive/internal/modules/auth"
	"github.com/georgemunganga/materialive/internal/modules/staging"
)

// signedIn stands in for the bearer-token middleware.
func signedIn(p auth.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func (f *fixture) router(p *auth.Principal) http.Handler {
	r := chi.NewRouter()
	if p != nil {
		r.Use(signedIn(*p))
	}
	staging.NewHandler(f.svc).RegisterRoutes(r)
	return r
}

func send(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_StagingLifecycle(t *testing.T) {
	f := setup(t)
	asWarehouse := f.router(&warehouse)
	asField := f.router(&field)

	stageBody := func(dest string) string {
		return `{"po_id": "` + f.poID.String() + `", ` + dest + `,
			"items": [{"item_id": "` + f.items[1].String() + `", "quantity": "2.5"}], "pack_number": "P-9"}`
	}
	atW1A := stageBody(`"spot_id": "` + f.spots["W1A"].String() + `"`)

	rec := send(asWarehouse, http.MethodPost, "/api/v1/staging", atW1A)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created staging.Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, staging.StatusStaged, created.Status)
	assert.Equal(t, "W1A", created.SpotCode)

	rec = send(asWarehouse, http.MethodPost, "/api/v1/staging", atW1A)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = send(asField, http.MethodPost, "/api/v1/staging", stageBody(`"spot_id": "`+f.spots["W1B"].String()+`"`))
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = send(asWarehouse, http.MethodPost, "/api/v1/staging",
		stageBody(`"spot_id": "`+f.spots["W1B"].String()+`", "custom_location": "DOCK"`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = send(f.router(nil), http.MethodPost, "/api/v1/staging", atW1A)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	statusPath := "/api/v1/staging/" + created.ID.String() + "/status"
	rec = send(asField, http.MethodPatch, statusPath, `{"status": "ready"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = send(asWarehouse, http.MethodPatch, statusPath, `{"status": "staged"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = send(asWarehouse, http.MethodPatch, statusPath, `{"status": "ready"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)

	deliveryBody := `{"staging_record_id": "` + created.ID.String() + `", "signer_name": "Jane Doe", "signature_data": "sig"}`
	rec = send(asField, http.MethodPost, "/api/v1/deliveries", deliveryBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = send(asWarehouse, http.MethodPost, "/api/v1/deliveries", deliveryBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"signer_last_name":"DOE"`)

	rec = send(asWarehouse, http.MethodPatch, statusPath, `{"status": "returned"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = send(asWarehouse, http.MethodPost, "/api/v1/deliveries", deliveryBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = send(asField, http.MethodGet, "/api/v1/staging/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"picked_up"`)
	rec = send(asField, http.MethodGet, "/api/v1/staging/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = send(asField, http.MethodGet, "/api/v1/deliveries", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
