package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter() *mux.Router {
	router := mux.NewRouter()
	NewHandlers().RegisterRoutes(router)
	return router
}

func TestListRoleMatrices(t *testing.T) {
	router := setupRouter()

	req := httptest.NewRequest("GET", "/api/v1/rbac/roles", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["system"], "admin")
	assert.Contains(t, body["system"], "operator")
	assert.Contains(t, body["tenant"], "owner")
	assert.Contains(t, body["tenant"], "member")
	// Displayed matrix must agree with enforcement: spot-check the billing
	// carve-out.
	assert.Contains(t, body["tenant"]["owner"], string(TenantBillingManage))
	assert.NotContains(t, body["tenant"]["admin"], string(TenantBillingManage))
}

func TestGetRoleMatrix(t *testing.T) {
	router := setupRouter()

	req := httptest.NewRequest("GET", "/api/v1/rbac/roles/tenant", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Kind  string              `json:"kind"`
		Roles map[string][]string `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tenant", body.Kind)
	assert.Len(t, body.Roles, 3)
}

func TestGetRoleMatrix_UnknownKind(t *testing.T) {
	router := setupRouter()

	req := httptest.NewRequest("GET", "/api/v1/rbac/roles/galactic", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
