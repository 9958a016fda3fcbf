package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/labstock/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/labstock/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "labstock-test"
)

// tokenForRole genera el header Authorization con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, 60)
	require.NoError(t, err)
	return "Bearer " + tok
}

// Matriz de permisos de las rutas del motor sobre un almacén vacío: un rol autorizado
// llega al handler (200/404), uno no autorizado se corta con 403.
func TestRouter_PermisosPorRol(t *testing.T) {
	f := newAPI(t)
	tests := []struct {
		role, method, path string
		want               int
	}{
		{"viewer", http.MethodGet, "/api/items", http.StatusOK},
		{"viewer", http.MethodGet, "/api/orders/1/issues", http.StatusOK},
		{"viewer", http.MethodGet, "/api/orders/1/material-cost", http.StatusOK},
		{"viewer", http.MethodGet, "/api/lots/1/simulation", http.StatusNotFound},
		{"viewer", http.MethodPost, "/api/lots/1/allocate", http.StatusForbidden},
		{"viewer", http.MethodPut, "/api/lots/1/usage-window", http.StatusForbidden},
		{"viewer", http.MethodPost, "/api/stage-mappings", http.StatusForbidden},
		{"storekeeper", http.MethodPost, "/api/lots/1/allocate", http.StatusNotFound},
		{"storekeeper", http.MethodPost, "/api/lots/1/rollback", http.StatusForbidden},
		{"storekeeper", http.MethodDelete, "/api/movements/1", http.StatusForbidden},
		{"storekeeper", http.MethodPost, "/api/items/1/recompute", http.StatusForbidden},
		{"admin", http.MethodPost, "/api/lots/1/rollback", http.StatusNotFound},
		{"admin", http.MethodDelete, "/api/movements/1", http.StatusNotFound},
		{"admin", http.MethodPost, "/api/items/1/recompute", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.role+" "+tc.method+" "+tc.path, func(t *testing.T) {
			status, body := f.call(t, tc.role, tc.method, tc.path, nil)
			assert.Equal(t, tc.want, status, body)
			if tc.want == http.StatusForbidden {
				assert.Equal(t, "FORBIDDEN", body["code"])
			}
		})
	}
}

func TestRouter_TokensRechazados(t *testing.T) {
	f := newAPI(t)
	noRole, err := pkgjwt.Generate(testJWTSecret, testUserID, "", testIssuer, 60)
	require.NoError(t, err)
	expired, err := pkgjwt.Generate(testJWTSecret, testUserID, "admin", testIssuer, -1)
	require.NoError(t, err)
	foreign, err := pkgjwt.Generate("otro-secret", testUserID, "admin", testIssuer, 60)
	require.NoError(t, err)

	tests := map[string]struct {
		header, code string
	}{
		"sin rol":    {"Bearer " + noRole, "MISSING_ROLE"},
		"expirado":   {"Bearer " + expired, "INVALID_TOKEN"},
		"otra firma": {"Bearer " + foreign, "INVALID_TOKEN"},
		"sin bearer": {noRole, "INVALID_TOKEN"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			req.Header.Set("Authorization", tc.header)
			resp, err := f.app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestAuthMiddleware_CargaClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), apphttp.RequireRole(apphttp.RoleStorekeeper), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": apphttp.GetUserID(c), "role": apphttp.GetRole(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, apphttp.RoleStorekeeper))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, apphttp.RoleStorekeeper, body["role"])
}
