package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/labstock/pkg/jwt"
)

const secret = "labstock-jwt-secret"

func TestGenerateParse(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u-7", "storekeeper", "labstock", 5)
	require.NoError(t, err)

	userID, role, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-7", userID)
	assert.Equal(t, "storekeeper", role)
}

func TestParse_Rechazos(t *testing.T) {
	expired, err := pkgjwt.Generate(secret, "u-7", "admin", "labstock", -1)
	require.NoError(t, err)
	valid, err := pkgjwt.Generate(secret, "u-7", "admin", "labstock", 5)
	require.NoError(t, err)

	cases := map[string]struct{ secret, token string }{
		"expirado":     {secret, expired},
		"otra firma":   {"otro-secret", valid},
		"malformado":   {secret, "a.b.c"},
		"secret vacío": {"", valid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := pkgjwt.Parse(tc.secret, tc.token)
			assert.Error(t, err)
		})
	}

	_, err = pkgjwt.Generate("", "u-7", "admin", "labstock", 5)
	assert.Error(t, err)
}
