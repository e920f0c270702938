package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/clinica-farmacia/pkg/jwt"
)

const (
	secret   = "test-secret-key-for-unit-tests"
	userID   = "00000000-0000-0000-0000-000000000001"
	clinicID = "00000000-0000-0000-0000-000000000002"
	issuer   = "clinica-auth-test"
)

func TestGenerateAndParse_ConRol(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, userID, clinicID, pkgjwt.RolePharmacist, issuer, 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := pkgjwt.Parse(secret, issuer, tok)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, clinicID, claims.ClinicID)
	assert.Equal(t, pkgjwt.RolePharmacist, claims.Role)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, userID, clinicID, pkgjwt.RoleAdmin, issuer, -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, issuer, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, userID, clinicID, pkgjwt.RoleAdmin, issuer, 60)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", issuer, tok)
	assert.Error(t, err, "secret incorrecto debe invalidar el token")
}

func TestParse_IssuerDistinto(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, userID, clinicID, pkgjwt.RoleAdmin, "otro-emisor", 60)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, issuer, tok)
	assert.Error(t, err, "issuer distinto debe invalidar el token")

	_, err = pkgjwt.Parse(secret, "", tok)
	assert.NoError(t, err, "sin issuer configurado no se valida el emisor")
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", userID, clinicID, pkgjwt.RoleAdmin, issuer, 60)
	assert.Error(t, err)
}
