package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := GenerateJWT(&JWTClaims{
		UserID:    42,
		Email:     "ada@example.com",
		Name:      "Ada",
		TokenID:   "sess-1",
		Type:      TokenTypeAccess,
		ExpiresAt: now.Add(time.Hour).Unix(),
		IssuedAt:  now.Unix(),
		NotBefore: now.Unix(),
		Issuer:    "xperia-backend",
	}, "secret")
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "sess-1", claims.TokenID)
	assert.Equal(t, TokenTypeAccess, claims.Type)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestJWTExpired(t *testing.T) {
	token, err := GenerateJWT(&JWTClaims{
		UserID:    1,
		Type:      TokenTypeAccess,
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}, "secret")
	require.NoError(t, err)

	_, err = ValidateJWT(token, "secret")
	assert.Error(t, err)
}

type sample struct {
	Email string `validate:"required,email"`
	Style string `validate:"required,oneof=adventure nature"`
	Age   int    `validate:"gte=18,lte=120"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sample{Email: "a@b.co", Style: "nature", Age: 30}))

	err := ValidateStruct(sample{Email: "nope", Style: "party", Age: 12})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email must be a valid email")
	assert.Contains(t, err.Error(), "Style must be one of: adventure nature")
	assert.Contains(t, err.Error(), "Age must be greater than or equal to 18")
}

func TestResponses(t *testing.T) {
	rec := httptest.NewRecorder()
	SuccessResponse(rec, map[string]int{"n": 1}, http.StatusCreated)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)

	rec = httptest.NewRecorder()
	RespondWithError(rec, http.StatusNotFound, "match not found")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"match not found"}`, rec.Body.String())
}
