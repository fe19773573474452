package tokens

import (
	"testing"
	"time"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{ID: "u-1", Name: "Alice", Email: "alice@example.com", Role: models.RoleBusinessman}
}

func TestIssueAndParse(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("secret"), time.Hour)
	raw, exp, err := iss.Issue(testUser())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := iss.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, models.RoleBusinessman, claims.Role)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "u-1", claims.Subject)
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("secret"), time.Hour)

	expired := NewIssuer([]byte("secret"), time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredRaw, _, err := expired.Issue(testUser())
	require.NoError(t, err)

	foreignRaw, _, err := NewIssuer([]byte("other"), time.Hour).Issue(testUser())
	require.NoError(t, err)

	noEmailRaw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{Role: models.RoleFarmer}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noneRaw, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{Email: "x@example.com"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-a-token"},
		{"expired", expiredRaw},
		{"wrong secret", foreignRaw},
		{"missing email", noEmailRaw},
		{"alg none", noneRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := iss.Parse(tt.raw)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
