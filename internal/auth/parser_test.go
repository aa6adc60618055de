package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dispatch-service/internal/model"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestParseValidToken(t *testing.T) {
	t.Parallel()

	technicianID := uuid.New()
	claims := Claims{
		SessionID:    uuid.New(),
		UserID:       technicianID,
		Role:         model.UserRoleTechnician,
		TechnicianID: &technicianID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	parser := NewParser("topsecret")
	parsed, err := parser.Parse(signToken(t, "topsecret", claims))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.UserID != claims.UserID || parsed.Role != model.UserRoleTechnician {
		t.Errorf("claims mismatch: %+v", parsed)
	}
	if parsed.TechnicianID == nil || *parsed.TechnicianID != technicianID {
		t.Errorf("technician claim lost: %v", parsed.TechnicianID)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	claims := Claims{
		UserID: uuid.New(),
		Role:   model.UserRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	parser := NewParser("topsecret")
	if _, err := parser.Parse(signToken(t, "other", claims)); err == nil {
		t.Error("a token signed with another secret must not parse")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	claims := Claims{
		UserID: uuid.New(),
		Role:   model.UserRoleRequester,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}

	parser := NewParser("topsecret")
	if _, err := parser.Parse(signToken(t, "topsecret", claims)); err == nil {
		t.Error("an expired token must not parse")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	parser := NewParser("topsecret")
	if _, err := parser.Parse("not-a-token"); err == nil {
		t.Error("garbage must not parse")
	}
}
