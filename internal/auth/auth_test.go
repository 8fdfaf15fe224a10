package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joseph-ayodele/docintake/internal/common"
)

var secret = []byte(strings.Repeat("k", MinSecretLen))

func TestIssueVerifyRoundTrip(t *testing.T) {
	iss, err := NewIssuer(secret, "docintake", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	tok, err := iss.Issue("user-1", "a@example.org", RoleAdmin, true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	v, err := NewVerifier(secret, "docintake")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	c, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Subject != "user-1" || c.Email != "a@example.org" || !c.IsAdmin() || !c.IsActive() {
		t.Errorf("claims = %+v", c)
	}
}

func TestVerifyRejects(t *testing.T) {
	iss, _ := NewIssuer(secret, "docintake", time.Hour)
	good, _ := iss.Issue("user-1", "", RoleUser, true)

	other, _ := NewIssuer([]byte(strings.Repeat("x", MinSecretLen)), "docintake", time.Hour)
	wrongKey, _ := other.Issue("user-1", "", RoleUser, true)

	expiredIss, _ := NewIssuer(secret, "docintake", time.Hour)
	expiredIss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredIss.Issue("user-1", "", RoleUser, true)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	noneTok, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	v, _ := NewVerifier(secret, "other-issuer")
	if _, err := v.Verify(good); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("issuer mismatch err = %v", err)
	}

	v, _ = NewVerifier(secret, "")
	for name, tok := range map[string]string{
		"wrong key": wrongKey,
		"expired":   expired,
		"alg none":  noneTok,
		"garbage":   "not.a.jwt",
	} {
		if _, err := v.Verify(tok); !errors.Is(err, common.ErrUnauthorized) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestInactiveClaim(t *testing.T) {
	iss, _ := NewIssuer(secret, "", time.Hour)
	tok, _ := iss.Issue("user-2", "", RoleUser, false)
	v, _ := NewVerifier(secret, "")
	c, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.IsActive() || c.IsAdmin() {
		t.Errorf("claims = %+v", c)
	}
}

func TestFromHeader(t *testing.T) {
	if tok, err := FromHeader("Bearer abc.def"); err != nil || tok != "abc.def" {
		t.Errorf("FromHeader = %q, %v", tok, err)
	}
	for _, h := range []string{"", "Bearer ", "Basic abc", "abc"} {
		if _, err := FromHeader(h); !errors.Is(err, common.ErrUnauthorized) {
			t.Errorf("FromHeader(%q) err = %v", h, err)
		}
	}
}

func TestShortSecretRejected(t *testing.T) {
	if _, err := NewVerifier([]byte("short"), ""); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err = %v", err)
	}
	iss, _ := NewIssuer(secret, "", 0)
	if _, err := iss.Issue("u", "", "root", true); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("bad role err = %v", err)
	}
}
