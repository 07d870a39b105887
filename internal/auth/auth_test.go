package auth

import (
	"testing"
	"time"
)

func TestAcceptHookAllowsMatchingRealm(t *testing.T) {
	a := New("test-secret")
	token, err := a.GenerateToken("realm1", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	hook := a.AcceptHook()
	accept, reason := hook("realm1", map[string]interface{}{
		"authextra": map[string]interface{}{"token": token},
	})
	if !accept {
		t.Fatalf("expected acceptance, got rejection: %s", reason)
	}
}

func TestAcceptHookRejectsWrongRealm(t *testing.T) {
	a := New("test-secret")
	token, err := a.GenerateToken("realm1", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	hook := a.AcceptHook()
	accept, _ := hook("realm2", map[string]interface{}{
		"authextra": map[string]interface{}{"token": token},
	})
	if accept {
		t.Fatal("expected rejection for mismatched realm")
	}
}

func TestAcceptHookRejectsMissingToken(t *testing.T) {
	a := New("test-secret")
	hook := a.AcceptHook()
	accept, reason := hook("realm1", map[string]interface{}{})
	if accept {
		t.Fatal("expected rejection for missing token")
	}
	if reason == "" {
		t.Fatal("expected a rejection reason")
	}
}

func TestAcceptHookRejectsTamperedSecret(t *testing.T) {
	a := New("test-secret")
	token, err := a.GenerateToken("realm1", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other := New("different-secret")
	accept, _ := other.AcceptHook()("realm1", map[string]interface{}{
		"authextra": map[string]interface{}{"token": token},
	})
	if accept {
		t.Fatal("expected rejection for a token signed with a different secret")
	}
}
