package middleware

import (
	"context"
	"testing"
)

func TestWithIdentity_SetsAllValues(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1", "alice")

	userID, ok := GetUserID(ctx)
	if !ok || userID != "user-1" {
		t.Errorf("GetUserID = %q, %v", userID, ok)
	}
	username, ok := GetUsername(ctx)
	if !ok || username != "alice" {
		t.Errorf("GetUsername = %q, %v", username, ok)
	}
}

func TestGetUserID_ReturnsFalseWhenNotSet(t *testing.T) {
	userID, ok := GetUserID(context.Background())
	if ok {
		t.Error("GetUserID should return false when not set")
	}
	if userID != "" {
		t.Errorf("user_id = %q, want empty string", userID)
	}
}

func TestRequestID_Context(t *testing.T) {
	if GetRequestID(context.Background()) != "" {
		t.Error("request id should be empty outside a request")
	}
	if got := GetRequestID(WithRequestID(context.Background(), "r-1")); got != "r-1" {
		t.Errorf("GetRequestID = %q", got)
	}
}
