package docker

import (
	"context"
	"errors"
	"testing"

	"jobhost/internal/apperrors"
)

func TestNewExecutor_BadDaemonAddress(t *testing.T) {
	t.Setenv("DOCKER_HOST", "not-a-daemon-address")

	_, err := NewExecutor(context.Background(), t.TempDir(), 0)
	if err == nil {
		t.Fatal("Expected an error for an unparseable daemon address")
	}
	if !errors.Is(err, apperrors.ErrInternal) {
		t.Errorf("Expected an internal error, got %v", err)
	}
}
