package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	if IsTransient(errors.New("column \"foo\" does not exist")) {
		t.Error("statement error should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("read tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("expected ECONNRESET to be transient")
	}
}

func TestIsTransient_PgErrorCodes(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"57P03", true},
		{"53300", true},
		{"40001", true},
		{"08006", true},
		{"23505", false}, // unique_violation
		{"42601", false}, // syntax_error
	}
	for _, tt := range tests {
		err := fmt.Errorf("query: %w", &pgconn.PgError{Code: tt.code})
		if got := IsTransient(err); got != tt.want {
			t.Errorf("IsTransient(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsTransient_StartingUpMessage(t *testing.T) {
	if !IsTransient(errors.New("FATAL: the database system is starting up")) {
		t.Error("expected startup message to be transient")
	}
}
