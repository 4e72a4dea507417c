package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, domain.ErrAlreadyExists},
		{"foreign key", &pgconn.PgError{Code: "23503"}, domain.ErrNotFound},
		{"check", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23514"}), domain.ErrValidation},
		{"deadline", context.DeadlineExceeded, context.DeadlineExceeded},
		{"canceled", context.Canceled, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.in, "order", 1)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.NoError(t, MapError(nil, "order", 1))
}

func TestMapError_Unknown(t *testing.T) {
	base := errors.New("connection reset")
	got := MapError(base, "order_event", 3)
	assert.ErrorIs(t, got, base)
	assert.NotErrorIs(t, got, domain.ErrNotFound)
}
