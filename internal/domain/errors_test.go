package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "Domain error passes through",
			err:        NewNotFound("criteria version %s not found", "abc"),
			wantCode:   CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Wrapped domain error passes through",
			err:        fmt.Errorf("loading: %w", NewConflict("already confirmed")),
			wantCode:   CodeConflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "Locked database becomes unavailable",
			err:        errors.New("database is locked (5) (SQLITE_BUSY)"),
			wantCode:   CodeServiceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "Context deadline becomes unavailable",
			err:        context.DeadlineExceeded,
			wantCode:   CodeServiceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "Unknown error becomes internal",
			err:        errors.New("boom"),
			wantCode:   CodeInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := Classify(tt.err)
			assert.Equal(t, tt.wantCode, de.Code)
			assert.Equal(t, tt.wantStatus, de.Status)
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(errors.New("disk I/O error")))
	assert.False(t, IsConnectionError(errors.New("UNIQUE constraint failed")))
	assert.False(t, IsConnectionError(nil))
}
