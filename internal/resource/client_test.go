package resource

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"server detail", &detailErr{status: 400, detail: "Year is required"}, "Year is required"},
		{"wrapped detail", fmt.Errorf("api: %w", &detailErr{detail: "Forbidden"}), "Forbidden"},
		{"empty detail falls back", &detailErr{status: 500}, "server error "},
		{"transport", errors.New("dial tcp 127.0.0.1:8000: connection refused"), "dial tcp 127.0.0.1:8000: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}
