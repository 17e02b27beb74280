package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListOptions_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{"defaults", ListOptions{}, ListOptions{Limit: DefaultPageSize}},
		{"negative offset", ListOptions{Limit: 5, Offset: -3}, ListOptions{Limit: 5}},
		{"probe row allowed", ListOptions{Limit: MaxPageSize + 1}, ListOptions{Limit: MaxPageSize + 1}},
		{"clamped", ListOptions{Limit: 10_000, Offset: 40}, ListOptions{Limit: MaxPageSize + 1, Offset: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}
