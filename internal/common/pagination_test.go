package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		wantPage int
		wantPer  int
	}{
		{"defaults", "/clients", 1, 20},
		{"explicit", "/clients?page=3&limit=50", 3, 50},
		{"clamped to max", "/clients?limit=5000", 1, 100},
		{"garbage ignored", "/clients?page=abc&limit=-4", 1, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, perPage := ParsePagination(httptest.NewRequest("GET", tc.url, nil), 20, 100)
			require.Equal(t, tc.wantPage, page)
			require.Equal(t, tc.wantPer, perPage)
		})
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 41)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 41, p.TotalItems)

	empty := NewPagination(1, 20, 0)
	require.Equal(t, 0, empty.TotalPages)
}
