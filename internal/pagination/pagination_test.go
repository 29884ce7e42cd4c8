package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, Limit: DefaultLimit}},
		{"explicit", "?page=3&limit=25", Params{Page: 3, Limit: 25}},
		{"clamped", "?page=0&limit=1000", Params{Page: 1, Limit: MaxLimit}},
		{"garbage", "?page=abc&limit=-4", Params{Page: 1, Limit: DefaultLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/appointments"+tt.query, nil)
			assert.Equal(t, tt.want, FromRequest(r))
		})
	}
}

func TestOffsetAndResponse(t *testing.T) {
	p := Params{Page: 3, Limit: 10}
	assert.Equal(t, 20, p.Offset())

	resp := NewResponse(p, 41)
	assert.Equal(t, 5, resp.TotalPages)
	assert.Equal(t, 41, resp.Total)

	assert.Equal(t, 0, NewResponse(p, 0).TotalPages)
}
