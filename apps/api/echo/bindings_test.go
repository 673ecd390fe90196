package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
)

func TestOrdering_Bind(t *testing.T) {
	allowed := []string{"created_at", "date", "status"}
	tests := []struct {
		name    string
		query   string
		want    []core.DBOrdering
		wantErr bool
	}{
		{name: "no ordering", query: ""},
		{
			name:  "mixed directions",
			query: "?ordering=-created_at,%20date",
			want:  []core.DBOrdering{{Field: "created_at"}, {Field: "date", Ascending: true}},
		},
		{name: "unknown field", query: "?ordering=password_hash", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/leaves"+tt.query, nil)
			ctx := echo.New().NewContext(req, httptest.NewRecorder())

			ord := new(Ordering)
			err := ord.Bind(ctx, allowed)
			if tt.wantErr {
				assert.True(t, core.IsValidation(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ord.Orderings)
		})
	}
}
