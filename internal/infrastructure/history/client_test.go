package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
)

func TestRepairArray(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "valid array passes through",
			body: `[{"time":1,"open":2}]`,
			want: `[{"time":1,"open":2}]`,
		},
		{
			name: "missing outer brackets",
			body: `{"time":1,"open":2}`,
			want: `[{"time":1,"open":2}]`,
		},
		{
			name: "objects glued without separators",
			body: `{"time":1,"open":2}{"time":3,"open":4}`,
			want: `[{"time":1,"open":2},{"time":3,"open":4}]`,
		},
		{
			name: "objects separated by stray whitespace",
			body: "{\"time\":1,\"open\":2} ,\n {\"time\":3,\"open\":4}",
			want: `[{"time":1,"open":2},{"time":3,"open":4}]`,
		},
		{
			name: "trailing comma stripped",
			body: `{"time":1,"open":2},`,
			want: `[{"time":1,"open":2}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RepairArray([]byte(tt.body))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestRepairArrayRejectsGarbage(t *testing.T) {
	for _, body := range []string{
		`<html>502 Bad Gateway</html>`,
		`{"time":1,"open":`,
	} {
		_, err := RepairArray([]byte(body))
		assert.ErrorIs(t, err, domain.ErrUnparseable, "body %q", body)
	}

	// an empty body repairs to an empty array rather than failing
	got, err := RepairArray(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func seriesServer(t *testing.T, status int, body string) *Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/history", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("pair"))
		assert.Equal(t, "3600", r.URL.Query().Get("interval"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL, zap.NewNop())
}

func TestGetSeries(t *testing.T) {
	client := seriesServer(t, http.StatusOK,
		`{"time":100,"open":"42.5"}{"time":200,"open":43.1},`)

	points, err := client.GetSeries(context.Background(), 5, 3600)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(100), points[0].Time)
	assert.InDelta(t, 42.5, points[0].Value, 1e-9)
	assert.Equal(t, int64(200), points[1].Time)
	assert.InDelta(t, 43.1, points[1].Value, 1e-9)
}

func TestGetSeriesDropsUnusableRows(t *testing.T) {
	// rows with a zero time or a missing open never reach the caller
	client := seriesServer(t, http.StatusOK,
		`[{"time":0,"open":1},{"time":100},{"time":200,"open":7}]`)

	points, err := client.GetSeries(context.Background(), 5, 3600)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(200), points[0].Time)
}

func TestGetSeriesServerError(t *testing.T) {
	client := seriesServer(t, http.StatusBadGateway, `oops`)

	_, err := client.GetSeries(context.Background(), 5, 3600)
	assert.Error(t, err)
}

func TestGetSeriesUnparseableBody(t *testing.T) {
	client := seriesServer(t, http.StatusOK, `<html>not json</html>`)

	_, err := client.GetSeries(context.Background(), 5, 3600)
	assert.ErrorIs(t, err, domain.ErrUnparseable)
}
