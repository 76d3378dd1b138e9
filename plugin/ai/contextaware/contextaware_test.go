package contextaware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixed(t *testing.T, value string) *Awareness {
	t.Helper()
	a := New("Asia/Shanghai")
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, a.location)
	require.NoError(t, err)
	a.now = func() time.Time { return ts }
	return a
}

func TestCurrentSolarHoliday(t *testing.T) {
	a := fixed(t, "2026-02-14 20:30")
	ctx := a.Current()
	require.Equal(t, "情人节", ctx.Holiday)
	require.Contains(t, ctx.ContextStr, "2026-02-14")
	require.Contains(t, ctx.ContextStr, "情人节")
}

func TestCurrentWeekend(t *testing.T) {
	a := fixed(t, "2026-08-29 10:00") // Saturday
	ctx := a.Current()
	require.Equal(t, "周末", ctx.Holiday)
	require.Contains(t, ctx.ContextStr, "周六")
}

func TestCurrentPlainWeekday(t *testing.T) {
	a := fixed(t, "2026-08-25 09:00") // Tuesday
	ctx := a.Current()
	require.Empty(t, ctx.Holiday)
	require.Contains(t, ctx.ContextStr, "周二")
}

func TestUnknownTimezoneFallsBack(t *testing.T) {
	a := New("No/Such_Zone")
	require.NotNil(t, a.location)
	require.NotNil(t, a.Current())
}
