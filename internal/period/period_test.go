package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Period
	}{
		{"1mo 2days", Period{Months: 1, Days: 2}},
		{"3y4w", Period{Years: 3, Months: 1}},
		{"4w", Period{Months: 1}},
		{"5w", Period{Months: 1, Weeks: 1}},
		{"1y", Period{Years: 1}},
		{"12mo", Period{Years: 1}},
		{"1YEAR2MONTHS", Period{Years: 1, Months: 2}},
		{"  2d  ", Period{Days: 2}},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"mo", "1", "1z", "", "2w3"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	cases := []Period{
		{Years: 3, Months: 1},
		{Months: 1, Days: 2},
		{},
		{Days: 1},
	}
	for _, p := range cases {
		s := Format(p)
		got, err := Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, Canonicalize(p), got, s)
	}
	assert.Equal(t, "0d", Format(Period{}))
}

func TestMonthEndClamp(t *testing.T) {
	leap := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	got := Subtract(leap, Period{Months: 1})
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), got)

	nonLeap := time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC)
	got = Subtract(nonLeap, Period{Months: 1})
	assert.Equal(t, time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC), got)
}

func TestSubtractMonotone(t *testing.T) {
	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	p1 := Period{Months: 1}
	p2 := Period{Months: 2}
	require.True(t, LessOrEqual(p1, p2))
	assert.True(t, !Subtract(now, p1).Before(Subtract(now, p2)))
}

func TestSubtractWeeksAndDays(t *testing.T) {
	now := time.Date(2026, time.July, 30, 0, 0, 0, 0, time.UTC)
	got := Subtract(now, Period{Weeks: 1, Days: 2})
	assert.Equal(t, now.AddDate(0, 0, -9), got)
}
