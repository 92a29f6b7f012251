package visit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autovisor/visitmon/internal/errors"
	"github.com/autovisor/visitmon/internal/sheets"
)

// fakeSource counts fetches and can be switched to fail.
type fakeSource struct {
	rows    []sheets.Row
	err     error
	fetches int
}

func (f *fakeSource) FetchRows(ctx context.Context) ([]sheets.Row, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

// fakeClock is an adjustable wall clock for expiry tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func testRows() []sheets.Row {
	return []sheets.Row{
		{"submitted_datetime": "2024-01-01 10:00:00", "dealer": "Dealer A", "dealer code": "A1"},
		{"submitted_datetime": "2024-01-02 11:00:00", "dealer": "Dealer B", "dealer code": "B1"},
	}
}

func TestServiceLoadMemoizesWithinTTL(t *testing.T) {
	source := &fakeSource{rows: testRows()}
	clock := &fakeClock{now: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(source, WithClock(clock.Now))

	first, err := svc.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, source.fetches)

	clock.Advance(9 * time.Minute)
	second, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.fetches, "load inside the TTL window must not refetch")
}

func TestServiceLoadRefetchesAfterTTL(t *testing.T) {
	source := &fakeSource{rows: testRows()}
	clock := &fakeClock{now: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(source, WithClock(clock.Now))

	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, source.fetches, "expired cache must refetch")
}

func TestServiceLoadCustomTTL(t *testing.T) {
	source := &fakeSource{rows: testRows()}
	clock := &fakeClock{now: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(source, WithClock(clock.Now), WithTTL(time.Minute))

	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, source.fetches)

	clock.Advance(2 * time.Second)
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, source.fetches)
}

func TestServiceLoadErrorReturnsNoPartialState(t *testing.T) {
	fetchErr := errors.Newf("backend unreachable").
		Category(errors.CategorySheetsFetch).
		Component("sheets").
		Build()
	source := &fakeSource{err: fetchErr}
	svc := NewService(source)

	records, err := svc.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, errors.HasCategory(err, errors.CategorySheetsFetch))
}

func TestServiceLoadErrorDoesNotPoisonCache(t *testing.T) {
	source := &fakeSource{err: errors.Newf("boom").Build()}
	clock := &fakeClock{now: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(source, WithClock(clock.Now))

	_, err := svc.Load(context.Background())
	require.Error(t, err)

	// Source recovers; the failed load must not have started a TTL window
	source.err = nil
	source.rows = testRows()
	records, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, source.fetches)
}

func TestServiceLoadStrictModeFailsOnBadRow(t *testing.T) {
	rows := testRows()
	rows = append(rows, sheets.Row{"submitted_datetime": "garbage", "dealer": "Dealer C"})
	source := &fakeSource{rows: rows}
	svc := NewService(source)

	records, err := svc.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, errors.HasCategory(err, errors.CategorySchema))
}

func TestServiceLoadAllowPartialSkipsBadRow(t *testing.T) {
	rows := testRows()
	rows = append(rows, sheets.Row{"submitted_datetime": "garbage", "dealer": "Dealer C"})
	source := &fakeSource{rows: rows}
	svc := NewService(source, WithAllowPartial(true))

	records, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestServiceInvalidate(t *testing.T) {
	source := &fakeSource{rows: testRows()}
	svc := NewService(source)

	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	svc.Invalidate()
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, source.fetches)
}
