package remote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/remote"
	"github.com/roach88/gridview/internal/testutil"
)

func newCoordinator(src remote.Source, rec *testutil.OutcomeRecorder, opts ...remote.Option) *remote.Coordinator {
	opts = append([]remote.Option{remote.WithTokenGenerator(remote.NewSequenceGenerator("req"))}, opts...)
	return remote.NewCoordinator("tasks", src, rec.Sink(), opts...)
}

func firstPage() query.ListParams {
	return query.ListParams{Page: 1, PageSize: 30}
}

func TestCoordinator_DeliversPrimaryResult(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Records(45)...)
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec)

	ticket := c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	c.Wait()

	out := rec.Outcomes()
	require.Len(t, out, 1)
	assert.Equal(t, remote.KindPrimary, out[0].Kind)
	assert.Equal(t, ticket.Generation, out[0].Generation)
	assert.Equal(t, "req-1", out[0].Token)
	assert.Nil(t, out[0].Err)
	assert.Equal(t, 45, out[0].Result.Count)
	assert.Len(t, out[0].Result.Results, 30)
	assert.True(t, c.IsLive(ticket.Generation))
}

func TestCoordinator_GenerationsIncrease(t *testing.T) {
	src := testutil.NewFakeSource()
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec)

	a := c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	b := c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	c.Wait()

	assert.Greater(t, b.Generation, a.Generation)
	assert.False(t, c.IsLive(a.Generation))
	assert.True(t, c.IsLive(b.Generation))
	assert.False(t, c.IsLive(0))
}

func TestCoordinator_StaleResultArrivingLateIsDropped(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Records(5)...)
	src.Gate(true)
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec)

	a := c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	<-src.Started
	b := c.Fetch(context.Background(), query.ListParams{Page: 1, PageSize: 50}, remote.FetchOptions{})
	<-src.Started

	src.Release(1)
	src.Release(0)
	c.Wait()

	out := rec.Outcomes()
	require.Len(t, out, 1, "only the newest generation is delivered")
	assert.Equal(t, b.Generation, out[0].Generation)
	assert.Equal(t, 50, out[0].Params.PageSize)
	assert.NotEqual(t, a.Generation, out[0].Generation)
}

func TestCoordinator_SupersedeCancelsPreviousFetch(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Records(5)...)
	src.Gate(false)
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec)

	c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	<-src.Started
	b := c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	<-src.Started
	src.Release(1)
	c.Wait()

	out := rec.Outcomes()
	require.Len(t, out, 1, "cancellation of the superseded fetch is not an error")
	assert.Equal(t, b.Generation, out[0].Generation)
	assert.Nil(t, out[0].Err)
}

func TestCoordinator_ErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want remote.FetchErrorCode
	}{
		{"plain error is transport", errors.New("connection refused"), remote.CodeTransport},
		{"server", remote.NewServerError(503, errors.New("unavailable")), remote.CodeServer},
		{"decode", remote.NewDecodeError(errors.New("bad json")), remote.CodeDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testutil.NewFakeSource()
			src.FailNext(tt.err)
			var rec testutil.OutcomeRecorder
			c := newCoordinator(src, &rec)

			ticket := c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
			c.Wait()

			out := rec.Outcomes()
			require.Len(t, out, 1)
			require.NotNil(t, out[0].Err)
			assert.Equal(t, tt.want, out[0].Err.Code)
			assert.Equal(t, ticket.Generation, out[0].Err.Generation)
			assert.Equal(t, tt.want, remote.CodeOf(out[0].Err))
		})
	}
}

func TestCoordinator_CacheAndForcedRefresh(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Records(3)...)
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec, remote.WithCacheBytes(remote.DefaultCacheBytes))
	ctx := context.Background()

	c.Fetch(ctx, firstPage(), remote.FetchOptions{})
	c.Wait()
	c.Fetch(ctx, firstPage(), remote.FetchOptions{})
	c.Wait()

	assert.Equal(t, 1, src.CallCount(), "second fetch served from cache")
	out := rec.Outcomes()
	require.Len(t, out, 2)
	assert.True(t, out[1].Cached)
	assert.Equal(t, out[0].Result.IDs(), out[1].Result.IDs())

	c.Fetch(ctx, firstPage(), remote.FetchOptions{Force: true})
	c.Wait()
	assert.Equal(t, 2, src.CallCount(), "forced refresh always hits the source")
	assert.False(t, rec.Outcomes()[2].Cached)

	c.Invalidate()
	c.Fetch(ctx, firstPage(), remote.FetchOptions{})
	c.Wait()
	assert.Equal(t, 3, src.CallCount())
}

func TestCoordinator_ForcedRefreshUpdatesCache(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Records(3)...)
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec, remote.WithCacheBytes(remote.DefaultCacheBytes))
	ctx := context.Background()

	c.Fetch(ctx, firstPage(), remote.FetchOptions{})
	c.Wait()
	src.Remove("2")
	c.Fetch(ctx, firstPage(), remote.FetchOptions{Force: true})
	c.Wait()
	c.Fetch(ctx, firstPage(), remote.FetchOptions{})
	c.Wait()

	out := rec.Outcomes()
	require.Len(t, out, 3)
	assert.True(t, out[2].Cached)
	assert.Equal(t, []string{"1", "3"}, out[2].Result.IDs())
}

func TestCoordinator_SupersededFetchDoesNotOverwriteCache(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Records(3)...)
	src.Gate(true)
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec, remote.WithCacheBytes(remote.DefaultCacheBytes))
	ctx := context.Background()

	c.Fetch(ctx, firstPage(), remote.FetchOptions{})
	<-src.Started
	src.Remove("2")
	fresh := c.Fetch(ctx, firstPage(), remote.FetchOptions{Force: true})
	<-src.Started

	// The forced refresh completes first and caches the current page.
	src.Release(1)
	require.Eventually(t, func() bool { return len(rec.Outcomes()) == 1 }, 5*time.Second, time.Millisecond)

	// The older fetch ignores its cancellation and answers later with the
	// page as it was when it started.
	src.SetRecords(testutil.Records(3)...)
	src.Release(0)
	c.Wait()
	src.Ungate()

	c.Fetch(ctx, firstPage(), remote.FetchOptions{})
	c.Wait()

	out := rec.Outcomes()
	require.Len(t, out, 2)
	assert.Equal(t, fresh.Generation, out[0].Generation)
	assert.True(t, out[1].Cached)
	assert.Equal(t, []string{"1", "3"}, out[1].Result.IDs())
	assert.Equal(t, 2, src.CallCount())
}

func TestCoordinator_NoCacheByDefault(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Records(3)...)
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec)

	c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	c.Wait()
	c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	c.Wait()

	assert.Equal(t, 2, src.CallCount())
}

func TestCoordinator_Hydrate(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Records(10)...)
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec)

	primary := c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	c.Wait()
	h := c.Hydrate(context.Background(), []string{"2", "7"}, []string{"n"})
	c.Wait()

	out := rec.Outcomes()
	require.Len(t, out, 2)
	hyd := out[1]
	assert.Equal(t, remote.KindHydrate, hyd.Kind)
	assert.Equal(t, h.Generation, hyd.Generation)
	assert.Equal(t, []string{"2", "7"}, hyd.Params.IDs)
	assert.Equal(t, []string{"2", "7"}, hyd.Result.IDs())
	assert.True(t, c.IsLive(primary.Generation), "hydration does not supersede the primary fetch")
}

func TestCoordinator_CloseCancelsInFlight(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Records(3)...)
	src.Gate(false)
	var rec testutil.OutcomeRecorder
	c := newCoordinator(src, &rec)

	c.Fetch(context.Background(), firstPage(), remote.FetchOptions{})
	<-src.Started
	c.Close()

	assert.Empty(t, rec.Outcomes())
}
