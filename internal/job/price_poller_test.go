package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"trendbot/internal/domain"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type stubAssets struct {
	tokens []*domain.Token
	err    error
}

func (s stubAssets) ListTokens(ctx context.Context) ([]*domain.Token, error) {
	return s.tokens, s.err
}

type stubPriceSource struct {
	calls atomic.Int32
	mints []string
	err   error
}

func (s *stubPriceSource) Prices(ctx context.Context, mints []string) ([]*domain.PriceSample, error) {
	s.calls.Add(1)
	s.mints = mints
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*domain.PriceSample, 0, len(mints))
	for _, m := range mints {
		out = append(out, &domain.PriceSample{Asset: m, PriceUSD: 1, Timestamp: time.Now()})
	}
	return out, nil
}

type stubSampleWriter struct {
	written []*domain.PriceSample
}

func (s *stubSampleWriter) InsertSamples(ctx context.Context, samples []*domain.PriceSample) error {
	s.written = append(s.written, samples...)
	return nil
}

func newTestPricePoller(source PriceSource, writer SampleWriter, assets AssetLister) *PricePoller {
	return NewPricePoller(trace.NewNoopTracerProvider().Tracer("test"), zap.NewNop(), source, writer, assets, time.Hour)
}

func TestPricePollerWritesSamplesForTrackedAssets(t *testing.T) {
	source := &stubPriceSource{}
	writer := &stubSampleWriter{}
	assets := stubAssets{tokens: []*domain.Token{{Mint: "A"}, nil, {Mint: ""}, {Mint: "B"}}}
	poller := newTestPricePoller(source, writer, assets)

	if n := poller.poll(context.Background()); n != 2 {
		t.Fatalf("expected 2 samples, got %d", n)
	}
	if len(source.mints) != 2 || source.mints[0] != "A" || source.mints[1] != "B" {
		t.Fatalf("unexpected mints requested: %v", source.mints)
	}
	if len(writer.written) != 2 {
		t.Fatalf("expected 2 stored samples, got %d", len(writer.written))
	}
}

func TestPricePollerSkipsWhenNothingTracked(t *testing.T) {
	source := &stubPriceSource{}
	poller := newTestPricePoller(source, &stubSampleWriter{}, stubAssets{})

	poller.poll(context.Background())
	if source.calls.Load() != 0 {
		t.Fatal("expected no price request without tracked assets")
	}
}

func TestPricePollerSourceErrorWritesNothing(t *testing.T) {
	writer := &stubSampleWriter{}
	poller := newTestPricePoller(&stubPriceSource{err: errors.New("down")}, writer, stubAssets{tokens: []*domain.Token{{Mint: "A"}}})

	if n := poller.poll(context.Background()); n != 0 || len(writer.written) != 0 {
		t.Fatalf("expected nothing written, got %d", len(writer.written))
	}
}

func TestPricePollerStartPollsImmediately(t *testing.T) {
	source := &stubPriceSource{}
	poller := newTestPricePoller(source, &stubSampleWriter{}, stubAssets{tokens: []*domain.Token{{Mint: "A"}}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	eventually(t, func() bool { return source.calls.Load() > 0 })
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
