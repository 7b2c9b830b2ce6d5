package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/gulfcoast/internal/domain"
	"github.com/DukeRupert/gulfcoast/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func contactLead() domain.Lead {
	return domain.Lead{
		Key:    domain.NewLeadKey(),
		Source: domain.LeadSourceContact,
		Form: &domain.LeadFormData{
			Name:    "Ashley",
			Email:   "ashley@example.com",
			Message: "Looking in Fairhope",
		},
		ReceivedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

// countingSink counts deliveries and fails while err is set.
type countingSink struct {
	name  string
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSink) Name() string { return s.name }

func (s *countingSink) Deliver(_ context.Context, _ domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// =============================================================================
// Log sink
// =============================================================================

func TestLogSink_WritesLead(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	l := contactLead()
	require.NoError(t, NewLogSink(logger).Deliver(context.Background(), l))

	out := buf.String()
	for _, want := range []string{"lead received", l.Key, "source=contact", "ashley@example.com", "form.name=Ashley"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

// =============================================================================
// Multi
// =============================================================================

func TestMulti_DeliversToAll(t *testing.T) {
	a := &countingSink{name: "a"}
	b := &countingSink{name: "b"}

	require.NoError(t, NewMulti(testLogger(), a, b).Deliver(context.Background(), contactLead()))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestMulti_FailsWhenAnyFails(t *testing.T) {
	a := &countingSink{name: "a"}
	b := &countingSink{name: "b", err: errors.New("down")}

	err := NewMulti(testLogger(), a, b).Deliver(context.Background(), contactLead())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, 1, a.count(), "healthy sinks still receive the lead")
}

// =============================================================================
// Instrument
// =============================================================================

func TestInstrument_RecordsMetricsAndWrapsError(t *testing.T) {
	failing := &countingSink{name: "instrument-test", err: errors.New("boom")}
	s := Instrument(failing, time.Second)

	before := testutil.ToFloat64(metrics.SinkDeliveries.WithLabelValues("instrument-test", "error"))
	err := s.Deliver(context.Background(), contactLead())
	after := testutil.ToFloat64(metrics.SinkDeliveries.WithLabelValues("instrument-test", "error"))

	require.Error(t, err)
	assert.Equal(t, "instrument-test sink: boom", err.Error())
	assert.Equal(t, float64(1), after-before)
	assert.Equal(t, "instrument-test", NameOf(s))
}

func TestInstrument_AppliesTimeout(t *testing.T) {
	slow := SinkFunc(func(ctx context.Context, _ domain.Lead) error {
		<-ctx.Done()
		return ctx.Err()
	})
	err := Instrument(slow, 10*time.Millisecond).Deliver(context.Background(), contactLead())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// =============================================================================
// Email sink
// =============================================================================

type fakeEmailService struct {
	to   string
	lead domain.Lead
	err  error
}

func (f *fakeEmailService) SendLeadNotification(_ context.Context, to string, l domain.Lead) error {
	f.to = to
	f.lead = l
	return f.err
}

func TestEmailSink_SendsToAgent(t *testing.T) {
	svc := &fakeEmailService{}
	l := contactLead()

	require.NoError(t, NewEmailSink(svc, "agent@example.com").Deliver(context.Background(), l))
	assert.Equal(t, "agent@example.com", svc.to)
	assert.Equal(t, l.Key, svc.lead.Key)
}

// =============================================================================
// Webhook
// =============================================================================

func TestWebhookSink_PostsSignedJSON(t *testing.T) {
	secret := "s3cret"
	var gotBody []byte
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSink(WebhookConfig{URL: srv.URL, Secret: secret}, testLogger())
	l := contactLead()
	require.NoError(t, s.Deliver(context.Background(), l))

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, l.Key, gotHeaders.Get(HeaderIdempotencyKey))
	assert.True(t, VerifySignature([]byte(secret), gotBody, gotHeaders.Get(HeaderSignature)))
	assert.True(t, strings.HasPrefix(gotHeaders.Get(HeaderSignature), "sha256="))

	var decoded domain.Lead
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, l.Key, decoded.Key)
	assert.Equal(t, domain.LeadSourceContact, decoded.Source)
	assert.Equal(t, "Ashley", decoded.Form.Name)
}

func TestWebhookSink_NoSignatureWithoutSecret(t *testing.T) {
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(HeaderSignature)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookSink(WebhookConfig{URL: srv.URL}, testLogger()).Deliver(context.Background(), contactLead()))
	assert.Empty(t, sig)
}

func TestWebhookSink_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSink(WebhookConfig{URL: srv.URL, MaxFailures: 2, OpenTimeout: time.Minute}, testLogger())

	for i := 0; i < 2; i++ {
		err := s.Deliver(context.Background(), contactLead())
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	err := s.Deliver(context.Background(), contactLead())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
}

func TestWebhookSink_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewWebhookSink(WebhookConfig{URL: srv.URL, MaxFailures: 1}, testLogger())
	for i := 0; i < 3; i++ {
		var se *StatusError
		require.ErrorAs(t, s.Deliver(context.Background(), contactLead()), &se)
	}
	assert.Equal(t, gobreaker.StateClosed, s.State())
}

func TestSign_KnownVector(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	got := Sign([]byte("key"), []byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)
	assert.False(t, VerifySignature([]byte("other"), []byte("x"), got))
}

// =============================================================================
// Idempotent + MemoryStore
// =============================================================================

func TestIdempotent_DuplicateDoesNotRedeliver(t *testing.T) {
	next := &countingSink{name: "next"}
	s := NewIdempotent(next, NewMemoryStore(time.Hour), testLogger())
	l := contactLead()

	require.NoError(t, s.Deliver(context.Background(), l))
	require.NoError(t, s.Deliver(context.Background(), l))
	assert.Equal(t, 1, next.count())
}

func TestIdempotent_EditedResubmissionIsDelivered(t *testing.T) {
	var got []domain.Lead
	next := SinkFunc(func(_ context.Context, l domain.Lead) error {
		got = append(got, l)
		return nil
	})
	s := NewIdempotent(next, NewMemoryStore(time.Hour), testLogger())
	ctx := context.Background()

	first := contactLead()
	require.NoError(t, s.Deliver(ctx, first))

	edited := first
	form := *first.Form
	form.Message = "Actually, Daphne instead"
	edited.Form = &form
	require.NoError(t, s.Deliver(ctx, edited))
	require.NoError(t, s.Deliver(ctx, edited))

	require.Len(t, got, 2)
	assert.Equal(t, first.Key, got[1].Key)
	assert.Equal(t, "Actually, Daphne instead", got[1].Form.Message)
}

func TestIdempotent_FailureReleasesKey(t *testing.T) {
	next := &countingSink{name: "next", err: errors.New("down")}
	store := NewMemoryStore(time.Hour)
	s := NewIdempotent(next, store, testLogger())
	l := contactLead()

	require.Error(t, s.Deliver(context.Background(), l))
	assert.Equal(t, 0, store.Len())

	next.err = nil
	require.NoError(t, s.Deliver(context.Background(), l))
	assert.Equal(t, 2, next.count())
}

func TestIdempotent_InFlightDuplicateConflicts(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	slow := SinkFunc(func(ctx context.Context, _ domain.Lead) error {
		calls.Add(1)
		close(started)
		<-release
		return nil
	})

	s := NewIdempotent(slow, NewMemoryStore(time.Hour), testLogger())
	l := contactLead()

	done := make(chan error, 1)
	go func() { done <- s.Deliver(context.Background(), l) }()
	<-started

	err := s.Deliver(context.Background(), l)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
}

type brokenStore struct{}

func (brokenStore) Reserve(context.Context, string) (Status, error) {
	return 0, errors.New("connection refused")
}
func (brokenStore) MarkDelivered(context.Context, string) error { return nil }
func (brokenStore) Release(context.Context, string) error       { return nil }

func TestIdempotent_StoreDownStillDelivers(t *testing.T) {
	next := &countingSink{name: "next"}
	s := NewIdempotent(next, brokenStore{}, testLogger())

	require.NoError(t, s.Deliver(context.Background(), contactLead()))
	assert.Equal(t, 1, next.count())
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	status, err := store.Reserve(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, StatusNew, status)

	status, _ = store.Reserve(ctx, "k")
	assert.Equal(t, StatusPending, status)

	require.NoError(t, store.MarkDelivered(ctx, "k"))
	status, _ = store.Reserve(ctx, "k")
	assert.Equal(t, StatusDelivered, status)

	now = now.Add(2 * time.Minute)
	status, _ = store.Reserve(ctx, "k")
	assert.Equal(t, StatusNew, status)
}

// =============================================================================
// RedisStore
// =============================================================================

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	ttl := 24 * time.Hour
	key := "gulfcoast:lead:abc"

	t.Run("new key is reserved", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisStore(db, ttl)

		mock.ExpectSetNX(key, "pending", ttl).SetVal(true)

		status, err := store.Reserve(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, StatusNew, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delivered key is reported", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisStore(db, ttl)

		mock.ExpectSetNX(key, "pending", ttl).SetVal(false)
		mock.ExpectGet(key).SetVal("delivered")

		status, err := store.Reserve(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, StatusDelivered, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pending key is reported", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisStore(db, ttl)

		mock.ExpectSetNX(key, "pending", ttl).SetVal(false)
		mock.ExpectGet(key).SetVal("pending")

		status, err := store.Reserve(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("key expired between calls", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisStore(db, ttl)

		mock.ExpectSetNX(key, "pending", ttl).SetVal(false)
		mock.ExpectGet(key).RedisNil()

		status, err := store.Reserve(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, status)
	})

	t.Run("redis error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisStore(db, ttl)

		mock.ExpectSetNX(key, "pending", ttl).SetErr(errors.New("connection refused"))

		_, err := store.Reserve(ctx, "abc")
		assert.Error(t, err)
	})

	t.Run("mark delivered and release", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisStore(db, ttl)

		mock.ExpectSet(key, "delivered", ttl).SetVal("OK")
		mock.ExpectDel(key).SetVal(1)

		require.NoError(t, store.MarkDelivered(ctx, "abc"))
		require.NoError(t, store.Release(ctx, "abc"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
