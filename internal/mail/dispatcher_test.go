package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/msomdec/contacts-api/internal/metrics"
)

type sent struct {
	kind, to, username, token string
}

type recordingMailer struct {
	mu      sync.Mutex
	sent    []sent
	err     error
	started chan struct{}
	release chan struct{}
}

func (m *recordingMailer) record(kind, to, username, token string) error {
	if m.started != nil {
		m.started <- struct{}{}
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sent{kind, to, username, token})
	return m.err
}

func (m *recordingMailer) SendConfirmation(_ context.Context, to, username, token string) error {
	return m.record(kindConfirmation, to, username, token)
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, username, token string) error {
	return m.record(kindPasswordReset, to, username, token)
}

func (m *recordingMailer) all() []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sent(nil), m.sent...)
}

func TestDispatcher_DeliversQueuedOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)
	before := testutil.ToFloat64(metrics.MailDeliveries.WithLabelValues(kindConfirmation, metrics.DeliverySent))

	m := &recordingMailer{}
	d := NewDispatcher(m, 2, 10, slog.New(slog.DiscardHandler))
	ctx := context.Background()
	require.NoError(t, d.SendConfirmation(ctx, "ann@example.com", "ann", "t1"))
	require.NoError(t, d.SendPasswordReset(ctx, "bob@example.com", "bob", "t2"))
	require.NoError(t, d.SendConfirmation(ctx, "cat@example.com", "cat", "t3"))
	require.NoError(t, d.Close())

	assert.ElementsMatch(t, []sent{
		{kindConfirmation, "ann@example.com", "ann", "t1"},
		{kindPasswordReset, "bob@example.com", "bob", "t2"},
		{kindConfirmation, "cat@example.com", "cat", "t3"},
	}, m.all())
	after := testutil.ToFloat64(metrics.MailDeliveries.WithLabelValues(kindConfirmation, metrics.DeliverySent))
	assert.Equal(t, 2.0, after-before)
}

func TestDispatcher_SendAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)
	d := NewDispatcher(&recordingMailer{}, 1, 1, nil)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	err := d.SendConfirmation(context.Background(), "ann@example.com", "ann", "t")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDispatcher_QueueFull(t *testing.T) {
	defer goleak.VerifyNone(t)
	before := testutil.ToFloat64(metrics.MailDeliveries.WithLabelValues(kindPasswordReset, metrics.DeliveryDropped))

	m := &recordingMailer{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(m, 1, 1, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	// The single worker holds the first message until released.
	require.NoError(t, d.SendPasswordReset(ctx, "a@example.com", "a", "1"))
	<-m.started
	require.NoError(t, d.SendPasswordReset(ctx, "b@example.com", "b", "2"))
	err := d.SendPasswordReset(ctx, "c@example.com", "c", "3")
	assert.ErrorIs(t, err, ErrQueueFull)

	close(m.release)
	go func() {
		for range m.started {
		}
	}()
	require.NoError(t, d.Close())
	close(m.started)

	assert.Len(t, m.all(), 2)
	after := testutil.ToFloat64(metrics.MailDeliveries.WithLabelValues(kindPasswordReset, metrics.DeliveryDropped))
	assert.Equal(t, 1.0, after-before)
}

func TestDispatcher_FailuresAreLogged(t *testing.T) {
	defer goleak.VerifyNone(t)
	before := testutil.ToFloat64(metrics.MailDeliveries.WithLabelValues(kindConfirmation, metrics.DeliveryFailed))

	var buf bytes.Buffer
	m := &recordingMailer{err: errors.New("relay refused")}
	d := NewDispatcher(m, 1, 4, slog.New(slog.NewTextHandler(&buf, nil)))
	err := d.SendConfirmation(context.Background(), "ann@example.com", "ann", "t")
	require.NoError(t, err, "delivery errors never reach the sender")
	require.NoError(t, d.Close())

	assert.Contains(t, buf.String(), "relay refused")
	assert.Contains(t, buf.String(), "ann@example.com")
	after := testutil.ToFloat64(metrics.MailDeliveries.WithLabelValues(kindConfirmation, metrics.DeliveryFailed))
	assert.Equal(t, 1.0, after-before)
}
