// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/i18n"
	"github.com/AleutianAI/nova-discovery/services/llm"
	"github.com/AleutianAI/nova-discovery/services/mail"
)

// =============================================================================
// Test Helpers
// =============================================================================

type proposalClient struct {
	text    string
	err     error
	calls   atomic.Int32
	release chan struct{}
	lastReq llm.Request
	mu      sync.Mutex
}

func (p *proposalClient) Name() string { return "mock/proposal" }

func (p *proposalClient) Stream(ctx context.Context, req llm.Request, onDelta llm.StreamCallback) error {
	p.calls.Add(1)
	p.mu.Lock()
	p.lastReq = req
	p.mu.Unlock()
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.err != nil {
		return p.err
	}
	return onDelta(p.text)
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, client llm.Client, mailer mail.Mailer) (*Generator, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	gen, err := NewGenerator(Config{
		Client:    client,
		Mailer:    mailer,
		Recipient: "team@nova.example",
		Catalog:   i18n.MustLoad(),
		Meter:     provider.Meter("test"),
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return gen, reader
}

func sampleReport(sessionID string) Report {
	return Report{
		SessionID: sessionID,
		Locale:    "ro",
		Messages: []chat.Message{
			{ID: "assistant-1", Role: chat.RoleAssistant, Content: "Ce tip de produs?", CreatedAt: fixedNow.Add(-2 * time.Minute).UnixMilli()},
			{ID: "user-1", Role: chat.RoleUser, Content: "Web App", CreatedAt: fixedNow.Add(-time.Minute).UnixMilli()},
		},
		FinalAssistantMessage: "**📋 Rezumatul Proiectului**",
		UserEmail:             "visitor@example.com",
	}
}

func outcomeCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				counts[v.AsString()] += dp.Value
			}
		}
	}
	return counts
}

// =============================================================================
// Generator Tests
// =============================================================================

func TestDispatch_SendsOnceForTwoInvocations(t *testing.T) {
	mailer := mail.NewLogMailer(nil, nil)
	gen, reader := newTestGenerator(t, &proposalClient{text: "# NOVA Technical Proposal"}, mailer)

	first, err1 := gen.Dispatch(context.Background(), sampleReport("s-1"))
	second, err2 := gen.Dispatch(context.Background(), sampleReport("s-1"))

	require.NoError(t, err1)
	assert.True(t, first.Delivered)
	assert.True(t, first.ProposalGenerated)
	assert.ErrorIs(t, err2, ErrAlreadySent)
	assert.True(t, second.Duplicate)
	assert.Len(t, mailer.Sent(), 1)
	assert.Equal(t, map[string]int64{"sent": 1, "duplicate": 1}, outcomeCounts(t, reader))
}

func TestDispatch_ConcurrentDuplicatesCollapse(t *testing.T) {
	mailer := mail.NewLogMailer(nil, nil)
	client := &proposalClient{text: "proposal"}
	gen, _ := newTestGenerator(t, client, mailer)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = gen.Dispatch(context.Background(), sampleReport("s-concurrent"))
		}()
	}
	wg.Wait()

	assert.Len(t, mailer.Sent(), 1)
	assert.EqualValues(t, 1, client.calls.Load())
}

func TestDispatch_TranscriptKeyWithoutSessionID(t *testing.T) {
	mailer := mail.NewLogMailer(nil, nil)
	gen, _ := newTestGenerator(t, &proposalClient{text: "p"}, mailer)

	_, err1 := gen.Dispatch(context.Background(), sampleReport(""))
	_, err2 := gen.Dispatch(context.Background(), sampleReport(""))

	require.NoError(t, err1)
	assert.ErrorIs(t, err2, ErrAlreadySent)
	assert.Len(t, mailer.Sent(), 1)
}

func TestDispatch_ProposalFailureStillMailsTranscript(t *testing.T) {
	mailer := mail.NewLogMailer(nil, nil)
	gen, reader := newTestGenerator(t, &proposalClient{err: errors.New("overloaded")}, mailer)

	out, err := gen.Dispatch(context.Background(), sampleReport("s-2"))

	require.NoError(t, err)
	assert.False(t, out.ProposalGenerated)
	assert.True(t, out.Delivered)
	require.Len(t, mailer.Sent(), 1)
	body := mailer.Sent()[0].Text
	assert.Contains(t, body, ProposalFailedNote)
	assert.Contains(t, body, "USER: Web App")
	assert.NotContains(t, body, "overloaded")
	assert.Equal(t, int64(1), outcomeCounts(t, reader)["proposal_failed"])
}

func TestDispatch_NoClientSkipsProposal(t *testing.T) {
	mailer := mail.NewLogMailer(nil, nil)
	gen, _ := newTestGenerator(t, nil, mailer)

	out, err := gen.Dispatch(context.Background(), sampleReport("s-3"))

	require.NoError(t, err)
	assert.False(t, out.ProposalGenerated)
	assert.True(t, out.Delivered)
}

func TestDispatch_MailFailureIsNotReturned(t *testing.T) {
	mailer := mail.NewLogMailer(nil, errors.New("resend 500"))
	gen, reader := newTestGenerator(t, &proposalClient{text: "p"}, mailer)

	out, err := gen.Dispatch(context.Background(), sampleReport("s-4"))

	assert.NoError(t, err)
	assert.False(t, out.Delivered)
	assert.Equal(t, int64(1), outcomeCounts(t, reader)["mail_failed"])
}

func TestDispatch_NotConfigured(t *testing.T) {
	gen, _ := newTestGenerator(t, nil, mail.Disabled{})

	_, err := gen.Dispatch(context.Background(), sampleReport("s-5"))

	assert.ErrorIs(t, err, mail.ErrNotConfigured)
	assert.False(t, gen.Configured())
}

func TestDispatch_EmailShape(t *testing.T) {
	mailer := mail.NewLogMailer(nil, nil)
	client := &proposalClient{text: "# NOVA Technical Proposal\n\n**Prepared by:** NOVA AI DEVELOPMENT SRL"}
	gen, _ := newTestGenerator(t, client, mailer)

	_, err := gen.Dispatch(context.Background(), sampleReport("s-6"))
	require.NoError(t, err)

	msg := mailer.Sent()[0]
	assert.Equal(t, []string{"team@nova.example"}, msg.To)
	assert.Equal(t, "visitor@example.com", msg.ReplyTo)
	assert.Equal(t, "NOVA discovery report - 2026-03-14 [ro]", msg.Subject)

	body := msg.Text
	assert.Contains(t, body, "Locale: ro")
	assert.Contains(t, body, "Generated at: 2026-03-14T09:30:00Z")
	assert.Contains(t, body, "Visitor email: visitor@example.com")
	assert.Contains(t, body, "[2026-03-14T09:28:00Z] ASSISTANT: Ce tip de produs?")
	assert.Contains(t, body, "[2026-03-14T09:29:00Z] USER: Web App")
	sections := []string{"=== Final Assistant Summary ===", "=== Technical Proposal ===", "=== Full Transcript ==="}
	last := -1
	for _, s := range sections {
		i := strings.Index(body, s)
		require.Greater(t, i, last, s)
		last = i
	}

	assert.Contains(t, client.lastReq.System, "Prepared by:** NOVA AI DEVELOPMENT SRL")
	assert.Contains(t, client.lastReq.System, "Română")
	assert.Contains(t, client.lastReq.Messages[0].Content, "Rezumatul Proiectului")
}

// =============================================================================
// Ledger Tests
// =============================================================================

func TestLedger_MarkSentOnce(t *testing.T) {
	l := NewLedger(0)

	assert.True(t, l.MarkSent("a"))
	assert.False(t, l.MarkSent("a"))
	assert.True(t, l.Sent("a"))
	assert.False(t, l.Sent("b"))
}

func TestLedger_EvictsOldest(t *testing.T) {
	l := NewLedger(3)
	for i := 0; i < 5; i++ {
		l.MarkSent(fmt.Sprintf("k%d", i))
	}

	assert.Equal(t, 3, l.Len())
	assert.False(t, l.Sent("k0"))
	assert.False(t, l.Sent("k1"))
	assert.True(t, l.Sent("k4"))
}

func TestSessionKey(t *testing.T) {
	msgs := sampleReport("").Messages

	assert.Equal(t, "session:abc", SessionKey("abc", msgs))
	assert.Equal(t, SessionKey("", msgs), SessionKey("", msgs))
	assert.NotEqual(t, SessionKey("", msgs), SessionKey("", msgs[:1]))
	assert.True(t, strings.HasPrefix(SessionKey("", msgs), "transcript:"))
}

// =============================================================================
// Dispatcher Tests
// =============================================================================

func TestDispatcher_QueuesWhileWorkersBusy(t *testing.T) {
	// Arrange
	mailer := mail.NewLogMailer(nil, nil)
	client := &proposalClient{text: "p", release: make(chan struct{})}
	gen, _ := newTestGenerator(t, client, mailer)
	d := NewDispatcher(gen, DefaultWorkers, 0)
	defer d.Close()

	// Act
	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < DefaultWorkers+2; i++ {
		require.NoError(t, d.Enqueue(ctx, sampleReport(fmt.Sprintf("bg-%d", i))))
	}
	cancel()
	assert.Empty(t, mailer.Sent())
	close(client.release)

	// Assert
	require.True(t, d.Wait(5*time.Second))
	require.Len(t, mailer.Sent(), DefaultWorkers+2)
	assert.Contains(t, mailer.Sent()[0].Text, "=== Technical Proposal ===\n\np")
}

func TestDispatcher_RefusesOnlyWhenQueueFull(t *testing.T) {
	mailer := mail.NewLogMailer(nil, nil)
	client := &proposalClient{text: "p", release: make(chan struct{})}
	gen, _ := newTestGenerator(t, client, mailer)
	d := NewDispatcher(gen, 1, 1)
	defer d.Close()

	require.NoError(t, d.Enqueue(context.Background(), sampleReport("busy-1")))
	require.Eventually(t, func() bool { return client.calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, d.Enqueue(context.Background(), sampleReport("busy-2")))
	assert.ErrorIs(t, d.Enqueue(context.Background(), sampleReport("busy-3")), ErrBusy)

	close(client.release)
	require.True(t, d.Wait(5*time.Second))
	assert.Len(t, mailer.Sent(), 2)
}

func TestDispatcher_ClosedRefusesWork(t *testing.T) {
	gen, _ := newTestGenerator(t, &proposalClient{text: "p"}, mail.NewLogMailer(nil, nil))
	d := NewDispatcher(gen, 1, 1)

	d.Close()
	d.Close()

	assert.ErrorIs(t, d.Enqueue(context.Background(), sampleReport("late")), ErrClosed)
	assert.True(t, d.Wait(time.Second))
}
