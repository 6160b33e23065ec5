package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	commoncfg "wisefido-hydration/internal/common/config"
	commonredis "wisefido-hydration/internal/common/redis"
	"wisefido-hydration/internal/config"
	"wisefido-hydration/internal/evaluator"
	"wisefido-hydration/internal/models"
	"wisefido-hydration/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	recipient string
	text      string
}

type fakeMessenger struct {
	sent []sentMessage
	err  error
}

func (f *fakeMessenger) Send(_ context.Context, recipient, text string) error {
	f.sent = append(f.sent, sentMessage{recipient: recipient, text: text})
	return f.err
}

type fakeRephraser struct {
	text  string
	err   error
	calls int
}

func (f *fakeRephraser) RephraseText(context.Context, string, interface{}) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakePublisher struct {
	events []DecisionEvent
}

func (f *fakePublisher) PublishDecision(_ context.Context, event DecisionEvent) error {
	f.events = append(f.events, event)
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func at(h, m int) time.Time {
	return time.Date(2026, 10, 16, h, m, 0, 0, time.UTC)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Location = time.UTC
	cfg.Messaging.Token = "bot-token"
	cfg.Messaging.RecipientID = "chat-1"
	cfg.Profile = models.RawProfile{
		WeightKG:      floatPtr(70),
		ActivityLevel: "Light",
		WakeTime:      "07:00",
		SleepTime:     "23:00",
	}
	cfg.Decision.GoalMode = evaluator.GoalModeAuto
	cfg.Decision.PacingMode = evaluator.PacingModeActivity
	return cfg
}

type testHarness struct {
	svc       *HydrationService
	store     *store.MemoryStore
	messenger *fakeMessenger
	publisher *fakePublisher
	now       time.Time
}

func newHarness(cfg *config.Config, deps Dependencies) *testHarness {
	h := &testHarness{
		store:     store.NewMemoryStore(),
		messenger: &fakeMessenger{},
		publisher: &fakePublisher{},
		now:       at(15, 0),
	}
	if deps.Gate == nil {
		deps.Gate = evaluator.NewGate(evaluator.DefaultQuietStartHour, evaluator.DefaultQuietEndHour,
			evaluator.DefaultMinInterval, h.store, zap.NewNop())
	}
	if deps.Source == nil {
		deps.Source = evaluator.NewRuleSource()
	}
	if deps.Messenger == nil {
		deps.Messenger = h.messenger
	}
	if deps.Publisher == nil {
		deps.Publisher = h.publisher
	}
	deps.Clock = func() time.Time { return h.now }
	h.svc = NewHydrationService(cfg, deps, zap.NewNop())
	return h
}

func reading(ml, pct float64) *models.ReadingRequest {
	return &models.ReadingRequest{ML: floatPtr(ml), Pct: floatPtr(pct)}
}

func TestHandleReading_BehindSendsReminder(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})

	out, err := h.svc.HandleReading(context.Background(), reading(500, 80))
	require.NoError(t, err)

	assert.True(t, out.Notified)
	assert.Equal(t, models.SkipNone, out.Skipped)
	assert.NotEmpty(t, out.EventID)
	require.NotNil(t, out.Decision)
	assert.Equal(t, 2850, out.Decision.GoalML)
	assert.Equal(t, 1461, out.Decision.TargetMLNow)
	assert.Equal(t, 220, out.Decision.SipML)
	assert.Equal(t, evaluator.SourceRule, out.Decision.Source)

	require.Len(t, h.messenger.sent, 1)
	assert.Equal(t, "chat-1", h.messenger.sent[0].recipient)
	assert.Equal(t, "You're at 500 ml of your 2850 ml goal; the plan was about 1461 ml by now. Take a sip of ~220 ml 💧",
		h.messenger.sent[0].text)

	last, err := h.store.LastNotified(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.True(t, last.Equal(at(15, 0)))

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, out.EventID, h.publisher.events[0].EventID)
	assert.True(t, h.publisher.events[0].Notified)
}

func TestHandleReading_CooldownSkipsSecondReminder(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})
	ctx := context.Background()

	_, err := h.svc.HandleReading(ctx, reading(500, 80))
	require.NoError(t, err)

	h.now = at(15, 10)
	out, err := h.svc.HandleReading(ctx, reading(500, 80))
	require.NoError(t, err)
	assert.False(t, out.Notified)
	assert.Equal(t, models.SkipInterval, out.Skipped)
	assert.Nil(t, out.Decision)

	h.now = at(15, 30)
	out, err = h.svc.HandleReading(ctx, reading(500, 80))
	require.NoError(t, err)
	assert.True(t, out.Notified)
	assert.Len(t, h.messenger.sent, 2)
}

func TestHandleReading_QuietHours(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})
	h.now = at(23, 30)

	out, err := h.svc.HandleReading(context.Background(), reading(0, 5))
	require.NoError(t, err)
	assert.Equal(t, models.SkipQuietHours, out.Skipped)
	assert.Empty(t, h.messenger.sent)

	_, err = h.store.LastNotified(context.Background(), "chat-1")
	assert.ErrorIs(t, err, store.ErrMiss)
}

func TestHandleReading_OnTrack(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})

	out, err := h.svc.HandleReading(context.Background(), reading(2000, 80))
	require.NoError(t, err)
	assert.False(t, out.Notified)
	assert.Equal(t, models.SkipOnTrackOrDone, out.Skipped)
	require.NotNil(t, out.Decision)
	assert.False(t, out.Decision.Notify)
	assert.Empty(t, h.messenger.sent)

	// 未提醒不进入冷却
	_, err = h.store.LastNotified(context.Background(), "chat-1")
	assert.ErrorIs(t, err, store.ErrMiss)
	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, models.SkipOnTrackOrDone, h.publisher.events[0].Skipped)
}

func TestHandleReading_GoalReachedWithLowBottle(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})

	out, err := h.svc.HandleReading(context.Background(), reading(3000, 10))
	require.NoError(t, err)
	assert.Equal(t, models.SkipOnTrackOrDone, out.Skipped)
	assert.Empty(t, h.messenger.sent)
}

func TestHandleReading_InvalidReading(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})

	_, err := h.svc.HandleReading(context.Background(), &models.ReadingRequest{ML: floatPtr(100)})
	assert.ErrorIs(t, err, ErrInvalidReading)
	_, err = h.svc.HandleReading(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidReading)
	assert.Empty(t, h.messenger.sent)
	assert.Empty(t, h.publisher.events)
}

func TestHandleReading_MissingConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Messaging.Token = ""
	h := newHarness(cfg, Dependencies{})

	_, err := h.svc.HandleReading(context.Background(), reading(500, 80))
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
	assert.Empty(t, h.messenger.sent)
	assert.Empty(t, h.publisher.events)
}

func TestHandleReading_InvalidReadingBeforeMissingConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Messaging.RecipientID = ""
	h := newHarness(cfg, Dependencies{})

	_, err := h.svc.HandleReading(context.Background(), &models.ReadingRequest{Pct: floatPtr(50)})
	assert.ErrorIs(t, err, ErrInvalidReading)
}

func TestHandleReading_SendFailureStillStartsCooldown(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})
	h.messenger.err = errors.New("bad gateway")

	_, err := h.svc.HandleReading(context.Background(), reading(500, 80))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad gateway")

	last, err := h.store.LastNotified(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.True(t, last.Equal(at(15, 0)))
	assert.Empty(t, h.publisher.events)

	h.now = at(15, 5)
	out, err := h.svc.HandleReading(context.Background(), reading(500, 80))
	require.NoError(t, err)
	assert.Equal(t, models.SkipInterval, out.Skipped)
}

func TestHandleReading_TimestampOverride(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})

	req := reading(0, 5)
	req.TS = json.RawMessage(`"2026-10-16T23:30:00Z"`)
	out, err := h.svc.HandleReading(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.SkipQuietHours, out.Skipped)

	// 早于起床时间之后不久：目标接近 0，瓶内水量低仍然提醒
	req = reading(0, 30)
	req.TS = json.RawMessage(`1792134000`) // 2026-10-16 07:00 UTC
	out, err = h.svc.HandleReading(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.Notified)
	assert.Equal(t, 0, out.Decision.TargetMLNow)
	assert.False(t, out.Decision.Behind)
	assert.True(t, out.Decision.VeryLow)
}

func TestHandleReading_TimestampDoesNotMoveCooldown(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})
	ctx := context.Background()

	req := reading(500, 80)
	req.TS = json.RawMessage(`"2027-10-16T15:00:00Z"`)
	out, err := h.svc.HandleReading(ctx, req)
	require.NoError(t, err)
	require.True(t, out.Notified)

	// 冷却记录的是服务端时钟，而不是请求中的 ts
	last, err := h.store.LastNotified(ctx, "chat-1")
	require.NoError(t, err)
	assert.True(t, last.Equal(at(15, 0)))

	h.now = at(18, 0)
	out, err = h.svc.HandleReading(ctx, reading(500, 80))
	require.NoError(t, err)
	assert.True(t, out.Notified)
	assert.Equal(t, models.SkipNone, out.Skipped)

	// 过去或未来的 ts 都不能绕过冷却
	h.now = at(18, 5)
	req = reading(500, 80)
	req.TS = json.RawMessage(`"2026-10-16T20:00:00Z"`)
	out, err = h.svc.HandleReading(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.SkipInterval, out.Skipped)
	assert.Len(t, h.messenger.sent, 2)
}

func TestHandleReading_ProfileOverride(t *testing.T) {
	h := newHarness(testConfig(), Dependencies{})

	req := reading(500, 80)
	req.Profile = &models.RawProfile{Name: "ana", ClinicianLimitML: floatPtr(1500)}
	out, err := h.svc.HandleReading(context.Background(), req)
	require.NoError(t, err)
	require.True(t, out.Notified)
	assert.Equal(t, 1500, out.Decision.GoalML)
	assert.Contains(t, h.messenger.sent[0].text, "Ana, you're at 500 ml of your 1500 ml goal")
}

func TestHandleReading_UsesConfiguredLocation(t *testing.T) {
	cfg := testConfig()
	loc := time.FixedZone("UTC+9", 9*3600)
	cfg.Location = loc
	h := newHarness(cfg, Dependencies{})
	// 15:00 UTC = 次日 00:00 本地，处于静默时段
	out, err := h.svc.HandleReading(context.Background(), reading(0, 5))
	require.NoError(t, err)
	assert.Equal(t, models.SkipQuietHours, out.Skipped)
}

func TestHandleReading_Rephrase(t *testing.T) {
	rephraser := &fakeRephraser{text: "  \"Quick sip time: 220 ml!\"  "}
	h := newHarness(testConfig(), Dependencies{Rephraser: rephraser})

	out, err := h.svc.HandleReading(context.Background(), reading(500, 80))
	require.NoError(t, err)
	assert.Equal(t, 1, rephraser.calls)
	assert.Equal(t, "Quick sip time: 220 ml!", out.Message)
	assert.Equal(t, "Quick sip time: 220 ml!", h.messenger.sent[0].text)
}

func TestHandleReading_RephraseFallsBackToTemplate(t *testing.T) {
	for name, rephraser := range map[string]*fakeRephraser{
		"error": {err: errors.New("timeout")},
		"empty": {text: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(testConfig(), Dependencies{Rephraser: rephraser})

			out, err := h.svc.HandleReading(context.Background(), reading(500, 80))
			require.NoError(t, err)
			assert.True(t, out.Notified)
			assert.Contains(t, h.messenger.sent[0].text, "2850 ml goal")
		})
	}
}

func TestStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := commonredis.NewRedisClient(&commoncfg.RedisConfig{Addr: mr.Addr()})
	defer client.Close()

	h := newHarness(testConfig(), Dependencies{Publisher: NewStreamPublisher(client, "hydration:decisions")})
	out, err := h.svc.HandleReading(context.Background(), reading(500, 80))
	require.NoError(t, err)

	msgs, err := client.XRange(context.Background(), "hydration:decisions", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var event DecisionEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &event))
	assert.Equal(t, out.EventID, event.EventID)
	assert.Equal(t, "chat-1", event.Recipient)
	assert.True(t, event.Notified)
	require.NotNil(t, event.Decision)
	assert.Equal(t, 2850, event.Decision.GoalML)
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{`"2026-10-16T09:30:00Z"`, at(9, 30), true},
		{`"2026-10-16T11:30:00+02:00"`, at(9, 30), true},
		{`1792143000`, at(9, 30), true},
		{`1792143000000`, at(9, 30), true},
		{`"1792143000"`, at(9, 30), true},
		{``, time.Time{}, false},
		{`null`, time.Time{}, false},
		{`"yesterday"`, time.Time{}, false},
		{`-5`, time.Time{}, false},
	}
	for _, c := range cases {
		got, ok := ParseTimestamp(json.RawMessage(c.raw))
		assert.Equal(t, c.ok, ok, c.raw)
		if c.ok {
			assert.True(t, got.Equal(c.want), c.raw)
		}
	}
}
