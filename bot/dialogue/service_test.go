package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	contractx "github.com/inmobot/inmobot/bot/contract"
	leadx "github.com/inmobot/inmobot/bot/lead"
	nodex "github.com/inmobot/inmobot/bot/nodes/dialogue"
	promptx "github.com/inmobot/inmobot/bot/prompt"
	statex "github.com/inmobot/inmobot/bot/state"
	"github.com/inmobot/inmobot/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

const (
	chatID = int64(5001)
	userID = int64(42)
)

type leadCall struct {
	op    string
	patch leadx.Patch
	lead  leadx.Lead
}

type fakeLeads struct {
	rows      map[int64]leadx.Lead
	calls     []leadCall
	updateErr error
	upsertErr error
	readErr   error
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{rows: map[int64]leadx.Lead{}}
}

func (f *fakeLeads) Create(ctx context.Context, l leadx.Lead) (*leadx.Lead, error) {
	f.calls = append(f.calls, leadCall{op: "create", lead: l})
	f.rows[l.TelegramID] = l
	return &l, nil
}

func (f *fakeLeads) Read(ctx context.Context, id int64) (*leadx.Lead, error) {
	f.calls = append(f.calls, leadCall{op: "read"})
	if f.readErr != nil {
		return nil, f.readErr
	}
	l, ok := f.rows[id]
	if !ok {
		return nil, leadx.ErrLeadNotFound
	}
	return &l, nil
}

func (f *fakeLeads) Update(ctx context.Context, id int64, p leadx.Patch) (*leadx.Lead, error) {
	f.calls = append(f.calls, leadCall{op: "update", patch: p})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	l, ok := f.rows[id]
	if !ok {
		return nil, leadx.ErrLeadNotFound
	}
	p.Apply(&l)
	f.rows[id] = l
	return &l, nil
}

func (f *fakeLeads) Delete(ctx context.Context, id int64) error {
	f.calls = append(f.calls, leadCall{op: "delete"})
	delete(f.rows, id)
	return nil
}

func (f *fakeLeads) Upsert(ctx context.Context, l leadx.Lead) (*leadx.Lead, error) {
	f.calls = append(f.calls, leadCall{op: "upsert", lead: l})
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	cur, ok := f.rows[l.TelegramID]
	if !ok {
		f.rows[l.TelegramID] = l
		return &l, nil
	}
	if l.ClientType != "" {
		cur.ClientType = l.ClientType
	}
	if l.Location != "" {
		cur.Location = l.Location
	}
	if l.FullName != "" {
		cur.FullName, cur.Phone, cur.Email = l.FullName, l.Phone, l.Email
	}
	f.rows[l.TelegramID] = cur
	return &cur, nil
}

func (f *fakeLeads) ops(op string) []leadCall {
	var out []leadCall
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

type fakeCompleter struct {
	reply string
	err   error
	got   []string
}

func (f *fakeCompleter) Reply(ctx context.Context, text string, uid int64) (string, error) {
	f.got = append(f.got, text)
	return f.reply, f.err
}

type fakeNotifier struct {
	payloads []any
}

func (f *fakeNotifier) Publish(ctx context.Context, payload any) (string, error) {
	f.payloads = append(f.payloads, payload)
	return fmt.Sprintf("msg-%d", len(f.payloads)), nil
}

type failingSessions struct {
	statex.Store
	loadErr error
	saveErr error
}

func (f failingSessions) Load(ctx context.Context, id int64) (*statex.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.Store.Load(ctx, id)
}

func (f failingSessions) Save(ctx context.Context, s *statex.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, s)
}

type harness struct {
	orch      *Orchestrator
	leads     *fakeLeads
	sessions  *statex.MemoryStore
	completer *fakeCompleter
	notifier  *fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		leads:     newFakeLeads(),
		sessions:  statex.NewMemoryStore(),
		completer: &fakeCompleter{reply: "Respuesta del asistente"},
		notifier:  &fakeNotifier{},
	}
	h.orch = h.build(t, h.sessions)
	return h
}

func (h *harness) build(t *testing.T, sessions statex.Store) *Orchestrator {
	t.Helper()

	orch, err := New(Deps{
		Leads:     h.leads,
		Sessions:  sessions,
		Completer: h.completer,
		Notifier:  h.notifier,
		Metrics:   metrics.NewDialogueMetrics(prometheus.NewRegistry()),
	}, Config{Zones: nodex.DefaultZones}, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return orch
}

func (h *harness) step(t *testing.T) statex.Step {
	t.Helper()

	s, err := h.sessions.Load(context.Background(), chatID)
	if errors.Is(err, statex.ErrStateNotFound) {
		return statex.Idle{}
	}
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s.Step
}

func user() contractx.User {
	return contractx.User{ID: userID, Username: "janedoe", FirstName: "Jane", LastName: "Doe"}
}

func command(name string) contractx.Event {
	return contractx.Event{Kind: contractx.EventCommand, ChatID: chatID, User: user(), Command: name}
}

func text(s string) contractx.Event {
	return contractx.Event{Kind: contractx.EventText, ChatID: chatID, User: user(), Text: s}
}

func press(data string) contractx.Event {
	return contractx.Event{Kind: contractx.EventCallback, ChatID: chatID, User: user(), Data: data, MessageID: 77, CallbackID: "cb"}
}

func mustHandle(t *testing.T, o *Orchestrator, ev contractx.Event) contractx.Reply {
	t.Helper()

	reply, err := o.HandleEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("HandleEvent(%+v) error = %v", ev, err)
	}
	return reply
}

func TestFullIntakeScript(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	reply := mustHandle(t, h.orch, command("start"))
	if !strings.Contains(reply.Text, "¡Hola Jane!") {
		t.Fatalf("welcome = %q", reply.Text)
	}
	if len(reply.Buttons) != 3 || reply.Buttons[0][0].Data != "comprador" || reply.Buttons[2][0].Data != "asesoria" {
		t.Fatalf("start buttons = %+v", reply.Buttons)
	}
	if created := h.leads.ops("create"); len(created) != 1 || !created[0].lead.CreatedAt.Equal(fixedNow) {
		t.Fatalf("register calls = %+v", created)
	}

	reply = mustHandle(t, h.orch, press("inversor"))
	if reply.EditMessageID != 77 || !strings.Contains(reply.Text, promptx.AskFullName) {
		t.Fatalf("client type reply = %+v", reply)
	}
	if step, ok := h.step(t).(statex.AwaitingName); !ok || step.ClientType != leadx.ClientInvestor {
		t.Fatalf("step = %#v", h.step(t))
	}
	if h.leads.rows[userID].ClientType != leadx.ClientInvestor {
		t.Fatalf("provisional row = %+v", h.leads.rows[userID])
	}

	if reply = mustHandle(t, h.orch, text("Jane Doe")); reply.Text != promptx.AskPhone {
		t.Fatalf("after name reply = %q", reply.Text)
	}
	if reply = mustHandle(t, h.orch, text("+1 305 555 0100")); reply.Text != promptx.AskEmail {
		t.Fatalf("after phone reply = %q", reply.Text)
	}

	before := len(h.leads.ops("update"))
	reply = mustHandle(t, h.orch, text("jane@example.com"))
	updates := h.leads.ops("update")[before:]
	if len(updates) != 1 {
		t.Fatalf("email step issued %d updates, want 1", len(updates))
	}
	cols := updates[0].patch.Columns()
	if cols["full_name"] != "Jane Doe" || cols["phone"] != "+1 305 555 0100" || cols["email"] != "jane@example.com" || len(cols) != 3 {
		t.Fatalf("email step patch = %#v", cols)
	}
	if reply.Text != promptx.AskZone {
		t.Fatalf("zone prompt = %q", reply.Text)
	}
	var labels []string
	for _, row := range reply.Buttons {
		for _, b := range row {
			labels = append(labels, b.Label)
		}
	}
	if strings.Join(labels, "|") != strings.Join(nodex.DefaultZones, "|") {
		t.Fatalf("zone buttons = %v", labels)
	}
	if _, ok := h.step(t).(statex.Idle); !ok {
		t.Fatalf("session after email = %#v, want Idle", h.step(t))
	}
	if len(h.notifier.payloads) != 1 {
		t.Fatalf("notifier publishes = %d, want 1", len(h.notifier.payloads))
	}
	completed, ok := h.notifier.payloads[0].(nodex.LeadCompleted)
	if !ok || completed.Lead.Email != "jane@example.com" {
		t.Fatalf("notifier payload = %#v", h.notifier.payloads[0])
	}

	reply = mustHandle(t, h.orch, press(nodex.ZoneData(6)))
	if loc := h.leads.rows[userID].Location; loc != "Naples" {
		t.Fatalf("location = %q, want Naples", loc)
	}
	if want := nodex.ZoneSavedReply("Naples", 77); reply.Text != want.Text || reply.EditMessageID != 77 ||
		reply.ParseMode != contractx.ParseMarkdown {
		t.Fatalf("zone reply = %+v", reply)
	}
}

func TestStartResetsInProgressScript(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	mustHandle(t, h.orch, press("comprador"))
	mustHandle(t, h.orch, text("Jane Doe"))

	reply := mustHandle(t, h.orch, command("start"))
	if len(reply.Buttons) != 3 {
		t.Fatalf("start buttons = %+v", reply.Buttons)
	}
	if _, ok := h.step(t).(statex.Idle); !ok {
		t.Fatalf("step = %#v, want Idle", h.step(t))
	}

	// Text after the reset goes to the completer.
	mustHandle(t, h.orch, text("hola"))
	if len(h.completer.got) != 1 || h.completer.got[0] != "hola" {
		t.Fatalf("completer got %v", h.completer.got)
	}
}

func TestStartDoesNotRegisterKnownUser(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.leads.rows[userID] = leadx.Lead{TelegramID: userID}

	mustHandle(t, h.orch, command("start"))
	if n := len(h.leads.ops("create")); n != 0 {
		t.Fatalf("create calls = %d, want 0", n)
	}
}

func TestIdleTextIsRelayedVerbatim(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	reply := mustHandle(t, h.orch, text("  ¿Cuánto cuesta un condo en Miami?  "))

	if reply.Text != "Respuesta del asistente" {
		t.Fatalf("reply = %q", reply.Text)
	}
	if h.completer.got[0] != "  ¿Cuánto cuesta un condo en Miami?  " {
		t.Fatalf("completer got %q", h.completer.got[0])
	}
	if len(h.leads.calls) != 0 {
		t.Fatalf("idle text touched the lead store: %+v", h.leads.calls)
	}
}

func TestCompletionFallbackIsRelayed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.completer.reply = promptx.CompletionRateLimit
	h.completer.err = contractx.NewKindError(contractx.FailureRateLimit, "completion", errors.New("429"))

	reply, err := h.orch.HandleEvent(context.Background(), text("hola"))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if reply.Text != promptx.CompletionRateLimit {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestUnknownCommandIsTreatedAsText(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ev := command("precios")
	ev.Text = "miami"
	mustHandle(t, h.orch, ev)

	if len(h.completer.got) != 1 || h.completer.got[0] != "/precios miami" {
		t.Fatalf("completer got %v", h.completer.got)
	}
}

func TestHelpKeepsScriptPosition(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	mustHandle(t, h.orch, press("asesoria"))

	reply := mustHandle(t, h.orch, command("help"))
	if reply.ParseMode != contractx.ParseMarkdown || reply.Text != promptx.LoadPromptSet().Help {
		t.Fatalf("help reply = %+v", reply)
	}
	if _, ok := h.step(t).(statex.AwaitingName); !ok {
		t.Fatalf("step = %#v, want AwaitingName", h.step(t))
	}
}

func TestUnknownCallbackKeepsState(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	mustHandle(t, h.orch, press("comprador"))
	mustHandle(t, h.orch, text("Jane Doe"))
	calls := len(h.leads.calls)

	for _, data := range []string{"vendedor", "zona:99", "zona:x"} {
		reply := mustHandle(t, h.orch, press(data))
		if reply.Text != promptx.UnknownOption {
			t.Fatalf("reply for %q = %q", data, reply.Text)
		}
	}
	if _, ok := h.step(t).(statex.AwaitingPhone); !ok {
		t.Fatalf("step = %#v, want AwaitingPhone", h.step(t))
	}
	if len(h.leads.calls) != calls {
		t.Fatalf("unknown callbacks touched the lead store")
	}
}

func TestBlankTextDoesNotAdvance(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	mustHandle(t, h.orch, press("comprador"))

	reply := mustHandle(t, h.orch, text("   "))
	if reply.Text != promptx.EmptyText {
		t.Fatalf("reply = %q", reply.Text)
	}
	if _, ok := h.step(t).(statex.AwaitingName); !ok {
		t.Fatalf("step = %#v, want AwaitingName", h.step(t))
	}
}

func TestScriptAcceptsAnyInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	mustHandle(t, h.orch, press("comprador"))
	mustHandle(t, h.orch, text("x"))
	mustHandle(t, h.orch, text("not a phone"))

	step, ok := h.step(t).(statex.AwaitingEmail)
	if !ok || step.FullName != "x" || step.Phone != "not a phone" {
		t.Fatalf("step = %#v", h.step(t))
	}
}

func TestEmailFailureKeepsAwaitingEmail(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	mustHandle(t, h.orch, press("comprador"))
	mustHandle(t, h.orch, text("Jane Doe"))
	mustHandle(t, h.orch, text("555"))

	h.leads.updateErr = contractx.NewKindError(contractx.FailureUnavailable, "lead update", errors.New("timeout"))
	reply := mustHandle(t, h.orch, text("jane@example.com"))
	if reply.Text != promptx.GenericError {
		t.Fatalf("reply = %q", reply.Text)
	}
	if _, ok := h.step(t).(statex.AwaitingEmail); !ok {
		t.Fatalf("step = %#v, want AwaitingEmail", h.step(t))
	}
	if len(h.notifier.payloads) != 0 {
		t.Fatal("failed intake must not notify")
	}

	h.leads.updateErr = nil
	if reply = mustHandle(t, h.orch, text("jane@example.com")); reply.Text != promptx.AskZone {
		t.Fatalf("retry reply = %q", reply.Text)
	}
}

func TestEmailFallsBackToUpsertWhenRowMissing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	mustHandle(t, h.orch, press("inversor"))
	mustHandle(t, h.orch, text("Jane Doe"))
	mustHandle(t, h.orch, text("555"))
	delete(h.leads.rows, userID)

	mustHandle(t, h.orch, text("jane@example.com"))

	upserts := h.leads.ops("upsert")
	last := upserts[len(upserts)-1].lead
	if last.ClientType != leadx.ClientInvestor || last.FullName != "Jane Doe" || last.Email != "jane@example.com" {
		t.Fatalf("fallback upsert = %+v", last)
	}
	if h.leads.rows[userID].Phone != "555" {
		t.Fatalf("row = %+v", h.leads.rows[userID])
	}
}

func TestZoneFallsBackToUpsertWhenRowMissing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	reply := mustHandle(t, h.orch, press(nodex.ZoneData(6)))

	if got := len(h.leads.ops("update")); got != 1 {
		t.Fatalf("updates = %d, want 1", got)
	}
	upserts := h.leads.ops("upsert")
	if len(upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(upserts))
	}
	if l := upserts[0].lead; l.TelegramID != userID || l.Location != "Naples" || l.Username != "janedoe" {
		t.Fatalf("fallback upsert = %+v", l)
	}
	if h.leads.rows[userID].Location != "Naples" {
		t.Fatalf("row = %+v", h.leads.rows[userID])
	}
	if reply.Text != nodex.ZoneSavedReply("Naples", 77).Text || reply.EditMessageID != 77 {
		t.Fatalf("zone reply = %+v", reply)
	}
}

func TestClientTypeStoreFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.leads.upsertErr = contractx.NewKindError(contractx.FailureAuth, "lead upsert", errors.New("401"))

	reply := mustHandle(t, h.orch, press("comprador"))
	if reply.Text != promptx.GenericError {
		t.Fatalf("reply = %q", reply.Text)
	}
	if _, ok := h.step(t).(statex.Idle); !ok {
		t.Fatalf("step = %#v, want Idle", h.step(t))
	}
}

func TestInvalidEventReturnsError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	cases := []contractx.Event{
		{Kind: contractx.EventText, User: user(), Text: "hola"},
		{Kind: contractx.EventText, ChatID: chatID, Text: "hola"},
		{Kind: contractx.EventCallback, ChatID: chatID, User: user()},
		{Kind: "sticker", ChatID: chatID, User: user()},
	}
	for _, ev := range cases {
		if _, err := h.orch.HandleEvent(context.Background(), ev); !errors.Is(err, contractx.ErrInvalidEvent) {
			t.Fatalf("HandleEvent(%+v) error = %v, want ErrInvalidEvent", ev, err)
		}
	}
}

func TestSessionStoreFailureReturnsGenericReply(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	orch := h.build(t, failingSessions{Store: h.sessions, loadErr: errors.New("redis down")})

	reply, err := orch.HandleEvent(context.Background(), text("hola"))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if reply.Text != promptx.GenericError {
		t.Fatalf("reply = %q", reply.Text)
	}
	if len(h.completer.got) != 0 {
		t.Fatal("completer should not run when the session cannot be loaded")
	}
}

func TestSessionSaveFailureReturnsGenericReply(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	orch := h.build(t, failingSessions{Store: h.sessions, saveErr: errors.New("redis down")})

	reply := mustHandle(t, orch, press("comprador"))
	if reply.Text != promptx.GenericError {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestEventMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.NewDialogueMetrics(reg)
	orch, err := New(Deps{
		Leads:     newFakeLeads(),
		Sessions:  statex.NewMemoryStore(),
		Completer: &fakeCompleter{reply: "ok"},
		Metrics:   m,
	}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	mustHandle(t, orch, text("hola"))
	_, _ = orch.HandleEvent(context.Background(), contractx.Event{Kind: contractx.EventText})

	got, err := testutil.GatherAndCount(reg, "inmobot_dialogue_events_total")
	if err != nil || got != 2 {
		t.Fatalf("event series = %d (err=%v), want 2", got, err)
	}
	if zones := orch.Zones(); len(zones) != 8 {
		t.Fatalf("default zones = %v", zones)
	}
}

func TestNewRequiresAdapters(t *testing.T) {
	t.Parallel()

	if _, err := New(Deps{}, Config{}); err == nil {
		t.Fatal("expected error without adapters")
	}
}
