package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"gridclaim/internal/app"
	"gridclaim/internal/config"
	"gridclaim/internal/domain"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode    int64
	data      []byte
	presences []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages []sentMessage
	labels   []string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.messages = append(md.messages, sentMessage{opCode: opCode, data: append([]byte(nil), data...), presences: presences})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labels = append(md.labels, label)
	return nil
}

func (md *mockDispatcher) count(opCode int64) int {
	n := 0
	for _, m := range md.messages {
		if m.opCode == opCode {
			n++
		}
	}
	return n
}

func (md *mockDispatcher) last(opCode int64) *structpb.Struct {
	for i := len(md.messages) - 1; i >= 0; i-- {
		if md.messages[i].opCode == opCode {
			out := &structpb.Struct{}
			if err := proto.Unmarshal(md.messages[i].data, out); err != nil {
				return nil
			}
			return out
		}
	}
	return nil
}

// fakeNakama implements the storage, wallet and match calls the adapters use.
// Any other NakamaModule method panics through the nil embedded interface.
type fakeNakama struct {
	runtime.NakamaModule

	objects map[string]*api.StorageObject
	version int
	wallets map[string]map[string]int64

	matches []*api.Match
	created []map[string]interface{}
	signals map[string]string

	usernames  map[string]string
	accountErr error
	walletErr  error
}

func newFakeNakama() *fakeNakama {
	return &fakeNakama{
		objects: make(map[string]*api.StorageObject),
		wallets: make(map[string]map[string]int64),
		signals: make(map[string]string),

		usernames: make(map[string]string),
	}
}

func (f *fakeNakama) fund(userID string, amount int64) {
	if f.wallets[userID] == nil {
		f.wallets[userID] = make(map[string]int64)
	}
	f.wallets[userID]["gold"] += amount
}

func (f *fakeNakama) balance(userID string) int64 { return f.wallets[userID]["gold"] }

func storageKey(collection, key, userID string) string {
	return collection + "/" + key + "/" + userID
}

func (f *fakeNakama) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	var out []*api.StorageObject
	for _, r := range reads {
		if obj, ok := f.objects[storageKey(r.Collection, r.Key, r.UserID)]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeNakama) checkWrites(writes []*runtime.StorageWrite) error {
	for _, w := range writes {
		existing, ok := f.objects[storageKey(w.Collection, w.Key, w.UserID)]
		switch {
		case w.Version == "*" && ok:
			return runtime.ErrStorageRejectedVersion
		case w.Version != "" && w.Version != "*" && (!ok || existing.Version != w.Version):
			return runtime.ErrStorageRejectedVersion
		}
	}
	return nil
}

func (f *fakeNakama) applyWrites(writes []*runtime.StorageWrite) []*api.StorageObjectAck {
	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		f.version++
		v := strconv.Itoa(f.version)
		f.objects[storageKey(w.Collection, w.Key, w.UserID)] = &api.StorageObject{
			Collection: w.Collection,
			Key:        w.Key,
			UserId:     w.UserID,
			Value:      w.Value,
			Version:    v,
		}
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, Version: v, UserId: w.UserID})
	}
	return acks
}

func (f *fakeNakama) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	if err := f.checkWrites(writes); err != nil {
		return nil, err
	}
	return f.applyWrites(writes), nil
}

func (f *fakeNakama) StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error {
	for _, d := range deletes {
		delete(f.objects, storageKey(d.Collection, d.Key, d.UserID))
	}
	return nil
}

func (f *fakeNakama) MultiUpdate(ctx context.Context, accountUpdates []*runtime.AccountUpdate, storageWrites []*runtime.StorageWrite, storageDeletes []*runtime.StorageDelete, walletUpdates []*runtime.WalletUpdate, updateLedger bool) ([]*api.StorageObjectAck, []*runtime.WalletUpdateResult, error) {
	if err := f.checkWrites(storageWrites); err != nil {
		return nil, nil, err
	}
	if f.walletErr != nil && len(walletUpdates) > 0 {
		return nil, nil, f.walletErr
	}
	for _, u := range walletUpdates {
		for currency, delta := range u.Changeset {
			if f.wallets[u.UserID][currency]+delta < 0 {
				return nil, nil, errors.New("wallet update would go negative")
			}
		}
	}
	acks := f.applyWrites(storageWrites)
	for _, u := range walletUpdates {
		for currency, delta := range u.Changeset {
			if f.wallets[u.UserID] == nil {
				f.wallets[u.UserID] = make(map[string]int64)
			}
			f.wallets[u.UserID][currency] += delta
		}
	}
	return acks, nil, nil
}

func (f *fakeNakama) MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error) {
	return f.matches, nil
}

func (f *fakeNakama) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	f.created = append(f.created, params)
	return fmt.Sprintf("match-%d", len(f.created)), nil
}

func (f *fakeNakama) MatchSignal(ctx context.Context, id string, data string) (string, error) {
	view, ok := f.signals[id]
	if !ok {
		return "", errors.New("match not found")
	}
	return view, nil
}

func (f *fakeNakama) AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error {
	if f.accountErr != nil {
		return f.accountErr
	}
	f.usernames[userID] = username
	return nil
}

type testPresence struct {
	runtime.Presence
	userID   string
	username string
}

func (p testPresence) GetUserId() string    { return p.userID }
func (p testPresence) GetUsername() string  { return p.username }
func (p testPresence) GetSessionId() string { return "session-" + p.userID }

type testMessage struct {
	testPresence
	opCode int64
	data   []byte
}

func (m testMessage) GetOpCode() int64      { return m.opCode }
func (m testMessage) GetData() []byte       { return m.data }
func (m testMessage) GetReliable() bool     { return true }
func (m testMessage) GetReceiveTime() int64 { return 0 }

func message(p testPresence, opCode int64, payload string) runtime.MatchData {
	return testMessage{testPresence: p, opCode: opCode, data: []byte(payload)}
}

func matchContext(matchID string) context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_MATCH_ID, matchID)
	return context.WithValue(ctx, runtime.RUNTIME_CTX_ENV, map[string]string{})
}

type matchHarness struct {
	t          *testing.T
	ctx        context.Context
	nk         *fakeNakama
	handler    *matchHandler
	dispatcher *mockDispatcher
	state      *MatchState
	tick       int64
}

func newMatchHarness(t *testing.T, params map[string]interface{}) *matchHarness {
	t.Helper()
	h := &matchHarness{
		t:          t,
		ctx:        matchContext("match-1"),
		nk:         newFakeNakama(),
		handler:    &matchHandler{},
		dispatcher: &mockDispatcher{},
	}
	raw, tickRate, label := h.handler.MatchInit(h.ctx, noopLogger{}, nil, h.nk, params)
	if raw == nil {
		t.Fatalf("MatchInit returned nil state")
	}
	if tickRate != 1 {
		t.Fatalf("tick rate = %d, want 1", tickRate)
	}
	if label == "" {
		t.Fatalf("MatchInit returned empty label")
	}
	h.state = raw.(*MatchState)
	return h
}

func (h *matchHarness) join(p testPresence) {
	h.t.Helper()
	out := h.handler.MatchJoin(h.ctx, noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, []runtime.Presence{p})
	if out == nil {
		h.t.Fatalf("MatchJoin terminated the match")
	}
}

// loop advances one tick and processes messages; it reports whether the
// match is still alive.
func (h *matchHarness) loop(messages ...runtime.MatchData) bool {
	h.tick++
	return h.handler.MatchLoop(h.ctx, noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, messages) != nil
}

func (h *matchHarness) phase() domain.State {
	h.t.Helper()
	st, err := h.state.App.Phase(h.ctx)
	if err != nil {
		h.t.Fatalf("Phase() error = %v", err)
	}
	return st
}

func smallGame() map[string]interface{} {
	return map[string]interface{}{
		"opener": "user-1",
		"width":  float64(4),
		"height": float64(4),
		"rounds": float64(4),
		"buy_in": float64(10),
	}
}

func TestMatchPlaysGameAndPaysWinner(t *testing.T) {
	h := newMatchHarness(t, smallGame())
	alice := testPresence{userID: "user-1", username: "alice"}
	h.nk.fund("user-1", 100)
	h.join(alice)

	h.loop(
		message(alice, OpRegister, `{"name":"alice","strategy":"sweeper"}`),
		message(alice, OpAddBots, `{"count":1,"strategy":"scout"}`),
	)
	if got := h.nk.balance("user-1"); got != 80 {
		t.Fatalf("balance after stakes = %d, want 80", got)
	}
	if pot, _ := h.state.Ledger.Pot(h.ctx); pot != 20 {
		t.Fatalf("pot = %d, want 20", pot)
	}
	if got := h.dispatcher.count(OpPlayerRegistered); got != 2 {
		t.Fatalf("player_registered events = %d, want 2", got)
	}

	h.loop(message(alice, OpStart, ""))
	if st := h.phase(); st.Phase != domain.PhaseRunning || st.RoundsPlayed != 0 {
		t.Fatalf("state after start = %+v, want running with no rounds", st)
	}

	for i := 0; i < 4; i++ {
		if !h.loop() {
			t.Fatalf("match terminated during round %d", i)
		}
	}

	st := h.phase()
	if st.Phase != domain.PhaseFinished {
		t.Fatalf("phase = %s, want finished", st.Phase)
	}
	if got := h.dispatcher.count(OpRoundIncremented); got != 4 {
		t.Fatalf("round_incremented events = %d, want 4", got)
	}
	if got := h.dispatcher.count(OpTurnTaken); got != 8 {
		t.Fatalf("turn_taken events = %d, want 8", got)
	}
	ended := h.dispatcher.last(OpGameEnded)
	if ended == nil {
		t.Fatalf("no game_ended event")
	}
	if got := ended.GetFields()["pot"].GetNumberValue(); got != 20 {
		t.Fatalf("game_ended pot = %v, want 20", got)
	}
	// Either winner pays into user-1: alice directly, the bot via its sponsor.
	if got := h.nk.balance("user-1"); got != 100 {
		t.Fatalf("balance after settlement = %d, want 100", got)
	}
	if pot, _ := h.state.Ledger.Pot(h.ctx); pot != 0 {
		t.Fatalf("pot after settlement = %d, want 0", pot)
	}
}

func TestMatchRetriesFailedSettlement(t *testing.T) {
	h := newMatchHarness(t, smallGame())
	alice := testPresence{userID: "user-1", username: "alice"}
	h.nk.fund("user-1", 100)
	h.join(alice)

	h.loop(message(alice, OpRegister, `{"name":"alice","strategy":"sweeper"}`))
	h.loop(message(alice, OpStart, ""))
	for i := 0; i < 3; i++ {
		h.loop()
	}

	h.nk.walletErr = errors.New("wallet offline")
	h.loop()
	if st := h.phase(); st != domain.Running(4) {
		t.Fatalf("state after failed settlement = %+v, want running with 4 rounds", st)
	}
	if h.dispatcher.count(OpGameEnded) != 0 {
		t.Fatalf("game_ended sent for a failed settlement")
	}
	if pot, _ := h.state.Ledger.Pot(h.ctx); pot != 10 {
		t.Fatalf("pot = %d, want 10 still in escrow", pot)
	}

	h.nk.walletErr = nil
	h.loop()
	if st := h.phase(); st != domain.Finished("user-1") {
		t.Fatalf("state after retry = %+v, want finished by user-1", st)
	}
	if got := h.dispatcher.count(OpRoundIncremented); got != 4 {
		t.Fatalf("round_incremented events = %d, want 4", got)
	}
	if got := h.nk.balance("user-1"); got != 100 {
		t.Fatalf("balance after settlement = %d, want 100", got)
	}
}

func TestMatchRegisterFailureRefundsStake(t *testing.T) {
	h := newMatchHarness(t, smallGame())
	alice := testPresence{userID: "user-1", username: "alice"}
	h.nk.fund("user-1", 100)
	h.join(alice)

	h.loop(message(alice, OpRegister, `{"name":"alice"}`))
	h.loop(message(alice, OpRegister, `{"name":"alice2"}`))

	if got := h.nk.balance("user-1"); got != 90 {
		t.Fatalf("balance = %d, want 90 after refund of the duplicate", got)
	}
	errMsg := h.dispatcher.last(OpError)
	if errMsg == nil {
		t.Fatalf("expected an error message for the duplicate registration")
	}
	if got := int(errMsg.GetFields()["code"].GetNumberValue()); got != codeInvalidArgument {
		t.Fatalf("error code = %d, want %d", got, codeInvalidArgument)
	}
}

func TestMatchRegisterWithoutFundsIsRejected(t *testing.T) {
	h := newMatchHarness(t, smallGame())
	bob := testPresence{userID: "user-2", username: "bob"}
	h.join(bob)

	h.loop(message(bob, OpRegister, `{"name":"bob"}`))

	ranked, err := h.state.App.Ranked(h.ctx)
	if err != nil {
		t.Fatalf("Ranked() error = %v", err)
	}
	if len(ranked) != 0 {
		t.Fatalf("registered %d participants without a stake", len(ranked))
	}
	if h.dispatcher.count(OpError) != 1 {
		t.Fatalf("expected one error message")
	}
}

func TestMatchOnlyOpenerAddsBotsAndStarts(t *testing.T) {
	h := newMatchHarness(t, smallGame())
	alice := testPresence{userID: "user-1", username: "alice"}
	bob := testPresence{userID: "user-2", username: "bob"}
	h.nk.fund("user-2", 100)
	h.join(alice)
	h.join(bob)

	h.loop(
		message(bob, OpAddBots, `{"count":2}`),
		message(bob, OpRegister, `{"name":"bob"}`),
		message(bob, OpStart, ""),
	)

	if got := h.dispatcher.count(OpError); got != 2 {
		t.Fatalf("error messages = %d, want 2", got)
	}
	if got := int(h.dispatcher.last(OpError).GetFields()["code"].GetNumberValue()); got != codePermissionDenied {
		t.Fatalf("error code = %d, want %d", got, codePermissionDenied)
	}
	if st := h.phase(); st.Phase != domain.PhaseForming {
		t.Fatalf("phase = %s, want forming", st.Phase)
	}
}

func TestMatchResetAndDestroy(t *testing.T) {
	params := smallGame()
	params["buy_in"] = float64(0)
	params["rounds"] = float64(4)
	h := newMatchHarness(t, params)
	alice := testPresence{userID: "user-1", username: "alice"}
	h.join(alice)

	h.loop(message(alice, OpRegister, `{"name":"alice"}`))
	h.loop(message(alice, OpStart, ""))
	for i := 0; i < 4; i++ {
		h.loop()
	}
	if st := h.phase(); st.Phase != domain.PhaseFinished || st.Winner != "user-1" {
		t.Fatalf("state = %+v, want finished with user-1", st)
	}

	h.loop(message(alice, OpReset, ""))
	if st := h.phase(); st.Phase != domain.PhaseForming {
		t.Fatalf("phase after reset = %s, want forming", st.Phase)
	}

	// A second game with the same participant replaces its hosted agent.
	h.loop(message(alice, OpRegister, `{"name":"alice"}`))
	h.loop(message(alice, OpStart, ""))
	for i := 0; i < 4; i++ {
		h.loop()
	}
	if st := h.phase(); st.Phase != domain.PhaseFinished {
		t.Fatalf("second game phase = %s, want finished", st.Phase)
	}

	if h.loop(message(alice, OpDestroy, "")) {
		t.Fatalf("match kept running after destroy")
	}
	if h.dispatcher.count(OpGameDestroyed) != 1 {
		t.Fatalf("expected a game_destroyed event")
	}
	if _, err := h.state.Store.State(h.ctx); err == nil {
		t.Fatalf("store still holds the game after destroy")
	}
}

func TestMatchJoinOpensGameWithoutOpenerParam(t *testing.T) {
	params := smallGame()
	delete(params, "opener")
	h := newMatchHarness(t, params)
	if h.state.App != nil {
		t.Fatalf("game opened before anyone joined")
	}

	carol := testPresence{userID: "user-3", username: "carol"}
	h.join(carol)
	if h.state.Opener != "user-3" {
		t.Fatalf("opener = %q, want user-3", h.state.Opener)
	}
	if len(h.dispatcher.labels) != 0 {
		t.Fatalf("label updated although it did not change: %v", h.dispatcher.labels)
	}
}

func TestMatchSignalReturnsView(t *testing.T) {
	params := smallGame()
	params["buy_in"] = float64(0)
	h := newMatchHarness(t, params)
	alice := testPresence{userID: "user-1", username: "alice"}
	h.join(alice)
	h.loop(message(alice, OpRegister, `{"name":"alice"}`))
	h.loop(message(alice, OpStart, ""))
	h.loop()

	_, raw := h.handler.MatchSignal(h.ctx, noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, signalState)
	var view GameView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		t.Fatalf("decode view: %v (%q)", err, raw)
	}
	if view.Width != 4 || view.Height != 4 || view.Rounds != 4 {
		t.Fatalf("view dimensions = %dx%d/%d", view.Width, view.Height, view.Rounds)
	}
	if view.State.Phase != domain.PhaseRunning || view.State.RoundsPlayed != 1 {
		t.Fatalf("view state = %+v", view.State)
	}
	if len(view.Ranking) != 1 || len(view.Claims) != 1 || view.Claims[0].Owner != "user-1" {
		t.Fatalf("view ranking/claims = %+v / %+v", view.Ranking, view.Claims)
	}

	if _, out := h.handler.MatchSignal(h.ctx, noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, "other"); out != "" {
		t.Fatalf("unknown signal answered %q", out)
	}
}

func TestMatchLeaveTerminatesIdleMatch(t *testing.T) {
	h := newMatchHarness(t, smallGame())
	alice := testPresence{userID: "user-1", username: "alice"}
	h.join(alice)

	out := h.handler.MatchLeave(h.ctx, noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, []runtime.Presence{alice})
	if out != nil {
		t.Fatalf("idle forming match was kept alive")
	}
}

func TestShouldTerminate(t *testing.T) {
	tests := []struct {
		name      string
		presences int
		phase     domain.Phase
		want      bool
	}{
		{name: "EmptyForming", presences: 0, phase: domain.PhaseForming, want: true},
		{name: "EmptyRunning", presences: 0, phase: domain.PhaseRunning, want: false},
		{name: "EmptyFinished", presences: 0, phase: domain.PhaseFinished, want: true},
		{name: "WatchedForming", presences: 2, phase: domain.PhaseForming, want: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := shouldTerminate(test.presences, test.phase); got != test.want {
				t.Fatalf("shouldTerminate() = %t, want %t", got, test.want)
			}
		})
	}
}

func TestApplyParams(t *testing.T) {
	cfg, err := applyParams(config.Default(), map[string]interface{}{
		"width":          float64(8),
		"height":         int64(6),
		"rounds":         "12",
		"forming_rounds": 3,
	})
	if err != nil {
		t.Fatalf("applyParams() error = %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 6 || cfg.Rounds != 12 || cfg.FormingRounds != 3 {
		t.Fatalf("applyParams() = %+v", cfg)
	}

	bad := []map[string]interface{}{
		{"width": float64(-1)},
		{"width": float64(1.5)},
		{"rounds": "many"},
		{"width": float64(0)},
		{"buy_in": true},
	}
	for _, params := range bad {
		if _, err := applyParams(config.Default(), params); err == nil {
			t.Fatalf("applyParams(%v) accepted invalid params", params)
		}
	}
}

func TestBuildLabel(t *testing.T) {
	tests := []struct {
		name  string
		phase domain.Phase
		open  bool
	}{
		{name: "FormingOpen", phase: domain.PhaseForming, open: true},
		{name: "Running", phase: domain.PhaseRunning, open: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			raw, err := buildLabel(test.phase, test.open)
			if err != nil {
				t.Fatalf("buildLabel() error = %v", err)
			}
			var label map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &label); err != nil {
				t.Fatalf("label is not JSON: %v", err)
			}
			if label["game"] != "gridclaim" || label["phase"] != string(test.phase) || label["open"] != test.open {
				t.Fatalf("label = %v", label)
			}
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	coord := domain.Field{X: 2, Y: 3}
	ev := app.Event{
		Kind: app.EventTurnTaken,
		Payload: app.TurnTakenPayload{
			ParticipantID: "user-1",
			Round:         5,
			Outcome:       domain.Occupied(coord, "user-2"),
		},
	}
	opCode, data, err := encodeEvent(ev)
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	if opCode != OpTurnTaken {
		t.Fatalf("opCode = %d, want %d", opCode, OpTurnTaken)
	}
	msg := &structpb.Struct{}
	if err := proto.Unmarshal(data, msg); err != nil {
		t.Fatalf("payload is not a Struct: %v", err)
	}
	outcome := msg.GetFields()["outcome"].GetStructValue()
	if outcome.GetFields()["kind"].GetStringValue() != "occupied" || outcome.GetFields()["owner"].GetStringValue() != "user-2" {
		t.Fatalf("outcome = %v", outcome)
	}

	if _, _, err := encodeEvent(app.Event{Kind: "nope"}); err == nil {
		t.Fatalf("unknown event kind encoded")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: app.ErrNameTaken, want: codeInvalidArgument},
		{err: app.ErrNotOpener, want: codePermissionDenied},
		{err: app.ErrCannotEnd, want: codeFailedPrecondition},
		{err: fmt.Errorf("collect stake: %w", ErrPotShort), want: codeInternal},
	}
	for _, test := range tests {
		if got := errorCode(test.err); got != test.want {
			t.Fatalf("errorCode(%v) = %d, want %d", test.err, got, test.want)
		}
	}
}
