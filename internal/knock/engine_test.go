package knock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/devZenta/SafeSend/internal/models"
	"github.com/devZenta/SafeSend/internal/tag"
)

/* ----------------------------------------------------------------
   fakes
-----------------------------------------------------------------*/

type fakeStore struct {
	recs   map[string]models.Record
	setErr error
	sets   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]models.Record{}}
}

func (f *fakeStore) Get(_ context.Context, token string) (models.Record, bool) {
	rec, ok := f.recs[token]
	return rec, ok
}

func (f *fakeStore) Set(_ context.Context, token string, rec models.Record) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.recs[token] = rec
	return nil
}

type fakeSender struct {
	sent []models.OutboundMessage
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg models.OutboundMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestEngine() (*Engine, *fakeStore, *fakeSender) {
	st := newFakeStore()
	sn := &fakeSender{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine("y.com", "http://gate.y.com", st, sn, log)
	return e, st, sn
}

// parsed builds a ParsedMessage the way mailparse would.
func parsed(t *testing.T, from, to, subject, text string) models.ParsedMessage {
	t.Helper()
	local, domain, err := tag.Split(to)
	if err != nil {
		t.Fatalf("bad test address %q: %v", to, err)
	}
	msg := models.ParsedMessage{
		ID:              "test-msg",
		From:            from,
		To:              to,
		Subject:         subject,
		Text:            text,
		RecipientDomain: domain,
	}
	msg.RecipientTag, msg.Tagged = tag.Extract(local)
	return msg
}

/* ----------------------------------------------------------------
   decision table
-----------------------------------------------------------------*/

func TestDecideRelayDenied(t *testing.T) {
	e, st, sn := newTestEngine()
	msg := parsed(t, "alice@x.com", "bob@other.com", "hi", "hello")

	out, err := e.Decide(context.Background(), msg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	want := Outcome{Verdict: VerdictReject, Reason: "relay denied"}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	if len(sn.sent) != 0 || st.sets != 0 {
		t.Errorf("reject caused side effects: %d mails, %d writes", len(sn.sent), st.sets)
	}
}

func TestDecideChallenge(t *testing.T) {
	e, st, sn := newTestEngine()
	msg := parsed(t, "alice@x.com", "bob@y.com", "lunch?", "are you free")

	out, err := e.Decide(context.Background(), msg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if out.Verdict != VerdictChallenge {
		t.Fatalf("Verdict = %v, want challenge", out.Verdict)
	}
	if st.sets != 0 {
		t.Errorf("challenge wrote %d records, want 0", st.sets)
	}
	if len(sn.sent) != 1 {
		t.Fatalf("challenge sent %d mails, want 1", len(sn.sent))
	}

	notice := sn.sent[0]
	if notice.From != "bob@y.com" || notice.To != "alice@x.com" {
		t.Errorf("notice = %s -> %s, want bob@y.com -> alice@x.com", notice.From, notice.To)
	}
	if !strings.Contains(notice.Text, "bob+knock@y.com") {
		t.Errorf("notice body does not name the knock address:\n%s", notice.Text)
	}
	if !strings.Contains(notice.Text, "lunch?") || !strings.Contains(notice.Text, "are you free") {
		t.Errorf("notice body does not quote the original message:\n%s", notice.Text)
	}
}

func TestDecideIssueKnock(t *testing.T) {
	e, st, sn := newTestEngine()
	msg := parsed(t, "alice@x.com", "bob+knock@y.com", "let me in", "please")

	out, err := e.Decide(context.Background(), msg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if out.Verdict != VerdictIssueKnock || out.Token == "" {
		t.Fatalf("outcome = %+v, want issue-knock with token", out)
	}
	if len(out.Token) != 2*TokenBytes {
		t.Errorf("token length = %d, want %d hex chars", len(out.Token), 2*TokenBytes)
	}

	rec, ok := st.recs[out.Token]
	if !ok {
		t.Fatal("no record stored for issued token")
	}
	want := models.Record{Token: out.Token, Pattern: "alice@x.com", Status: models.StatusRequested}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	if len(sn.sent) != 1 {
		t.Fatalf("issue-knock sent %d mails, want 1", len(sn.sent))
	}
	invite := sn.sent[0]
	if invite.From != "alice@x.com" || invite.To != "bob+knock@y.com" {
		t.Errorf("invite = %s -> %s, want alice@x.com -> bob+knock@y.com", invite.From, invite.To)
	}
	wantLink := fmt.Sprintf("http://gate.y.com/knock/%s/validation?from=alice%%40x.com&to=bob%%2Bknock%%40y.com", out.Token)
	if !strings.Contains(invite.Text, wantLink) {
		t.Errorf("invite body missing validation link %q:\n%s", wantLink, invite.Text)
	}
}

func TestIssueKnockTokensAreFresh(t *testing.T) {
	e, _, _ := newTestEngine()
	msg := parsed(t, "alice@x.com", "bob+knock@y.com", "s", "b")

	out1, err := e.Decide(context.Background(), msg)
	if err != nil {
		t.Fatalf("first Decide: %v", err)
	}
	out2, err := e.Decide(context.Background(), msg)
	if err != nil {
		t.Fatalf("second Decide: %v", err)
	}
	if out1.Token == out2.Token {
		t.Error("two knocks produced the same token")
	}
}

func TestDecideInvalidToken(t *testing.T) {
	e, _, sn := newTestEngine()
	msg := parsed(t, "alice@x.com", "bob+tok123@y.com", "s", "b")

	out, err := e.Decide(context.Background(), msg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	want := Outcome{Verdict: VerdictReject, Reason: "invalid token"}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	if len(sn.sent) != 0 {
		t.Error("reject sent mail")
	}
}

func TestDecideTokenNotValidated(t *testing.T) {
	e, st, _ := newTestEngine()
	st.recs["tok123"] = models.Record{Token: "tok123", Pattern: "alice@x.com", Status: models.StatusRequested}
	msg := parsed(t, "alice@x.com", "bob+tok123@y.com", "s", "b")

	out, err := e.Decide(context.Background(), msg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if out.Verdict != VerdictReject || out.Reason != "token not validated" {
		t.Errorf("outcome = %+v, want reject/token not validated", out)
	}
}

func TestDecidePatternMismatch(t *testing.T) {
	e, st, sn := newTestEngine()
	st.recs["tok123"] = models.Record{Token: "tok123", Pattern: "alice@x.com", Status: models.StatusValidated}
	msg := parsed(t, "mallory@x.com", "bob+tok123@y.com", "s", "b")

	out, err := e.Decide(context.Background(), msg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if out.Verdict != VerdictReject || out.Reason != "pattern mismatch" {
		t.Errorf("outcome = %+v, want reject/pattern mismatch", out)
	}
	if len(sn.sent) != 0 {
		t.Error("mismatch relayed mail")
	}
}

func TestDecideRelay(t *testing.T) {
	e, st, sn := newTestEngine()
	st.recs["tok123"] = models.Record{Token: "tok123", Pattern: "alice@x.com", Status: models.StatusValidated}
	msg := parsed(t, "alice@x.com", "bob+tok123@y.com", "original subject", "original body")

	out, err := e.Decide(context.Background(), msg)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if out.Verdict != VerdictRelay {
		t.Fatalf("Verdict = %v, want relay", out.Verdict)
	}
	if len(sn.sent) != 1 {
		t.Fatalf("relay sent %d mails, want 1", len(sn.sent))
	}

	// forwarded exactly as received, tag and all
	want := models.OutboundMessage{
		From:    "alice@x.com",
		To:      "bob+tok123@y.com",
		Subject: "original subject",
		Text:    "original body",
	}
	if diff := cmp.Diff(want, sn.sent[0]); diff != "" {
		t.Errorf("relayed message mismatch (-want +got):\n%s", diff)
	}
}

/* ----------------------------------------------------------------
   failure behavior
-----------------------------------------------------------------*/

func TestChallengeSendFailureKeepsVerdict(t *testing.T) {
	e, _, sn := newTestEngine()
	sn.err = errors.New("smtp down")
	msg := parsed(t, "alice@x.com", "bob@y.com", "s", "b")

	out, err := e.Decide(context.Background(), msg)
	if err == nil {
		t.Fatal("send failure was not surfaced")
	}
	if out.Verdict != VerdictChallenge {
		t.Errorf("Verdict = %v, want challenge despite send failure", out.Verdict)
	}
}

func TestIssueKnockStoreFailure(t *testing.T) {
	e, st, sn := newTestEngine()
	st.setErr = errors.New("disk full")
	msg := parsed(t, "alice@x.com", "bob+knock@y.com", "s", "b")

	_, err := e.Decide(context.Background(), msg)
	if err == nil {
		t.Fatal("store failure was not surfaced")
	}
	if len(sn.sent) != 0 {
		t.Error("invitation sent although the knock was not stored")
	}
}

func TestRelaySendFailure(t *testing.T) {
	e, st, sn := newTestEngine()
	st.recs["tok123"] = models.Record{Token: "tok123", Pattern: "alice@x.com", Status: models.StatusValidated}
	sn.err = errors.New("mx unreachable")
	msg := parsed(t, "alice@x.com", "bob+tok123@y.com", "s", "b")

	out, err := e.Decide(context.Background(), msg)
	if err == nil {
		t.Fatal("relay failure was not surfaced")
	}
	if out.Verdict != VerdictRelay {
		t.Errorf("Verdict = %v, want relay", out.Verdict)
	}
}
