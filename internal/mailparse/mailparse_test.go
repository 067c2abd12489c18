package mailparse

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/devZenta/SafeSend/internal/models"
)

func raw(headers, body string) string {
	return headers + "\r\n" + body
}

func TestParse(t *testing.T) {
	r := strings.NewReader(raw(
		"From: Alice <alice@x.com>\r\n"+
			"To: bob+tok123@y.com\r\n"+
			"Subject: lunch?\r\n",
		"are you free tomorrow?\r\n"))

	got, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := models.ParsedMessage{
		From:            "alice@x.com",
		To:              "bob+tok123@y.com",
		Subject:         "lunch?",
		Text:            "are you free tomorrow?\r\n",
		RecipientDomain: "y.com",
		RecipientTag:    "tok123",
		Tagged:          true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}
}

func TestParseUntaggedRecipient(t *testing.T) {
	r := strings.NewReader(raw(
		"From: alice@x.com\r\n"+
			"To: bob@y.com\r\n"+
			"Subject: hi\r\n",
		"hello\r\n"))

	got, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Tagged || got.RecipientTag != "" {
		t.Errorf("untagged recipient parsed as tagged: %+v", got)
	}
	if got.RecipientDomain != "y.com" {
		t.Errorf("RecipientDomain = %q, want y.com", got.RecipientDomain)
	}
}

func TestParseEncodedSubject(t *testing.T) {
	r := strings.NewReader(raw(
		"From: alice@x.com\r\n"+
			"To: bob@y.com\r\n"+
			"Subject: =?utf-8?q?d=C3=A9jeuner=3F?=\r\n",
		"salut\r\n"))

	got, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Subject != "déjeuner?" {
		t.Errorf("Subject = %q, want déjeuner?", got.Subject)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"garbage", "not a mail message at all"},
		{"missing To", raw("From: alice@x.com\r\nSubject: hi\r\n", "hello\r\n")},
		{"missing From", raw("To: bob@y.com\r\nSubject: hi\r\n", "hello\r\n")},
		{"unparseable To", raw("From: alice@x.com\r\nTo: <<>>\r\n", "hello\r\n")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tc.raw)); err == nil {
				t.Error("Parse accepted malformed input")
			}
		})
	}
}
