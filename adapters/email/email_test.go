package email

import (
	"context"
	"errors"
	"testing"
)

func TestMockNotifier_Send(t *testing.T) {
	n := NewMockNotifier()
	ctx := context.Background()

	if err := n.Send(ctx, "leader@example.com", "Consumos 2012-03", "total: 1500"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if n.Count() != 1 {
		t.Fatalf("Count = %d, want 1", n.Count())
	}
	msg := n.Sent()[0]
	if msg.To != "leader@example.com" {
		t.Errorf("To = %s", msg.To)
	}
	if msg.Subject != "Consumos 2012-03" {
		t.Errorf("Subject = %s", msg.Subject)
	}
}

func TestMockNotifier_FindByTo(t *testing.T) {
	n := NewMockNotifier()
	ctx := context.Background()

	n.Send(ctx, "a@example.com", "s1", "b1")
	n.Send(ctx, "b@example.com", "s2", "b2")
	n.Send(ctx, "a@example.com", "s3", "b3")

	if got := n.FindByTo("a@example.com"); len(got) != 2 {
		t.Errorf("FindByTo(a) = %d messages, want 2", len(got))
	}
	if got := n.FindByTo("c@example.com"); len(got) != 0 {
		t.Errorf("FindByTo(c) = %d messages, want 0", len(got))
	}
}

func TestMockNotifier_FailWith(t *testing.T) {
	n := NewMockNotifier()
	wantErr := errors.New("smtp down")
	n.FailWith = wantErr

	err := n.Send(context.Background(), "a@example.com", "s", "b")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Send = %v, want %v", err, wantErr)
	}
	if n.Count() != 0 {
		t.Errorf("Count = %d, want 0", n.Count())
	}
}

func TestNoopNotifier(t *testing.T) {
	n := NewNoopNotifier()
	if err := n.Send(context.Background(), "a@example.com", "s", "b"); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
