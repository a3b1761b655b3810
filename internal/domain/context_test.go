package domain

import (
	"fmt"
	"testing"
)

func TestAppendHistoryBounded(t *testing.T) {
	c := EmptyContext("conv-1", "default", ModeVoice)

	for i := 0; i < 25; i++ {
		c.AppendHistory(fmt.Sprintf("user %d", i), fmt.Sprintf("assistant %d", i))
		if len(c.History) > HistoryLimit {
			t.Fatalf("history grew to %d entries after append %d", len(c.History), i)
		}
	}

	if len(c.History) != HistoryLimit {
		t.Fatalf("expected %d history entries, got %d", HistoryLimit, len(c.History))
	}

	// Most recent exchange is last, in chronological order.
	last := c.History[len(c.History)-1]
	if last.Role != "assistant" || last.Content != "assistant 24" {
		t.Errorf("unexpected final entry: %+v", last)
	}
	first := c.History[0]
	if first.Role != "user" || first.Content != "user 20" {
		t.Errorf("unexpected oldest retained entry: %+v", first)
	}
}

func TestRecentMessages(t *testing.T) {
	c := EmptyContext("conv-1", "default", ModeText)
	c.AppendHistory("hello", "hi there")
	c.AppendHistory("open chrome", "opening chrome")

	recent := RecentMessages(c.History, 3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(recent))
	}
	if recent[0].Content != "hi there" {
		t.Errorf("expected oldest of window to be 'hi there', got %q", recent[0].Content)
	}

	all := RecentMessages(c.History, 100)
	if len(all) != 4 {
		t.Errorf("expected full history of 4, got %d", len(all))
	}
}
