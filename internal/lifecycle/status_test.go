package lifecycle_test

import (
	"errors"
	"testing"

	"shortsmith/internal/lifecycle"
)

func TestParseAcceptsDisplayAndIdentifierNames(t *testing.T) {
	cases := map[string]lifecycle.Status{
		"Not started": lifecycle.NotStarted,
		"NOT_STARTED": lifecycle.NotStarted,
		"in-progress": lifecycle.InProgress,
		" Done ":      lifecycle.Done,
		"PUBLISHED":   lifecycle.Published,
		"error":       lifecycle.Error,
	}
	for input, want := range cases {
		got, ok := lifecycle.Parse(input)
		if !ok || got != want {
			t.Fatalf("Parse(%q) = %q, %v; want %q", input, got, ok, want)
		}
	}
	if _, ok := lifecycle.Parse("archived"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := lifecycle.Parse(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestTransitionTable(t *testing.T) {
	legal := [][2]lifecycle.Status{
		{lifecycle.NotReady, lifecycle.Ready},
		{lifecycle.Ready, lifecycle.NotStarted},
		{lifecycle.NotStarted, lifecycle.InProgress},
		{lifecycle.InProgress, lifecycle.Done},
		{lifecycle.InProgress, lifecycle.Error},
		{lifecycle.Done, lifecycle.Published},
	}
	legalSet := make(map[[2]lifecycle.Status]bool, len(legal))
	for _, edge := range legal {
		legalSet[edge] = true
	}
	for _, from := range lifecycle.AllStatuses() {
		for _, to := range lifecycle.AllStatuses() {
			want := legalSet[[2]lifecycle.Status{from, to}]
			if got := lifecycle.CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%q, %q) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTransitionRejectsBackwardMoves(t *testing.T) {
	err := lifecycle.Transition(lifecycle.InProgress, lifecycle.NotStarted)
	var te *lifecycle.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if !te.Backward {
		t.Fatalf("expected backward flag for %v", te)
	}
	if err := lifecycle.Transition(lifecycle.Done, lifecycle.Error); err == nil {
		t.Fatal("expected Done -> Error to be illegal")
	}
	if err := lifecycle.Transition(lifecycle.Error, lifecycle.InProgress); err == nil {
		t.Fatal("expected Error to be terminal")
	}
}

func TestTerminalAndEligible(t *testing.T) {
	if !lifecycle.IsTerminal(lifecycle.Done, false) {
		t.Fatal("Done without publishing should be terminal")
	}
	if lifecycle.IsTerminal(lifecycle.Done, true) {
		t.Fatal("Done awaiting publish should not be terminal")
	}
	if !lifecycle.IsTerminal(lifecycle.Error, true) || !lifecycle.IsTerminal(lifecycle.Published, false) {
		t.Fatal("Error and Published should be terminal")
	}
	if !lifecycle.Eligible(lifecycle.NotStarted) || lifecycle.Eligible(lifecycle.Ready) {
		t.Fatal("only Not started records are eligible")
	}
	if !lifecycle.IsInitial(lifecycle.NotReady) || lifecycle.IsInitial(lifecycle.InProgress) {
		t.Fatal("unexpected initial status classification")
	}
}
