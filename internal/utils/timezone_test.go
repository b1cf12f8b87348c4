package utils

import (
	"testing"
	"time"
)

func TestLocationOrUTC(t *testing.T) {
	if got := LocationOrUTC(""); got != time.UTC {
		t.Fatalf("empty name: got %v", got)
	}
	if got := LocationOrUTC("Not/AZone"); got != time.UTC {
		t.Fatalf("unknown name: got %v", got)
	}
	got := LocationOrUTC("Europe/Athens")
	if got.String() != "Europe/Athens" {
		t.Fatalf("got %v", got)
	}
}
