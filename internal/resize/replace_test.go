package resize

import (
	"context"
	"testing"

	"github.com/kobzarvs/qview/internal/store"
)

func TestReplace(t *testing.T) {
	tests := []struct {
		name   string
		start  int64
		oldLen int64
		data   string
		want   string
	}{
		{"insert", 3, 0, "abc", "012abc3456789"},
		{"delete", 3, 4, "", "012789"},
		{"overwrite", 3, 2, "xy", "012xy56789"},
		{"grow", 0, 1, "head", "head123456789"},
		{"shrink", 7, 3, "z", "0123456z"},
		{"append", 10, 0, "!", "0123456789!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory("digits", []byte("0123456789"))
			if err := Replace(context.Background(), st, tt.start, tt.oldLen, []byte(tt.data), Options{ScratchSize: 3}); err != nil {
				t.Fatalf("Replace error: %v", err)
			}
			if got := string(st.Bytes()); got != tt.want {
				t.Fatalf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceJobWritesAfterShift(t *testing.T) {
	faulty := store.NewFaulty(store.NewMemory("digits", []byte("0123456789")))
	j, err := NewReplace(faulty, 2, 0, []byte("AB"), 4)
	if err != nil {
		t.Fatalf("NewReplace error: %v", err)
	}
	for !j.Done() {
		if _, err := j.Step(); err != nil {
			t.Fatalf("Step error: %v", err)
		}
	}
	// Two 4 byte chunks for the 8 tail bytes, then the replacement bytes.
	if got := faulty.Calls(store.OpWrite); got != 3 {
		t.Fatalf("writes = %d, want 3", got)
	}
	st := faulty.Store.(*store.Memory)
	if got := string(st.Bytes()); got != "01AB23456789" {
		t.Fatalf("content = %q", got)
	}
}
