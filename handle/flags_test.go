package handle

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestParseFlagsAccessMode(t *testing.T) {
	tests := []struct {
		name string
		raw  uint32
		want Flags
	}{
		{"read only", uint32(unix.O_RDONLY), Flags{ReadOnly: true}},
		{"write only", uint32(unix.O_WRONLY), Flags{WriteOnly: true}},
		{"read write", uint32(unix.O_RDWR), Flags{ReadWrite: true}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ParseFlags(test.raw)
			if got != test.want {
				t.Errorf("ParseFlags(%#o) = %+v, want %+v", test.raw, got, test.want)
			}
		})
	}
}

func TestParseFlagsModifiers(t *testing.T) {
	raw := uint32(unix.O_RDWR | unix.O_APPEND | unix.O_NONBLOCK | unix.O_SYNC)
	got := ParseFlags(raw)
	want := Flags{ReadWrite: true, Append: true, NonBlock: true, Sync: true}
	if got != want {
		t.Errorf("ParseFlags(%#o) = %+v, want %+v", raw, got, want)
	}
}

func TestCanReadCanWrite(t *testing.T) {
	tests := []struct {
		flags     Flags
		wantRead  bool
		wantWrite bool
	}{
		{Flags{ReadOnly: true}, true, false},
		{Flags{WriteOnly: true}, false, true},
		{Flags{ReadWrite: true}, true, true},
	}
	for _, test := range tests {
		if got := test.flags.CanRead(); got != test.wantRead {
			t.Errorf("%+v.CanRead() = %v, want %v", test.flags, got, test.wantRead)
		}
		if got := test.flags.CanWrite(); got != test.wantWrite {
			t.Errorf("%+v.CanWrite() = %v, want %v", test.flags, got, test.wantWrite)
		}
	}
}
