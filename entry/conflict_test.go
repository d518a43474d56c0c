package entry

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name                   string
		remote, upstream, local string
		want                   Classification
	}{
		{"all agree", "a", "a", "a", Match},
		{"in-progress local edit", "a", "a", "b", LocalMismatch},
		{"just-finished upload", "a", "b", "a", CacheMismatch},
		{"stale remote poll result", "a", "b", "b", RemoteMismatch},
		{"three-way conflict", "a", "b", "c", Conflict},
		{"no remote checksum", "", "a", "b", Missing},
		{"directory, nothing staged", "", "", "", Missing},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.remote, test.upstream, test.local); got != test.want {
				t.Errorf("Classify(%q, %q, %q) = %v, want %v", test.remote, test.upstream, test.local, got, test.want)
			}
		})
	}
}

func TestClassificationString(t *testing.T) {
	for _, c := range []Classification{Match, LocalMismatch, CacheMismatch, RemoteMismatch, Conflict, Missing} {
		if c.String() == "unknown" {
			t.Errorf("Classification(%d).String() = unknown", c)
		}
	}
	if got := Classification(99).String(); got != "unknown" {
		t.Errorf("Classification(99).String() = %q, want unknown", got)
	}
}
