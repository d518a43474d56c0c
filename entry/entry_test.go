package entry

import (
	"testing"

	"github.com/OMGeeky/drive-syncer/id"
)

func TestNewDirectoryDefaults(t *testing.T) {
	d := NewDirectory(id.Id("folder1"), "docs")
	if d.Kind != Directory {
		t.Fatalf("Kind = %v, want Directory", d.Kind)
	}
	if d.Perm != DirPerm {
		t.Fatalf("Perm = %v, want %v", d.Perm, DirPerm)
	}
	if d.Name != "docs" {
		t.Fatalf("Name = %q, want %q", d.Name, "docs")
	}
}

func TestNewFileDefaults(t *testing.T) {
	f := NewFile(id.Id("file1"), "notes.txt")
	if f.Kind != RegularFile {
		t.Fatalf("Kind = %v, want RegularFile", f.Kind)
	}
	if f.Perm != FilePerm {
		t.Fatalf("Perm = %v, want %v", f.Perm, FilePerm)
	}
}

func TestGrowToIsMonotonic(t *testing.T) {
	f := NewFile(id.Id("file1"), "notes.txt")
	f.GrowTo(100)
	if f.Size != 100 {
		t.Fatalf("Size = %d, want 100", f.Size)
	}
	f.GrowTo(50)
	if f.Size != 100 {
		t.Fatalf("GrowTo(50) shrank Size to %d, want unchanged 100", f.Size)
	}
	f.GrowTo(200)
	if f.Size != 200 {
		t.Fatalf("Size = %d, want 200", f.Size)
	}
}

func TestPendingMetadataStaged(t *testing.T) {
	var p PendingMetadata
	if p.Staged() {
		t.Fatal("zero-value PendingMetadata reported as staged")
	}
	p.Name = "renamed.txt"
	if !p.Staged() {
		t.Fatal("PendingMetadata with a pending rename not reported as staged")
	}
}

func TestTouchAdvancesTimes(t *testing.T) {
	f := NewFile(id.Id("file1"), "notes.txt")
	before := f.Mtime
	f.Touch()
	if f.Mtime.Before(before) {
		t.Fatalf("Touch moved Mtime backwards: before=%v after=%v", before, f.Mtime)
	}
}
