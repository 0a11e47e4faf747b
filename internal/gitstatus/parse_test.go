package gitstatus

import "testing"

func TestParseStatus_CleanTree(t *testing.T) {
	output := `# branch.oid 4a5b6c
# branch.head main
# branch.upstream origin/main
# branch.ab +0 -0
`
	st := ParseStatus(output)

	if st.Branch != "main" {
		t.Errorf("expected main, got %s", st.Branch)
	}
	if st.Upstream != "origin/main" {
		t.Errorf("expected origin/main, got %s", st.Upstream)
	}
	if !st.Clean() {
		t.Error("expected clean tree")
	}
}

func TestParseStatus_AheadBehind(t *testing.T) {
	output := `# branch.head feature-x
# branch.upstream origin/feature-x
# branch.ab +3 -1
`
	st := ParseStatus(output)

	if st.Ahead != 3 {
		t.Errorf("expected ahead 3, got %d", st.Ahead)
	}
	if st.Behind != 1 {
		t.Errorf("expected behind 1, got %d", st.Behind)
	}
}

func TestParseStatus_Changes(t *testing.T) {
	output := `# branch.head main
1 M. N... 100644 100644 100644 abc def staged.go
1 .M N... 100644 100644 100644 abc def unstaged.go
1 MM N... 100644 100644 100644 abc def both.go
2 R. N... 100644 100644 100644 abc def R100 new.go	old.go
? untracked.go
? another.go
u UU N... 100644 100644 100644 100644 abc def ghi conflict.go
`
	st := ParseStatus(output)

	if st.Staged != 3 {
		t.Errorf("expected 3 staged (M., MM, R.), got %d", st.Staged)
	}
	if st.Unstaged != 2 {
		t.Errorf("expected 2 unstaged (.M, MM), got %d", st.Unstaged)
	}
	if st.Untracked != 2 {
		t.Errorf("expected 2 untracked, got %d", st.Untracked)
	}
	if st.Conflicted != 1 {
		t.Errorf("expected 1 conflicted, got %d", st.Conflicted)
	}
	if st.Clean() {
		t.Error("expected dirty tree")
	}
}

func TestParseStatus_DetachedHead(t *testing.T) {
	output := `# branch.oid 4a5b6c
# branch.head (detached)
`
	st := ParseStatus(output)
	if st.Branch != "(detached)" {
		t.Errorf("expected (detached), got %s", st.Branch)
	}
	if st.Upstream != "" {
		t.Errorf("expected no upstream, got %s", st.Upstream)
	}
}

func TestParseStatus_Empty(t *testing.T) {
	st := ParseStatus("")
	if !st.Clean() {
		t.Error("expected empty output to parse as clean")
	}
	if st.Branch != "" {
		t.Errorf("expected no branch, got %s", st.Branch)
	}
}

func TestParseStatus_MalformedLines(t *testing.T) {
	// Short or garbled lines must not panic or count.
	output := "1\n1 X\n#\n# branch.head\nz weird\n"
	st := ParseStatus(output)
	if st.Staged != 0 || st.Unstaged != 0 {
		t.Errorf("expected malformed lines ignored, got %+v", st)
	}
}
