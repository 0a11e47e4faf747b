// pattern: Functional Core

package gitstatus

import (
	"bufio"
	"strconv"
	"strings"
)

// Status summarizes `git status --porcelain=v2 --branch` for one repository.
type Status struct {
	Branch     string // Current branch name ("(detached)" when headless)
	Upstream   string // Upstream ref, empty if none
	Ahead      int    // Commits ahead of upstream
	Behind     int    // Commits behind upstream
	Staged     int    // Entries with a staged change
	Unstaged   int    // Entries with an unstaged change
	Untracked  int    // Untracked files
	Conflicted int    // Unmerged entries
}

// Clean reports whether the working tree has no pending changes.
func (s Status) Clean() bool {
	return s.Staged == 0 && s.Unstaged == 0 && s.Untracked == 0 && s.Conflicted == 0
}

// ParseStatus parses the output of `git status --porcelain=v2 --branch`.
func ParseStatus(output string) Status {
	var st Status

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		switch line[0] {
		case '#':
			parseHeader(line, &st)
		case '1', '2':
			// Format: "1 XY sub ..." / "2 XY sub ..." — XY is field 2
			fields := strings.SplitN(line, " ", 3)
			if len(fields) < 2 || len(fields[1]) != 2 {
				continue
			}
			if fields[1][0] != '.' {
				st.Staged++
			}
			if fields[1][1] != '.' {
				st.Unstaged++
			}
		case 'u':
			st.Conflicted++
		case '?':
			st.Untracked++
		}
	}

	return st
}

// parseHeader handles "# branch.*" lines.
func parseHeader(line string, st *Status) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return
	}

	switch fields[1] {
	case "branch.head":
		st.Branch = fields[2]
	case "branch.upstream":
		st.Upstream = fields[2]
	case "branch.ab":
		// "# branch.ab +N -M"
		for _, f := range fields[2:] {
			if strings.HasPrefix(f, "+") {
				if n, err := strconv.Atoi(f[1:]); err == nil {
					st.Ahead = n
				}
			} else if strings.HasPrefix(f, "-") {
				if n, err := strconv.Atoi(f[1:]); err == nil {
					st.Behind = n
				}
			}
		}
	}
}
