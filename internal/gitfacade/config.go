package gitfacade

import "strings"

// Config reads an arbitrary [section "subsection"] key from git's own
// configuration (local, global, and system, as merged by go-git).
func (f *realFacade) Config(section, subsection, key string) (string, bool) {
	cfg, err := f.repo.Config()
	if err != nil || cfg.Raw == nil {
		return "", false
	}
	sec := cfg.Raw.Section(section)
	if subsection != "" {
		sub := sec.Subsection(subsection)
		if !sub.HasOption(key) {
			return "", false
		}
		return sub.Option(key), true
	}
	if !sec.HasOption(key) {
		return "", false
	}
	return sec.Option(key), true
}

// DefaultBranch returns init.defaultBranch, defaulting to "master".
func (f *realFacade) DefaultBranch() string {
	if v, ok := f.Config("init", "", "defaultBranch"); ok && v != "" {
		return v
	}
	return "master"
}

// ProtectedPatterns returns the colon-separated dah.protectedBranch glob list.
func (f *realFacade) ProtectedPatterns() []string {
	v, ok := f.Config("dah", "", "protectedBranch")
	if !ok || v == "" {
		return nil
	}
	parts := strings.Split(v, ":")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BranchPrefix returns dah.branchPrefix, "" if unset.
func (f *realFacade) BranchPrefix() string {
	v, _ := f.Config("dah", "", "branchPrefix")
	return v
}

// commitMessage returns dah.commitMessage, falling back to a fixed
// non-interactive default since dah never opens an editor.
func (f *realFacade) commitMessage() string {
	if v, ok := f.Config("dah", "", "commitMessage"); ok && v != "" {
		return v
	}
	return "dah: automated commit"
}
