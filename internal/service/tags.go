package service

import (
	"context"
	"strings"

	"scriptorium/internal/repository"
)

// NormalizeTags trims every name, drops empty ones and removes duplicates,
// keeping the first occurrence. Matching is case-sensitive: "Go" and "go"
// are different tags. The result is never nil.
func NormalizeTags(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// diffTagIDs returns the ids to unlink (in current order) and the ids to
// link (in desired order). Ids present in both are left alone so their
// usage rows keep their position.
func diffTagIDs(current, desired []int64) (remove, add []int64) {
	want := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		want[id] = struct{}{}
	}
	have := make(map[int64]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
		if _, ok := want[id]; !ok {
			remove = append(remove, id)
		}
	}
	for _, id := range desired {
		if _, ok := have[id]; ok {
			continue
		}
		have[id] = struct{}{}
		add = append(add, id)
	}
	return remove, add
}

// syncTags makes the post's usage rows match names exactly. It must run in
// the same transaction as the post update. It returns how many tags were
// newly added to the vocabulary.
func syncTags(ctx context.Context, tags repository.TagRepository, postID int64, names []string) (int, error) {
	created := 0
	desired := make([]int64, 0, len(names))
	for _, name := range names {
		tag, isNew, err := tags.FindOrCreate(ctx, name)
		if err != nil {
			return 0, err
		}
		if isNew {
			created++
		}
		desired = append(desired, tag.ID)
	}

	current, err := tags.UsageTagIDs(ctx, postID)
	if err != nil {
		return 0, err
	}

	remove, add := diffTagIDs(current, desired)
	if err := tags.RemoveUsages(ctx, postID, remove); err != nil {
		return 0, err
	}
	if err := tags.AddUsages(ctx, postID, add); err != nil {
		return 0, err
	}
	return created, nil
}
