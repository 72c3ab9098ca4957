package domain

import "sort"

// Merge appends batch to archive and drops batch samples whose timestamp the
// archive already holds, so re-ingesting a month leaves the archive as it
// was. The result is sorted ascending by time.
func Merge(archive Archive, batch Series) Archive {
	seen := make(map[int64]struct{}, len(archive)+len(batch))
	out := make(Archive, 0, len(archive)+len(batch))

	for _, s := range archive {
		key := s.Time.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	for _, s := range batch {
		key := s.Time.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
