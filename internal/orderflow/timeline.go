package orderflow

// Bucket is where an entry sits relative to the current position.
type Bucket string

const (
	BucketCompleted Bucket = "completed"
	BucketCurrent   Bucket = "current"
	BucketPending   Bucket = "pending"
)

// TimelineEntry is one row of a progress display. Completed and current entries are
// reached; only pending entries are dimmed.
type TimelineEntry struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Bucket      Bucket `json:"bucket"`
	Reached     bool   `json:"reached"`
	Dimmed      bool   `json:"dimmed"`
}

// BuildTimeline buckets catalog around status. An unknown status counts as index 0.
func BuildTimeline(status Status, catalog []StatusMeta) []TimelineEntry {
	current := IndexOfStatus(catalog, status)
	entries := make([]TimelineEntry, len(catalog))
	for i, meta := range catalog {
		entries[i] = timelineEntry(string(meta.Key), meta.Label, meta.Description, i, current)
	}
	return entries
}

// StepProgress buckets the step catalog around the current step.
func StepProgress(current StepID, catalog []StepMeta) []TimelineEntry {
	idx := -1
	for i, meta := range catalog {
		if meta.ID == current {
			idx = i
			break
		}
	}
	entries := make([]TimelineEntry, len(catalog))
	for i, meta := range catalog {
		entries[i] = timelineEntry(string(meta.ID), meta.Label, meta.Description, i, idx)
	}
	return entries
}

func timelineEntry(key, label, description string, idx, current int) TimelineEntry {
	if current < 0 {
		current = 0
	}
	entry := TimelineEntry{Key: key, Label: label, Description: description}
	switch {
	case idx < current:
		entry.Bucket = BucketCompleted
	case idx == current:
		entry.Bucket = BucketCurrent
	default:
		entry.Bucket = BucketPending
	}
	entry.Reached = idx <= current
	entry.Dimmed = !entry.Reached
	return entry
}
