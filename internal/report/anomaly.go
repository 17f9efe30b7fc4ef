package report

import "strconv"

// RenderAnomalyList fills an accordion container with one entry per record,
// in input order, and writes the record count to the badge. An empty list
// still writes "0" and keeps the caption. A missing container is skipped and
// reported as false; a missing badge only skips the count.
func (d *Document) RenderAnomalyList(containerID, badgeID string, records []AnomalyRecord) bool {
	p, ok := d.byID[containerID]
	if !ok {
		return false
	}
	entries := make([]AnomalyRecord, len(records))
	copy(entries, records)
	p.Entries = entries
	if badgeID != "" {
		d.SetBadge(badgeID, strconv.Itoa(len(entries)))
	}
	return true
}
