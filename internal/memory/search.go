package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// Filters narrows structured and text searches. Zero values mean "any".
// Visibility enforcement is the caller's responsibility; the store only
// filters what it is asked to.
type Filters struct {
	AgentID      string
	Kind         string
	Visibility   string
	Tags         []string // entry matches if it carries any of these
	CreatedAfter time.Time
	CreatedUntil time.Time
	Limit        int
	Offset       int
}

// Search returns entries matching the structured filters, newest first.
func Search(db *gorm.DB, f Filters) ([]models.MemoryEntry, error) {
	q, err := applyFilters(db.Model(&models.MemoryEntry{}), f)
	if err != nil {
		return nil, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var entries []models.MemoryEntry
	if err := q.Order("created_at DESC").
		Limit(limit).Offset(f.Offset).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("memory: search: %w", err)
	}
	return entries, nil
}

// SearchText returns entries whose content contains the query, ranked by
// case-insensitive occurrence count then recency, with the structured
// filters layered on. Relevance is computed in Go over the LIKE-prefiltered
// rows; SQL full-text support differs too much between the drivers.
func SearchText(db *gorm.DB, query string, f Filters) ([]models.MemoryEntry, error) {
	if query == "" {
		return nil, fmt.Errorf("memory: query is required")
	}

	q, err := applyFilters(db.Model(&models.MemoryEntry{}), f)
	if err != nil {
		return nil, err
	}

	var entries []models.MemoryEntry
	if err := q.Where("content LIKE ?", "%"+query+"%").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("memory: text search: %w", err)
	}

	lower := strings.ToLower(query)
	sort.SliceStable(entries, func(i, j int) bool {
		ri := strings.Count(strings.ToLower(entries[i].Content), lower)
		rj := strings.Count(strings.ToLower(entries[j].Content), lower)
		if ri != rj {
			return ri > rj
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset > 0 {
		if f.Offset >= len(entries) {
			return []models.MemoryEntry{}, nil
		}
		entries = entries[f.Offset:]
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Related returns entries connected to the given one: first those sharing
// its task, then those sharing its objective, then those with an
// overlapping tag. Duplicates are removed, the entry itself excluded.
func Related(db *gorm.DB, entryID string, limit int) ([]models.MemoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	e, err := Get(db, entryID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{e.ID: true}
	var related []models.MemoryEntry

	collect := func(rows []models.MemoryEntry) {
		for _, r := range rows {
			if len(related) >= limit || seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			related = append(related, r)
		}
	}

	if e.TaskID != "" {
		var rows []models.MemoryEntry
		if err := db.Where("task_id = ? AND id <> ?", e.TaskID, e.ID).
			Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("memory: related by task: %w", err)
		}
		collect(rows)
	}

	if e.ObjectiveID != "" && len(related) < limit {
		var rows []models.MemoryEntry
		if err := db.Where("objective_id = ? AND id <> ?", e.ObjectiveID, e.ID).
			Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("memory: related by objective: %w", err)
		}
		collect(rows)
	}

	if len(related) < limit {
		tags, err := Tags(e)
		if err != nil {
			return nil, err
		}
		for _, tag := range tags {
			if len(related) >= limit {
				break
			}
			var rows []models.MemoryEntry
			if err := db.Where("tags LIKE ? AND id <> ?", tagPattern(tag), e.ID).
				Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
				return nil, fmt.Errorf("memory: related by tag %q: %w", tag, err)
			}
			collect(rows)
		}
	}
	return related, nil
}

// applyFilters adds the structured filter conditions to a query.
func applyFilters(q *gorm.DB, f Filters) (*gorm.DB, error) {
	if f.AgentID != "" {
		q = q.Where("agent_id = ?", f.AgentID)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Visibility != "" {
		q = q.Where("visibility = ?", f.Visibility)
	}
	if !f.CreatedAfter.IsZero() {
		q = q.Where("created_at >= ?", f.CreatedAfter)
	}
	if !f.CreatedUntil.IsZero() {
		q = q.Where("created_at <= ?", f.CreatedUntil)
	}
	if len(f.Tags) > 0 {
		// Any-tag match against the JSON tag column.
		cond := q.Session(&gorm.Session{NewDB: true}).
			Where("tags LIKE ?", tagPattern(f.Tags[0]))
		for _, tag := range f.Tags[1:] {
			cond = cond.Or("tags LIKE ?", tagPattern(tag))
		}
		q = q.Where(cond)
	}
	return q, nil
}

// tagPattern builds the LIKE pattern matching a JSON-encoded tag value.
func tagPattern(tag string) string {
	return fmt.Sprintf(`%%"%s"%%`, tag)
}
