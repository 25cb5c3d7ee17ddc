package notes

import "strings"

// Search returns the notes whose title, content or any tag contains query,
// ignoring case. A blank query matches nothing.
func Search(notes []Note, query string) []Note {
	if strings.TrimSpace(query) == "" {
		return []Note{}
	}
	needle := strings.ToLower(query)
	matches := []Note{}
	for _, note := range notes {
		if matchesQuery(note, needle) {
			matches = append(matches, note.clone())
		}
	}
	return matches
}

func matchesQuery(note Note, needle string) bool {
	if strings.Contains(strings.ToLower(note.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(note.Content), needle) {
		return true
	}
	for _, tag := range note.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// CountTags aggregates tags across notes. Pairs are ordered by first appearance,
// walking notes in collection order and tags in insertion order.
func CountTags(notes []Note) []TagCount {
	counts := []TagCount{}
	positions := make(map[string]int)
	for _, note := range notes {
		for _, tag := range note.Tags {
			if position, ok := positions[tag]; ok {
				counts[position].Count++
				continue
			}
			positions[tag] = len(counts)
			counts = append(counts, TagCount{Name: tag, Count: 1})
		}
	}
	return counts
}

// FilterTagCounts keeps the pairs whose name contains query, ignoring case.
// A blank query keeps every pair.
func FilterTagCounts(counts []TagCount, query string) []TagCount {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return counts
	}
	matches := []TagCount{}
	for _, count := range counts {
		if strings.Contains(strings.ToLower(count.Name), needle) {
			matches = append(matches, count)
		}
	}
	return matches
}

// FilterByTag keeps the notes carrying tag. Unlike Search, matching is exact and
// case-sensitive.
func FilterByTag(notes []Note, tag string) []Note {
	matches := []Note{}
	for _, note := range notes {
		if note.HasTag(tag) {
			matches = append(matches, note.clone())
		}
	}
	return matches
}

// FilterFavorites keeps the notes flagged as favorite.
func FilterFavorites(notes []Note) []Note {
	matches := []Note{}
	for _, note := range notes {
		if note.IsFavorite {
			matches = append(matches, note.clone())
		}
	}
	return matches
}

// ContentStats counts whitespace separated words and characters (runes) in content.
func ContentStats(content string) NoteStats {
	return NoteStats{
		Words:      len(strings.Fields(content)),
		Characters: len([]rune(content)),
	}
}

// SearchNotes runs Search over the current collection.
func (r *Repository) SearchNotes(query string) []Note {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Search(r.state.Notes, query)
}

// AllTags runs CountTags over the current collection.
func (r *Repository) AllTags() []TagCount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CountTags(r.state.Notes)
}

// NotesByTag runs FilterByTag over the current collection.
func (r *Repository) NotesByTag(tag string) []Note {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return FilterByTag(r.state.Notes, tag)
}

// Favorites runs FilterFavorites over the current collection.
func (r *Repository) Favorites() []Note {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return FilterFavorites(r.state.Notes)
}

// Stats returns content statistics for the note with id.
func (r *Repository) Stats(id string) (NoteStats, bool) {
	note, ok := r.GetNote(id)
	if !ok {
		return NoteStats{}, false
	}
	return ContentStats(note.Content), true
}
