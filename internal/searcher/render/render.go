// Package render turns raw federated results into titled sections and holds
// the static filter catalog served to search clients.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/executor"
)

var sectionTitles = map[document.EntityType]string{
	document.Companies: "Companies",
	document.Employees: "Employees",
}

// Entry is one normalized search result.
type Entry struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ID       any    `json:"id"`
	URL      string `json:"url"`
}

// Section groups the results of one entity type.
type Section struct {
	Title   string  `json:"title"`
	Count   int     `json:"count"`
	Results []Entry `json:"results"`
}

// Response is the rendered search payload.
type Response struct {
	Sections []Section `json:"sections"`
}

// Render builds one section per type in types order, skipping types without
// hits. Count is the number of rendered entries.
func Render(resp *executor.SearchResponse, types []document.EntityType) (*Response, error) {
	out := &Response{Sections: []Section{}}
	for _, t := range types {
		hits := resp.Hits(t)
		if len(hits) == 0 {
			continue
		}
		entries := make([]Entry, 0, len(hits))
		for _, src := range hits {
			e, err := entry(t, src)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		out.Sections = append(out.Sections, Section{
			Title:   sectionTitles[t],
			Count:   len(entries),
			Results: entries,
		})
	}
	return out, nil
}

func entry(t document.EntityType, src json.RawMessage) (Entry, error) {
	var fields struct {
		ID          any    `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return Entry{}, fmt.Errorf("decoding %s hit: %w", t, err)
	}
	return Entry{
		Title:    fields.Name,
		Subtitle: fields.Description,
		ID:       fields.ID,
		URL:      fmt.Sprintf("/%s/%v", t, fields.ID),
	}, nil
}
