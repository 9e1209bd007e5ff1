package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

type Variant struct {
	ID        string `json:"id"`
	Price     string `json:"price"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
}

type Entry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Handle      string    `json:"handle"`
	ImageURL    string    `json:"image_url"`
	Variants    []Variant `json:"variants"`
}

// RawProduct mirrors the storefront product payload as delivered by the
// platform webhook/API.
type RawProduct struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	BodyHTML string `json:"body_html"`
	Handle   string `json:"handle"`
	Images   []struct {
		Src string `json:"src"`
	} `json:"images"`
	Variants []struct {
		ID        int64  `json:"id"`
		Price     string `json:"price"`
		ProductID int64  `json:"product_id"`
		Title     string `json:"title"`
	} `json:"variants"`
}

func EntryFromRaw(raw RawProduct) Entry {
	e := Entry{
		ID:          strconv.FormatInt(raw.ID, 10),
		Title:       raw.Title,
		Description: stripHTML(raw.BodyHTML),
		Handle:      raw.Handle,
	}
	if len(raw.Images) > 0 {
		e.ImageURL = raw.Images[0].Src
	}
	for _, v := range raw.Variants {
		e.Variants = append(e.Variants, Variant{
			ID:        strconv.FormatInt(v.ID, 10),
			Price:     v.Price,
			ProductID: strconv.FormatInt(v.ProductID, 10),
			Title:     v.Title,
		})
	}
	return e
}

// TextChunk renders the entry as the single text block used both for
// embedding indexing and for the direct-query catalog prompt.
func (e Entry) TextChunk() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product ID: %s\nTitle: %s\nHandle: %s", e.ID, e.Title, e.Handle)
	if e.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", e.Description)
	}
	for _, v := range e.Variants {
		fmt.Fprintf(&b, "\nVariant: %s, price %s", v.Title, v.Price)
	}
	return b.String()
}

// Snapshot is an immutable view over one store's catalog at a point in time.
type Snapshot struct {
	Entries  []Entry
	byID     map[string]Entry
	byHandle map[string]struct{}
}

func NewSnapshot(entries []Entry) *Snapshot {
	s := &Snapshot{
		Entries:  entries,
		byID:     make(map[string]Entry, len(entries)),
		byHandle: make(map[string]struct{}, len(entries)),
	}
	for _, e := range entries {
		s.byID[e.ID] = e
		s.byHandle[e.Handle] = struct{}{}
	}
	return s
}

func (s *Snapshot) ByID(id string) (Entry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

func (s *Snapshot) HasHandle(handle string) bool {
	_, ok := s.byHandle[handle]
	return ok
}

func (s *Snapshot) MetadataIDs() []string {
	ids := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// Stringified concatenates every entry's text chunk for prompts that carry
// the whole catalog.
func (s *Snapshot) Stringified() string {
	chunks := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		chunks = append(chunks, e.TextChunk())
	}
	return strings.Join(chunks, "\n---\n")
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
