package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawProductJSON = `{
	"id": 42,
	"title": "Red Shoes",
	"body_html": "<p>Light <b>summer</b> shoes</p>",
	"handle": "red-shoes",
	"images": [{"src": "https://cdn.shopify.com/s/files/red.jpg"}],
	"variants": [
		{"id": 421, "price": "49.99", "product_id": 42, "title": "EU 40", "sku": "RS-40", "inventory_quantity": 3}
	]
}`

func TestEntryFromRaw(t *testing.T) {
	var raw RawProduct
	require.NoError(t, json.Unmarshal([]byte(rawProductJSON), &raw))

	e := EntryFromRaw(raw)
	assert.Equal(t, "42", e.ID)
	assert.Equal(t, "Red Shoes", e.Title)
	assert.Equal(t, "Light summer shoes", e.Description)
	assert.Equal(t, "red-shoes", e.Handle)
	assert.Equal(t, "https://cdn.shopify.com/s/files/red.jpg", e.ImageURL)

	// variants retain id, price, product_id and title only
	require.Len(t, e.Variants, 1)
	assert.Equal(t, Variant{ID: "421", Price: "49.99", ProductID: "42", Title: "EU 40"}, e.Variants[0])
}

func TestEntryFromRawWithoutImages(t *testing.T) {
	var raw RawProduct
	require.NoError(t, json.Unmarshal([]byte(rawProductJSON), &raw))
	raw.Images = nil

	e := EntryFromRaw(raw)
	assert.Equal(t, "", e.ImageURL)
}

func TestSnapshotLookups(t *testing.T) {
	snap := NewSnapshot([]Entry{
		{ID: "1", Title: "Red Shoes", Handle: "red-shoes"},
		{ID: "2", Title: "Blue Hat", Handle: "blue-hat"},
	})

	e, ok := snap.ByID("1")
	require.True(t, ok)
	assert.Equal(t, "Red Shoes", e.Title)

	_, ok = snap.ByID("404")
	assert.False(t, ok)

	assert.True(t, snap.HasHandle("blue-hat"))
	assert.False(t, snap.HasHandle("green-sock"))

	assert.Equal(t, []string{"1", "2"}, snap.MetadataIDs())
}

func TestTextChunkAndStringified(t *testing.T) {
	snap := NewSnapshot([]Entry{
		{
			ID: "1", Title: "Red Shoes", Handle: "red-shoes", Description: "Light summer shoes",
			Variants: []Variant{{ID: "11", Price: "49.99", ProductID: "1", Title: "EU 40"}},
		},
		{ID: "2", Title: "Blue Hat", Handle: "blue-hat"},
	})

	chunk := snap.Entries[0].TextChunk()
	assert.Contains(t, chunk, "Product ID: 1")
	assert.Contains(t, chunk, "Title: Red Shoes")
	assert.Contains(t, chunk, "Variant: EU 40, price 49.99")

	all := snap.Stringified()
	assert.Contains(t, all, "Red Shoes")
	assert.Contains(t, all, "Blue Hat")
	assert.Contains(t, all, "\n---\n")
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain", stripHTML("plain"))
	assert.Equal(t, "a b", stripHTML("<div>a</div>  <span>b</span>"))
	assert.Equal(t, "", stripHTML("<br/>"))
}
