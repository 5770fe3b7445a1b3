package stagestore

import (
	"fmt"

	"github.com/tidwall/gjson"

	"relocation/internal/reorder"
)

// idFields are tried in order; older documents name their identifier after
// the kind of item instead of "id".
var idFields = []string{"id", "optionId", "typeId", "subStageId", "stageId"}

// listResults finds the array of items in a list response. Accepted shapes
// are result.items, result, a bare array and items.
func listResults(body []byte) []gjson.Result {
	if r := gjson.GetBytes(body, "result.items"); r.IsArray() {
		return r.Array()
	}
	if r := gjson.GetBytes(body, "result"); r.IsArray() {
		return r.Array()
	}
	if r := gjson.ParseBytes(body); r.IsArray() {
		return r.Array()
	}
	if r := gjson.GetBytes(body, "items"); r.IsArray() {
		return r.Array()
	}
	return nil
}

// decodeCollection decodes the top-level list, or the children of parentID.
func decodeCollection(body []byte, parentID string) ([]reorder.Item, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	results := listResults(body)
	if parentID == "" {
		return decodeItems(results), nil
	}
	for _, r := range results {
		if itemID(r) == parentID {
			return decodeItems(r.Get("stages").Array()), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", parentID, ErrParentNotFound)
}

func decodeItems(results []gjson.Result) []reorder.Item {
	items := make([]reorder.Item, 0, len(results))
	for i, r := range results {
		items = append(items, decodeItem(r, i))
	}
	return items
}

// decodeItem reads one item. Documents without a position take their index.
func decodeItem(r gjson.Result, index int) reorder.Item {
	item := reorder.Item{
		ID:       itemID(r),
		Name:     r.Get("name").String(),
		Desc:     r.Get("desc").String(),
		Position: index,
		Deleted:  r.Get("deleted").Bool(),
	}
	if pos := r.Get("position"); pos.Exists() && pos.Type == gjson.Number {
		item.Position = int(pos.Int())
	}
	return item
}

func decodeResultItem(body []byte) (reorder.Item, bool) {
	r := gjson.GetBytes(body, "result")
	if !r.IsObject() {
		return reorder.Item{}, false
	}
	return decodeItem(r, 0), true
}

func itemID(r gjson.Result) string {
	for _, field := range idFields {
		if v := r.Get(field); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
