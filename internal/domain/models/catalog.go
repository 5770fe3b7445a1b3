package models

import (
	"time"
)

// Family names one of the ordered catalogs: relocation stages, options or the
// buildings of a village.
type Family string

const (
	FamilyStages    Family = "stages"
	FamilyOptions   Family = "options"
	FamilyBuildings Family = "buildings"
)

// Families lists every catalog served by the store.
var Families = []Family{FamilyStages, FamilyOptions, FamilyBuildings}

// CatalogItem is a stage, sub-stage, option, option stage, building or
// building stage. Top-level items have a nil ParentID and carry their active
// children in Stages. Buildings and their stages belong to a village.
type CatalogItem struct {
	ID        string        `json:"id" db:"id"`
	Family    Family        `json:"-" db:"family"`
	VillageID *string       `json:"village_id,omitempty" db:"village_id"`
	ParentID  *string       `json:"parent_id,omitempty" db:"parent_id"` // NULL = top level
	Name      string        `json:"name" db:"name"`
	Desc      *string       `json:"desc,omitempty" db:"description"`
	Position  int           `json:"position" db:"position"`
	Deleted   bool          `json:"deleted" db:"deleted"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
	Stages    []CatalogItem `json:"stages,omitempty"` // Loaded for top-level listings, not stored
}

// ItemList is the result body of list endpoints.
type ItemList struct {
	Count int           `json:"count"`
	Items []CatalogItem `json:"items"`
}

// NewItemList wraps items, never returning a null items array.
func NewItemList(items []CatalogItem) ItemList {
	if items == nil {
		items = []CatalogItem{}
	}
	return ItemList{Count: len(items), Items: items}
}

// Routes holds the path segments a family is served under. Top-level paths
// are derived from Collection; child paths live under their own prefixes.
// Scoped families put the village id after the item (or parent) id, except
// for the top-level insert, which reads it from the body.
type Routes struct {
	Collection   string // stages
	Child        string // sstages/{parentID}/{id}
	ChildInsert  string // substage/insert/{parentID}
	Deleted      string // deleted_stages
	ChildDeleted string // deleted_substages/{parentID}
	Label        string // stage
	ChildLabel   string // sub stage
	Scoped       bool   // collections live under a village
}

var familyRoutes = map[Family]Routes{
	FamilyStages: {
		Collection:   "stages",
		Child:        "sstages",
		ChildInsert:  "substage/insert",
		Deleted:      "deleted_stages",
		ChildDeleted: "deleted_substages",
		Label:        "stage",
		ChildLabel:   "sub stage",
	},
	FamilyOptions: {
		Collection:   "options",
		Child:        "ostages",
		ChildInsert:  "ostages/insert",
		Deleted:      "deleted_options",
		ChildDeleted: "deleted_ostages",
		Label:        "option",
		ChildLabel:   "option stage",
	},
	FamilyBuildings: {
		Collection:   "buildings",
		Child:        "bstages",
		ChildInsert:  "bstages/insert",
		Deleted:      "deleted_buildings",
		ChildDeleted: "deleted_bstages",
		Label:        "building",
		ChildLabel:   "building stage",
		Scoped:       true,
	},
}

// RoutesFor returns the routes of a family; ok is false for unknown families.
func RoutesFor(f Family) (Routes, bool) {
	r, ok := familyRoutes[f]
	return r, ok
}

// Scoped reports whether the family's collections live under a village.
func (f Family) Scoped() bool {
	return familyRoutes[f].Scoped
}

func (r Routes) village(village string) string {
	if !r.Scoped {
		return ""
	}
	return "/" + village
}

// ListPath is the top-level listing.
func (r Routes) ListPath(village string) string {
	return "/" + r.Collection + r.village(village)
}

// InsertPath is the insert endpoint of the top level (parentID empty) or of a
// parent's children.
func (r Routes) InsertPath(village, parentID string) string {
	if parentID == "" {
		return "/" + r.Collection + "/insert"
	}
	return "/" + r.ChildInsert + "/" + parentID + r.village(village)
}

// ItemPath addresses a single item for update and delete.
func (r Routes) ItemPath(village, parentID, id string) string {
	if parentID == "" {
		return "/" + r.Collection + "/" + id + r.village(village)
	}
	return "/" + r.Child + "/" + parentID + r.village(village) + "/" + id
}

// DeletedPath lists soft-deleted members of a collection.
func (r Routes) DeletedPath(village, parentID string) string {
	if parentID == "" {
		return "/" + r.Deleted + r.village(village)
	}
	return "/" + r.ChildDeleted + "/" + parentID + r.village(village)
}

// LabelFor names the kind of item addressed, for messages.
func (r Routes) LabelFor(parentID *string) string {
	if parentID == nil {
		return r.Label
	}
	return r.ChildLabel
}
