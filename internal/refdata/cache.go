// Package refdata holds the reference dictionaries served by the registry:
// code → label tables used to denormalize coded fields into readable text.
package refdata

// Key names a reference dictionary on the registry side. The values are the
// literal dictionary identifiers used in the fetch URL.
type Key string

const (
	ObjectTypeCodes         Key = "OBJECT_TYPE_CODES"
	LandCategoryCodes       Key = "LAND_CATEGORY_CODES"
	LandPermittedUsageCodes Key = "LAND_PERMITTED_USAGE_CODES"
	RoomPurposeCodes        Key = "ROOM_PURPOSE_CODES"
	BuildingPurposeCodes    Key = "BUILDING_PURPOSE_CODES"
)

// AllKeys lists every dictionary fetched during initialization, in fetch order.
var AllKeys = []Key{
	ObjectTypeCodes,
	LandCategoryCodes,
	LandPermittedUsageCodes,
	RoomPurposeCodes,
	BuildingPurposeCodes,
}

// Pair is one dictionary entry. The registry serves entries as
// {"code": ..., "value": ...} objects.
type Pair struct {
	Code  string `json:"code"`
	Label string `json:"value"`
}

// Cache maps dictionary keys to their entries. It is populated once per run
// by the initialization sequence and read by the aggregator. Lookups against
// an unpopulated dictionary resolve to "not found" rather than failing.
type Cache struct {
	dicts map[Key][]Pair
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{dicts: make(map[Key][]Pair)}
}

// Populate stores the entries for a dictionary, replacing any previous
// snapshot. Last write wins.
func (c *Cache) Populate(key Key, pairs []Pair) {
	c.dicts[key] = pairs
}

// Populated reports whether the dictionary has at least one entry.
func (c *Cache) Populated(key Key) bool {
	return len(c.dicts[key]) > 0
}

// Resolve looks up a code in the named dictionary. Codes absent from the
// dictionary are a known, non-fatal occurrence, so the miss is reported via
// ok rather than an error.
func (c *Cache) Resolve(key Key, code string) (label string, ok bool) {
	if code == "" {
		return "", false
	}
	for _, p := range c.dicts[key] {
		if p.Code == code {
			return p.Label, true
		}
	}
	return "", false
}

// Pairs returns the current snapshot of a dictionary.
func (c *Cache) Pairs(key Key) []Pair {
	return c.dicts[key]
}

// Object types whose purpose codes live in the building-purpose dictionary.
var buildingLikeTypes = map[string]bool{
	"Здание":    true,
	"Сооружение": true,
	"Объект незавершенного строительства":      true,
	"Предприятие как имущественный комплекс":   true,
	"Единый недвижимый комплекс":               true,
}

// Object types whose purpose codes live in the room-purpose dictionary.
var roomLikeTypes = map[string]bool{
	"Помещение":    true,
	"Машино-место": true,
}

// PurposeKey selects the purpose dictionary for a resolved object-type label.
// Purpose codes share one namespace across dictionaries, so the dictionary
// must be chosen by object-type classification before resolving. Returns
// ok=false for object types that carry no purpose (land parcels etc).
func PurposeKey(objectType string) (Key, bool) {
	switch {
	case buildingLikeTypes[objectType]:
		return BuildingPurposeCodes, true
	case roomLikeTypes[objectType]:
		return RoomPurposeCodes, true
	default:
		return "", false
	}
}
