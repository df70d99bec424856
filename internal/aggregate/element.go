// Package aggregate converts raw registry search elements into normalized
// records and folds them into the final output table.
package aggregate

import "encoding/json"

// SearchResponse is the object-search reply envelope.
type SearchResponse struct {
	Elements []Element `json:"elements"`
}

// Element is one raw property element from the object-search endpoint. The
// feed is loose about scalar types (numbers arrive as strings and vice
// versa), so the tolerant fields decode either form.
type Element struct {
	CadNumber         string        `json:"cadNumber"`
	Status            flexString    `json:"status"`
	Address           Address       `json:"address"`
	ObjType           string        `json:"objType"`
	Purpose           string        `json:"purpose"`
	Floor             flexString    `json:"floor"`
	UndergroundFloor  flexString    `json:"undergroundFloor"`
	LevelFloor        flexString    `json:"levelFloor"`
	LandCategory      string        `json:"landCategory"`
	PermittedUseByDoc string        `json:"permittedUseByDoc"`
	OksYearBuild      flexString    `json:"oksYearBuild"`
	CadCost           flexString    `json:"cadCost"`
	Area              flexString    `json:"area"`
	Rights            []Right       `json:"rights"`
	Encumbrances      []Encumbrance `json:"encumbrances"`
}

// Address carries the human-readable address of an element.
type Address struct {
	ReadableAddress string `json:"readableAddress"`
}

// Right is one registered-right entry on an element. Dates are epoch
// milliseconds.
type Right struct {
	TypeDesc string `json:"rightTypeDesc"`
	Number   string `json:"rightNumber"`
	RegDate  *int64 `json:"rightRegDate"`
}

// Encumbrance is one encumbrance entry on an element.
type Encumbrance struct {
	TypeDesc  string `json:"typeDesc"`
	Number    string `json:"encumbranceNumber"`
	StartDate *int64 `json:"startDate"`
}

// flexString decodes a JSON string, number, or null into a string.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	// Numbers keep their literal text.
	*s = flexString(b)
	return nil
}

func (s flexString) String() string {
	return string(s)
}
