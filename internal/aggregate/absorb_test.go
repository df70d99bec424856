package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cadastre-cli/internal/model"
	"github.com/sells-group/cadastre-cli/internal/refdata"
)

func testCache() *refdata.Cache {
	c := refdata.NewCache()
	c.Populate(refdata.ObjectTypeCodes, []refdata.Pair{
		{Code: "002001002000", Label: "Здание"},
		{Code: "002002002000", Label: "Помещение"},
		{Code: "002001001000", Label: "Земельный участок"},
	})
	c.Populate(refdata.BuildingPurposeCodes, []refdata.Pair{
		{Code: "204001000000", Label: "Нежилое здание"},
	})
	c.Populate(refdata.RoomPurposeCodes, []refdata.Pair{
		{Code: "206002000000", Label: "Нежилое помещение"},
	})
	c.Populate(refdata.LandCategoryCodes, []refdata.Pair{
		{Code: "003001000000", Label: "Земли населенных пунктов"},
	})
	return c
}

func TestAbsorb_BuildingElement(t *testing.T) {
	raw := `{
		"cadNumber": "77:01:0001001:1",
		"status": "1",
		"address": {"readableAddress": "г Москва, ул Тверская, д 1"},
		"objType": "002001002000",
		"purpose": "204001000000",
		"floor": 5,
		"oksYearBuild": 1999,
		"cadCost": "12345678,9",
		"area": "45,3",
		"rights": [
			{"rightTypeDesc": "Собственность", "rightNumber": "77-77/001", "rightRegDate": 1577836800000}
		],
		"encumbrances": [
			{"typeDesc": "Ипотека", "encumbranceNumber": "77-77/003"}
		]
	}`
	var el Element
	require.NoError(t, json.Unmarshal([]byte(raw), &el))

	rec := Absorb(el, testCache())

	assert.Equal(t, "77:01:0001001:1", rec.CadNumber)
	assert.Equal(t, model.StatusActive, rec.Status)
	assert.Equal(t, "г Москва, ул Тверская, д 1", rec.Address)
	assert.Equal(t, "Здание", rec.ObjectType)
	assert.Equal(t, "Нежилое здание", rec.Purpose)
	assert.Equal(t, "5", rec.Floors)
	assert.Equal(t, "1999", rec.YearBuilt)
	require.NotNil(t, rec.Area)
	assert.InDelta(t, 45.3, *rec.Area, 1e-9)
	assert.Equal(t, "Собственность, 77-77/001 от 01.01.2020", rec.Rights)
	assert.Equal(t, "Ипотека 77-77/003", rec.Encumbrances)
}

func TestAbsorb_CancelledStatus(t *testing.T) {
	el := Element{CadNumber: "77:01:0001001:2", Status: "0"}
	rec := Absorb(el, testCache())
	assert.Equal(t, model.StatusCancelled, rec.Status)
}

func TestAbsorb_RoomPurposeDictionary(t *testing.T) {
	el := Element{
		ObjType: "002002002000",
		Purpose: "206002000000",
	}
	rec := Absorb(el, testCache())
	assert.Equal(t, "Помещение", rec.ObjectType)
	assert.Equal(t, "Нежилое помещение", rec.Purpose)
}

func TestAbsorb_LandParcelHasNoPurpose(t *testing.T) {
	// A building-purpose code on a land parcel must not resolve: the code
	// namespaces overlap between dictionaries.
	el := Element{
		ObjType:      "002001001000",
		Purpose:      "204001000000",
		LandCategory: "003001000000",
	}
	rec := Absorb(el, testCache())
	assert.Equal(t, "Земельный участок", rec.ObjectType)
	assert.Empty(t, rec.Purpose)
	assert.Equal(t, "Земли населенных пунктов", rec.LandCategory)
}

func TestAbsorb_UnparseableArea(t *testing.T) {
	el := Element{CadNumber: "77:01:0001001:3", Area: "уточняется"}
	rec := Absorb(el, testCache())
	assert.Nil(t, rec.Area)
}

func TestAbsorb_UnknownCodes(t *testing.T) {
	el := Element{ObjType: "999999999999", LandCategory: "888888888888"}
	rec := Absorb(el, testCache())
	assert.Empty(t, rec.ObjectType)
	assert.Empty(t, rec.LandCategory)
}
