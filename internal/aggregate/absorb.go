package aggregate

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/cadastre-cli/internal/model"
	"github.com/sells-group/cadastre-cli/internal/refdata"
)

// Absorb normalizes one raw element into a record using the current
// reference-dictionary snapshot. It is a pure function of its inputs:
// missing fields and unknown codes produce unset columns, never errors.
func Absorb(el Element, cache *refdata.Cache) model.Record {
	status := model.StatusCancelled
	if el.Status.String() == "1" {
		status = model.StatusActive
	}

	objectType, _ := cache.Resolve(refdata.ObjectTypeCodes, el.ObjType)

	// The purpose code namespace is only meaningful within the dictionary
	// selected by the object-type classification.
	purpose := ""
	if key, ok := refdata.PurposeKey(objectType); ok {
		purpose, _ = cache.Resolve(key, el.Purpose)
	}

	landCategory, _ := cache.Resolve(refdata.LandCategoryCodes, el.LandCategory)

	var area *float64
	if raw := el.Area.String(); raw != "" {
		if v, err := ParseArea(raw); err == nil {
			area = &v
		} else {
			zap.L().Warn("aggregate: unparseable area",
				zap.String("cad_number", el.CadNumber),
				zap.String("area", raw),
			)
		}
	}

	rights := make([]string, 0, len(el.Rights))
	for _, r := range el.Rights {
		rights = append(rights, FormatRight(r))
	}
	encumbrances := make([]string, 0, len(el.Encumbrances))
	for _, e := range el.Encumbrances {
		encumbrances = append(encumbrances, FormatEncumbrance(e))
	}

	return model.Record{
		CadNumber:    el.CadNumber,
		Status:       status,
		Address:      el.Address.ReadableAddress,
		ObjectType:   objectType,
		Purpose:      purpose,
		Floors:       el.Floor.String(),
		Underground:  el.UndergroundFloor.String(),
		LevelFloor:   el.LevelFloor.String(),
		LandCategory: landCategory,
		PermittedUse: el.PermittedUseByDoc,
		YearBuilt:    el.OksYearBuild.String(),
		CadCost:      el.CadCost.String(),
		Area:         area,
		Rights:       strings.Join(rights, "\n"),
		Encumbrances: strings.Join(encumbrances, "\n"),
	}
}
