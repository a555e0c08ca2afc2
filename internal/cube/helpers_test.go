package cube

import (
	"github.com/roach88/starcube/internal/model"
)

// calendarCube has one date dimension with hierarchies ymd (default),
// yqmd and ywd, and a flat flag dimension.
func calendarCube() *model.Cube {
	date := model.MustDimension("date",
		[]*model.Level{
			model.MustLevel("year", nil, "", ""),
			model.MustLevel("quarter", nil, "", ""),
			model.MustLevel("month", nil, "", ""),
			model.MustLevel("week", nil, "", ""),
			model.MustLevel("day", nil, "", ""),
		},
		[]model.HierarchySpec{
			{Name: "ymd", Levels: []string{"year", "month", "day"}},
			{Name: "yqmd", Levels: []string{"year", "quarter", "month", "day"}},
			{Name: "ywd", Levels: []string{"year", "week", "day"}},
		},
		"ymd",
	)
	return &model.Cube{
		Name:       "cube",
		Measures:   []*model.Measure{model.NewMeasure("amount")},
		Dimensions: []*model.Dimension{date, model.MustDimension("flag", nil, nil, "")},
	}
}

// salesDateCube mirrors the sales date dimension: the day level is keyed
// by a surrogate id.
func salesDateCube() *model.Cube {
	date := model.MustDimension("date",
		[]*model.Level{
			model.MustLevel("year", nil, "", ""),
			model.MustLevel("month", []*model.Attribute{
				model.NewAttribute("month"), model.NewAttribute("month_name"), model.NewAttribute("month_sname"),
			}, "", ""),
			model.MustLevel("day", []*model.Attribute{
				model.NewAttribute("id"), model.NewAttribute("day"),
			}, "id", "day"),
		},
		nil, "",
	)
	return &model.Cube{Name: "sales", Dimensions: []*model.Dimension{date}}
}
