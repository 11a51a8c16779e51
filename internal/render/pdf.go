package render

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

func buildReport(s Summary) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(12, TitleText, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(12,
		text.NewCol(12, FormatTotal(s.TotalCountries), props.Text{Size: 12}),
	)
	m.AddRow(12,
		text.NewCol(12, HeadingText, props.Text{Size: 12, Style: fontstyle.Bold}),
	)

	m.AddRow(10,
		text.NewCol(1, "#", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(7, "Country", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Estimated GDP", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, e := range s.Top {
		m.AddRow(8,
			text.NewCol(1, fmt.Sprintf("%d", e.Rank), props.Text{Size: 9}),
			text.NewCol(7, e.Name, props.Text{Size: 9}),
			text.NewCol(4, FormatGDP(e.EstimatedGDP), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(15,
		col.New(12).Add(
			text.New(FormatLastRefreshed(s.LastRefreshedAt), props.Text{Size: 9, Top: 6}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
