package domain

// TransitLine identifies a Bangkok rail line.
type TransitLine string

const (
	LineRed       TransitLine = "RED"
	LineBlue      TransitLine = "BLUE"
	LinePurple    TransitLine = "PURPLE"
	LineGreen     TransitLine = "GREEN"
	LineDarkGreen TransitLine = "DARK_GREEN"
	LineGold      TransitLine = "GOLD"
	LineYellow    TransitLine = "YELLOW"
	LinePink      TransitLine = "PINK"
	LineOrange    TransitLine = "ORANGE"
)

// TransitLineInfo is the display data for one line.
type TransitLineInfo struct {
	ID    TransitLine `json:"id"`
	Label string      `json:"label"`
	Color string      `json:"color"`
}

// TransitLines is the catalog in display order.
var TransitLines = []TransitLineInfo{
	{ID: LineRed, Label: "สายสีแดง (MRT)", Color: "#E31E24"},
	{ID: LineBlue, Label: "สายสีน้ำเงิน (MRT)", Color: "#0070BD"},
	{ID: LinePurple, Label: "สายสีม่วง (MRT)", Color: "#6C1D7A"},
	{ID: LineGreen, Label: "สายสีเขียว (BTS สุขุมวิท)", Color: "#00A651"},
	{ID: LineDarkGreen, Label: "สายสีเขียวเข้ม (BTS สีลม)", Color: "#009444"},
	{ID: LineGold, Label: "สายสีทอง (BTS)", Color: "#B8860B"},
	{ID: LineYellow, Label: "สายสีเหลือง (MRT)", Color: "#FFD100"},
	{ID: LinePink, Label: "สายสีชมพู (MRT)", Color: "#E91E8C"},
	{ID: LineOrange, Label: "สายสีส้ม", Color: "#ED8B00"},
}

// Valid reports whether l is in the catalog.
func (l TransitLine) Valid() bool {
	_, ok := TransitLineByID(l)
	return ok
}

// TransitLineByID looks a line up in the catalog.
func TransitLineByID(id TransitLine) (TransitLineInfo, bool) {
	for _, l := range TransitLines {
		if l.ID == id {
			return l, true
		}
	}
	return TransitLineInfo{}, false
}
