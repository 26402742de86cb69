package render

// Option is a selectable value with its label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field is one input of a range filter.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder"`
}

// Filter describes one form control. Unused members are omitted.
type Filter struct {
	Type    string   `json:"type"`
	Label   string   `json:"label"`
	Options []Option `json:"options,omitempty"`
	Fields  []Field  `json:"fields,omitempty"`
	Default any      `json:"default,omitempty"`
	Order   *Filter  `json:"order,omitempty"`
}

// Catalog is the filter schema clients use to build the search form.
type Catalog struct {
	Type          Filter `json:"type"`
	DateRange     Filter `json:"date_range"`
	DealAmount    Filter `json:"deal_amount"`
	EmployeeCount Filter `json:"employee_count"`
	Country       Filter `json:"country"`
	Sort          Filter `json:"sort"`
}

// SortFields lists the fields the sort control offers.
var SortFields = []Option{
	{"name", "Name"},
	{"date_founded", "Founded Date"},
	{"employee_count", "Employee Count"},
	{"total_deals_amount", "Total Deal Amount"},
	{"last_deal_date", "Last Deal Date"},
}

// Countries lists the country filter choices by ISO code.
var Countries = []Option{
	{"GB", "United Kingdom"},
	{"US", "United States"},
	{"FR", "France"},
	{"DE", "Germany"},
	{"ES", "Spain"},
	{"IT", "Italy"},
	{"NL", "Netherlands"},
	{"SE", "Sweden"},
	{"CH", "Switzerland"},
	{"IE", "Ireland"},
}

func numberRange(prefix, unit string) []Field {
	return []Field{
		{Name: prefix + "_min", Label: "Minimum", Type: "number", Placeholder: "Enter minimum " + unit},
		{Name: prefix + "_max", Label: "Maximum", Type: "number", Placeholder: "Enter maximum " + unit},
	}
}

// FilterCatalog returns the static filter schema. It does not depend on
// index contents.
func FilterCatalog() Catalog {
	return Catalog{
		Type: Filter{
			Type:  "checkbox",
			Label: "Search Type",
			Options: []Option{
				{"all", "All"},
				{"companies", "Companies"},
				{"employees", "Employees"},
			},
			Default: []string{"all"},
		},
		DateRange: Filter{
			Type:  "date_range",
			Label: "Founded Date Range",
			Fields: []Field{
				{Name: "date_from", Label: "From", Type: "date", Placeholder: "YYYY-MM-DD"},
				{Name: "date_to", Label: "To", Type: "date", Placeholder: "YYYY-MM-DD"},
			},
		},
		DealAmount: Filter{
			Type:   "number_range",
			Label:  "Deal Amount",
			Fields: numberRange("deal_amount", "amount"),
		},
		EmployeeCount: Filter{
			Type:   "number_range",
			Label:  "Employee Count",
			Fields: numberRange("employee_count", "count"),
		},
		Country: Filter{
			Type:    "multi_select",
			Label:   "Countries",
			Options: Countries,
		},
		Sort: Filter{
			Type:    "select",
			Label:   "Sort By",
			Options: SortFields,
			Order: &Filter{
				Type:  "select",
				Label: "Sort Order",
				Options: []Option{
					{"asc", "Ascending"},
					{"desc", "Descending"},
				},
				Default: "desc",
			},
		},
	}
}
