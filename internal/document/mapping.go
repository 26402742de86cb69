package document

// field helpers keep the mapping tables readable.
func typed(t string) map[string]any { return map[string]any{"type": t} }

func analyzed() map[string]any {
	return map[string]any{"type": "text", "analyzer": "standard"}
}

func object(props map[string]any) map[string]any {
	return map[string]any{"properties": props}
}

// CompanyMapping is the create-index body of the company index.
func CompanyMapping() map[string]any {
	return map[string]any{
		"mappings": object(map[string]any{
			"id":                 typed("integer"),
			"companies_house_id": typed("keyword"),
			"name":               analyzed(),
			"description":        analyzed(),
			"date_founded":       typed("date"),
			"country": object(map[string]any{
				"id":       typed("integer"),
				"iso_code": typed("keyword"),
				"name":     typed("keyword"),
			}),
			"active":             typed("boolean"),
			"employee_count":     typed("integer"),
			"total_deals_amount": typed("float"),
			"last_deal_amount":   typed("float"),
			"last_deal_date":     typed("date"),
			"created":            typed("date"),
			"modified":           typed("date"),
		}),
	}
}

// EmployeeMapping is the create-index body of the employee index.
func EmployeeMapping() map[string]any {
	return map[string]any{
		"mappings": object(map[string]any{
			"id":           typed("integer"),
			"name":         analyzed(),
			"job_title":    analyzed(),
			"gender":       typed("keyword"),
			"email":        typed("keyword"),
			"phone_number": typed("keyword"),
			"company": object(map[string]any{
				"id":   typed("integer"),
				"name": analyzed(),
			}),
			"created":  typed("date"),
			"modified": typed("date"),
		}),
	}
}

// Mapping returns the mapping for t, or nil for an unknown type.
func Mapping(t EntityType) map[string]any {
	switch t {
	case Companies:
		return CompanyMapping()
	case Employees:
		return EmployeeMapping()
	default:
		return nil
	}
}
