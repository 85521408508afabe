package entities

// ProcedureCode is one row of the bundled HCPCS reference catalog.
type ProcedureCode struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	StatusCode  string  `json:"status_code"`
	WorkRVU     float64 `json:"work_rvu"`
}
