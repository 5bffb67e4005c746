package entities

// HistoryEntry is one item of a patient's medical history.
type HistoryEntry struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Doctor      string `json:"doctor"`
	Status      string `json:"status"`
	Severity    string `json:"severity"`
}

// Medication is a current or past prescription.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	StartDate string `json:"startDate"`
	Status    string `json:"status"`
	Purpose   string `json:"purpose"`
}

// LabResult is a laboratory report summary.
type LabResult struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Doctor string `json:"doctor"`
}

// BloodWork is a single blood test value with its reference range.
type BloodWork struct {
	Test   string  `json:"test"`
	Value  float64 `json:"value"`
	Normal string  `json:"normal"`
	Status string  `json:"status"`
}

// MedicalData is everything sent to the assessment model for one patient.
type MedicalData struct {
	HeartRate     string `json:"heartRate"`
	BloodPressure string `json:"bloodPressure"`
	Temperature   string `json:"temperature"`
	BloodSugar    string `json:"bloodSugar"`
	EnergyLevel   string `json:"energyLevel"`

	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`

	MedicalHistory []HistoryEntry `json:"medicalHistory"`
	Medications    []Medication   `json:"medications"`
	LabResults     []LabResult    `json:"labResults"`
	BloodWork      []BloodWork    `json:"bloodWork"`

	ProposedOperation string `json:"proposedOperation"`
}
