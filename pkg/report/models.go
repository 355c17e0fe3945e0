package report

// Gender is the fixed enumeration stored on a patient row. Coercion
// only ever produces Male, Female or Unknown; Other is schema-admitted
// but reachable only by direct data manipulation.
type Gender = string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderOther   Gender = "Other"
	GenderUnknown Gender = "Unknown"
)

// Patient owns its reports; reports own their entities. Deleting a
// patient cascades down both levels.
type Patient struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name   string `gorm:"size:255" json:"name"`
	Age    *int   `json:"age"`
	Gender Gender `gorm:"size:16;default:Unknown" json:"gender"`

	Reports []Report `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"reports"`
}

func (Patient) TableName() string {
	return "patients"
}

type Report struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PatientID int64  `gorm:"index;not null" json:"patient_id"`
	Filename  string `gorm:"size:255" json:"filename"`
	Processed bool   `json:"processed"`

	Entities []Entity `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"entities"`
}

func (Report) TableName() string {
	return "reports"
}

type Entity struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID int64  `gorm:"index;not null" json:"report_id"`
	Text     string `gorm:"type:text" json:"text"`
	Label    string `gorm:"size:255" json:"label"`
}

func (Entity) TableName() string {
	return "entities"
}
