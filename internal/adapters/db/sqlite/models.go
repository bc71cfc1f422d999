package sqlite

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EntryModel struct {
	GUID         uuid.UUID      `gorm:"primaryKey;type:text"`
	LiftID       string         `gorm:"index"`
	Headword     string         `gorm:"not null;index"`
	SenseCount   int            `gorm:"not null;default:0"`
	Position     int            `gorm:"not null"`
	DateCreated  time.Time
	DateModified time.Time
	Body         datatypes.JSON `gorm:"not null"`
}

func (EntryModel) TableName() string { return "entries" }

type SenseModel struct {
	GUID      uuid.UUID `gorm:"primaryKey;type:text"`
	EntryGUID uuid.UUID `gorm:"not null;index;type:text"`
	LiftID    string    `gorm:"index"`
	Position  int       `gorm:"not null"`
}

func (SenseModel) TableName() string { return "senses" }

type ReferenceTypeModel struct {
	GUID                uuid.UUID      `gorm:"primaryKey;type:text"`
	LiftID              string         `gorm:"index"`
	Label               string         `gorm:"not null;index"`
	Kind                string         `gorm:"not null;default:'collection'"`
	Name                datatypes.JSON
	Abbreviation        datatypes.JSON
	ReverseName         datatypes.JSON
	ReverseAbbreviation datatypes.JSON
	Description         datatypes.JSON
	Position            int `gorm:"not null"`
}

func (ReferenceTypeModel) TableName() string { return "reference_types" }

type LinkModel struct {
	GUID     uuid.UUID `gorm:"primaryKey;type:text"`
	TypeGUID uuid.UUID `gorm:"not null;index;type:text"`
	Position int       `gorm:"not null"`
}

func (LinkModel) TableName() string { return "link_objects" }

type LinkMemberModel struct {
	ID         uint      `gorm:"primaryKey"`
	LinkGUID   uuid.UUID `gorm:"not null;index:idx_link_member,unique;type:text"`
	MemberGUID uuid.UUID `gorm:"not null;index:idx_link_member,unique;index;type:text"`
	Position   int       `gorm:"not null"`
}

func (LinkMemberModel) TableName() string { return "link_members" }

type FieldDefModel struct {
	ID          uint   `gorm:"primaryKey"`
	OwnerKind   string `gorm:"not null;index:idx_owner_name,unique"`
	Name        string `gorm:"not null;index:idx_owner_name,unique"`
	ValueType   string `gorm:"not null"`
	ListName    string
	WsSelector  string
	Description datatypes.JSON
}

func (FieldDefModel) TableName() string { return "field_defs" }

type FieldValueModel struct {
	ID         uint           `gorm:"primaryKey"`
	ObjectGUID uuid.UUID      `gorm:"not null;index:idx_object_field,unique;type:text"`
	FieldName  string         `gorm:"not null;index:idx_object_field,unique"`
	Value      datatypes.JSON `gorm:"not null"`
}

func (FieldValueModel) TableName() string { return "field_values" }

type PossibilityListModel struct {
	GUID     uuid.UUID `gorm:"primaryKey;type:text"`
	Name     string    `gorm:"not null;index"`
	Label    datatypes.JSON
	Position int `gorm:"not null"`
}

func (PossibilityListModel) TableName() string { return "possibility_lists" }

type PossibilityModel struct {
	GUID        uuid.UUID `gorm:"primaryKey;type:text"`
	ListGUID    uuid.UUID `gorm:"not null;index;type:text"`
	ParentGUID  uuid.UUID `gorm:"type:text"`
	LiftID      string
	Label       datatypes.JSON
	Abbrev      datatypes.JSON
	Description datatypes.JSON
	Position    int `gorm:"not null"`
}

func (PossibilityModel) TableName() string { return "possibilities" }

type ImportRunModel struct {
	ID               uint   `gorm:"primaryKey"`
	Style            string `gorm:"not null"`
	TrustTimestamps  bool   `gorm:"not null;default:false"`
	Status           string `gorm:"not null;default:'finished'"`
	EntriesProcessed int    `gorm:"not null;default:0"`
	Created          int    `gorm:"not null;default:0"`
	Merged           int    `gorm:"not null;default:0"`
	Skipped          int    `gorm:"not null;default:0"`
	LogCount         int    `gorm:"not null;default:0"`
	StartedAt        time.Time
	FinishedAt       *time.Time
}

func (ImportRunModel) TableName() string { return "import_runs" }

type MergeLogModel struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      uint   `gorm:"not null;index"`
	Kind       string `gorm:"not null;index"`
	ObjectKind string
	ObjectID   string
	Field      string
	Message    string `gorm:"not null"`
	OldValue   string
	NewValue   string
	CreatedAt  time.Time
}

func (MergeLogModel) TableName() string { return "merge_log" }
