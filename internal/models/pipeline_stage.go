package models

type PipelineStage struct {
	ClinicID string `gorm:"primaryKey;size:36" json:"-"`
	Key      string `gorm:"primaryKey;size:50" json:"key"`
	Label    string `gorm:"size:100;not null" json:"label"`
	Order    int    `gorm:"column:sort_order" json:"order"`
	Color    string `gorm:"size:20" json:"color"`
}
