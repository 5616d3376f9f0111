package models

import "time"

type Note struct {
	ID          int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DiagnosisID int       `gorm:"column:diagnosis_id;not null" json:"diagnosis_id"`
	Content     string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Note) TableName() string { return "notes" }

func (n *Note) Key() int      { return n.ID }
func (n *Note) SetKey(id int) { n.ID = id }
