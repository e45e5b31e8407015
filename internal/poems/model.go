package poems

import "time"

// Poem models an uploaded poem. Content is immutable after creation; there
// is no update path, so UpdatedAt only ever reflects the insert.
type Poem struct {
	ID               uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Content          string    `gorm:"column:content;type:text;not null"`
	PaymentReference *string   `gorm:"column:payment_reference;size:190"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Poem) TableName() string {
	return "poems"
}

// Image records one generated mnemonic image for a verse of a poem.
// Duplicate (poem_id, verse_number, stanza_number) rows are allowed: a
// client retry produces a second row rather than replacing the first.
type Image struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PoemID       uint      `gorm:"column:poem_id;not null;index"`
	Poem         Poem      `gorm:"foreignKey:PoemID;constraint:OnDelete:CASCADE"`
	Filename     string    `gorm:"column:image_filename;size:190;not null"`
	VerseNumber  int       `gorm:"column:verse_number;not null"`
	StanzaNumber int       `gorm:"column:stanza_number;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Image) TableName() string {
	return "images"
}
