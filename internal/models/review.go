package models

import (
	"time"
)

// Review is feedback a user leaves about a responder.
type Review struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        uint      `json:"userId" gorm:"not null;index"`
	User          *User     `json:"-" gorm:"foreignKey:UserID"`
	ResponderName string    `json:"responderName" gorm:"not null"`
	Rating        int       `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
