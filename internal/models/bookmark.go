package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookmarkMetadata is whatever could be scraped from the bookmarked page.
// Every field is optional.
type BookmarkMetadata struct {
	Title       string            `bson:"title,omitempty" json:"title,omitempty"`
	Description string            `bson:"description,omitempty" json:"description,omitempty"`
	Favicon     string            `bson:"favicon,omitempty" json:"favicon,omitempty"`
	Image       string            `bson:"image,omitempty" json:"image,omitempty"`
	Author      string            `bson:"author,omitempty" json:"author,omitempty"`
	SiteName    string            `bson:"siteName,omitempty" json:"siteName,omitempty"`
	Lang        string            `bson:"lang,omitempty" json:"lang,omitempty"`
	OG          map[string]string `bson:"og,omitempty" json:"og,omitempty"`
}

func (m BookmarkMetadata) IsEmpty() bool {
	return m.Title == "" && m.Description == "" && m.Favicon == "" && m.Image == "" &&
		m.Author == "" && m.SiteName == "" && m.Lang == "" && len(m.OG) == 0
}

// Bookmark is a saved URL owned by exactly one user.
type Bookmark struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	URL         string             `bson:"url" json:"url"`
	Description string             `bson:"description" json:"description"`
	Tags        StringList         `bson:"tags" json:"tags"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Metadata    BookmarkMetadata   `bson:"metadata" json:"metadata"`
	IsArchived  bool               `bson:"isArchived" json:"isArchived"`
	IsFavorite  bool               `bson:"isFavorite" json:"isFavorite"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
