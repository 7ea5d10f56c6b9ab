package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is the stored shape of a document in the "post" collection.
// Created is a pointer because older documents may not carry it.
type Post struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title   string             `bson:"title" json:"title"`
	Content string             `bson:"content" json:"content"`
	Created *time.Time         `bson:"created,omitempty" json:"created,omitempty"`
}

// PostView is the wire shape returned to clients.
type PostView struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Created string `json:"created"`
}

// PostFilter selects posts by case-insensitive substring. Empty fields are ignored.
type PostFilter struct {
	Title   string
	Content string
}

func (f PostFilter) IsEmpty() bool {
	return f.Title == "" && f.Content == ""
}

// PostFields are the mutable fields of a post.
type PostFields struct {
	Title   string
	Content string
}

// View renders p for the wire. A missing created timestamp is replaced by now
// at read time; nothing is written back.
func (p Post) View(now time.Time) PostView {
	created := now
	if p.Created != nil {
		created = *p.Created
	}
	return PostView{
		ID:      p.ID.Hex(),
		Title:   p.Title,
		Content: p.Content,
		Created: created.UTC().Format(time.RFC3339Nano),
	}
}

func Views(posts []Post, now time.Time) []PostView {
	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = p.View(now)
	}
	return views
}
