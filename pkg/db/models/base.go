package models

import "github.com/google/uuid"

// assignID fills a zero primary key before insert so every dialect receives
// an explicit id.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
