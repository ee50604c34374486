package db

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a new 24 character hex identifier. Both storage backends use
// the same format so API ids do not depend on the configured driver.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id is a well-formed identifier.
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}
