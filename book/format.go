package book

//go:generate go tool go-enum --names --marshal

// Source format of a work.
// ENUM(epub, exploded, xhtml)
type Format int
