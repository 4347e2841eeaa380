// Package journal records engine events in a local SQLite database so lookout
// discipline can be reviewed after a session. Every process run gets its own
// session identifier.
package journal
